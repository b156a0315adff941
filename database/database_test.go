package database_test

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gocrud/injector/config"
	"github.com/gocrud/injector/database"
	"github.com/gocrud/injector/di"
)

type User struct {
	gorm.Model
	Name string
}

type MockDBService struct {
	DB      *gorm.DB                  `inject:""`
	Factory *database.DatabaseFactory `inject:""`
}

// DBConfig 模拟用户定义的配置结构
type DBConfig struct {
	DSN          string `json:"dsn"`
	MaxOpenConns int    `json:"max_open_conns"`
}

func TestDatabaseRegister(t *testing.T) {
	cfg, err := config.NewConfigurationBuilder().AddInMemory(map[string]any{
		"db": map[string]any{
			"master": map[string]any{
				"dsn":            "file::memory:?cache=shared",
				"max_open_conns": 5,
			},
		},
	}).Build()
	if err != nil {
		t.Fatal(err)
	}

	// 使用 config.Load 获取强类型配置
	dbConf, err := config.Load[DBConfig](cfg, "db.master")
	if err != nil {
		t.Fatal(err)
	}

	inj := di.New()
	factory, err := database.Register(inj, database.WithDatabase("master", sqlite.Open(dbConf.DSN), func(o *database.DatabaseOptions) {
		o.MaxOpenConns = dbConf.MaxOpenConns
		o.AutoMigrate = []any{&User{}}
	}))
	if err != nil {
		t.Fatal(err)
	}

	svc, err := di.Build[*MockDBService](inj)
	if err != nil {
		t.Fatal(err)
	}
	if svc.DB == nil {
		t.Fatal("DB should not be nil")
	}
	if svc.Factory != factory {
		t.Error("Factory should be the registered factory")
	}

	// 唯一配置的实例就是默认实例
	master, err := factory.Get("master")
	if err != nil {
		t.Fatal(err)
	}
	if master != svc.DB {
		t.Error("expected the default client to be the master client")
	}

	if err := svc.DB.Create(&User{Name: "Alice"}).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	var user User
	if err := svc.DB.First(&user, "name = ?", "Alice").Error; err != nil {
		t.Fatalf("Failed to query user: %v", err)
	}

	// 注销工厂关闭所有连接
	if err := inj.Unregister(di.TypeOf[*database.DatabaseFactory]()); err != nil {
		t.Fatal(err)
	}
}

func TestDatabaseBuilderErrors(t *testing.T) {
	inj := di.New()

	// 测试重复配置
	_, err := database.Register(inj,
		database.WithDatabase("default", sqlite.Open("file::memory:")),
		database.WithDatabase("default", sqlite.Open("file::memory:")),
	)
	if err == nil {
		t.Error("expected duplicate configuration error")
	}

	// 测试缺少驱动
	_, err = database.Register(inj, database.WithDatabase("default", nil))
	if err == nil {
		t.Error("expected missing dialector error")
	}

	// 测试负数连接池
	_, err = database.Register(inj, database.WithDatabase("default", sqlite.Open("file::memory:"), func(o *database.DatabaseOptions) {
		o.MaxIdleConns = -1
	}))
	if err == nil {
		t.Error("expected pool size error")
	}
}

func TestDatabaseWithoutDefault(t *testing.T) {
	inj := di.New()
	factory, err := database.Register(inj,
		database.WithDatabase("primary", sqlite.Open("file::memory:")),
		database.WithDatabase("replica", sqlite.Open("file::memory:")),
	)
	if err != nil {
		t.Fatal(err)
	}

	// 多个实例且没有 "default" 时不绑定 *gorm.DB
	if inj.Has(di.TypeOf[*gorm.DB]()) {
		t.Error("*gorm.DB should not be bound without a default database")
	}
	if db, err := di.Resolve[*gorm.DB](inj); err != nil || db != nil {
		t.Errorf("expected nil client, got %v, %v", db, err)
	}

	if _, err := factory.Get("missing"); err == nil {
		t.Error("expected not configured error")
	}
	if _, err := factory.Get("replica"); err != nil {
		t.Fatal(err)
	}
	if err := factory.Close(); err != nil {
		t.Fatal(err)
	}
}
