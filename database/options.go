package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DatabaseOptions 数据库配置选项
type DatabaseOptions struct {
	Name         string
	Dialector    gorm.Dialector
	GormConfig   *gorm.Config
	MaxIdleConns int
	MaxOpenConns int
	MaxLifetime  time.Duration
	AutoMigrate  []any // 需要自动迁移的模型
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string, dialector gorm.Dialector) *DatabaseOptions {
	return &DatabaseOptions{
		Name:         name,
		Dialector:    dialector,
		GormConfig:   &gorm.Config{},
		MaxIdleConns: 10,
		MaxOpenConns: 100,
		MaxLifetime:  time.Hour,
	}
}

// Validate 验证配置
func (o *DatabaseOptions) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if o.Dialector == nil {
		return fmt.Errorf("database dialector is required")
	}
	if o.MaxOpenConns < 0 || o.MaxIdleConns < 0 {
		return fmt.Errorf("database pool sizes must be non-negative")
	}
	return nil
}

// open 打开连接、配置连接池并执行自动迁移
func (o *DatabaseOptions) open() (*gorm.DB, error) {
	db, err := gorm.Open(o.Dialector, o.GormConfig)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(o.MaxIdleConns)
	sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(o.MaxLifetime)

	if len(o.AutoMigrate) > 0 {
		if err := db.AutoMigrate(o.AutoMigrate...); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("auto migrate failed: %w", err)
		}
	}
	return db, nil
}

func closeDB(_ string, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
