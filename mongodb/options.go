package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/gocrud/mgo"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoOptions MongoDB 客户端配置选项
type MongoOptions struct {
	Name        string
	Uri         string
	Database    string // 默认数据库（可选）
	Username    string
	Password    string
	MaxPoolSize uint64
	MinPoolSize uint64
	Timeout     time.Duration
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string, uri string) *MongoOptions {
	return &MongoOptions{
		Name:        name,
		Uri:         uri,
		MaxPoolSize: 100,
		MinPoolSize: 5,
		Timeout:     10 * time.Second,
	}
}

// Validate 验证配置
func (o *MongoOptions) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("mongo client name is required")
	}
	if o.Uri == "" {
		return fmt.Errorf("mongo uri is required")
	}
	if o.MinPoolSize > o.MaxPoolSize && o.MaxPoolSize > 0 {
		return fmt.Errorf("mongo min pool size exceeds max pool size")
	}
	return nil
}

// clientOptions 连接池、认证和超时设置，不含 URI
func (o *MongoOptions) clientOptions() *options.ClientOptions {
	clientOpts := options.Client()
	if o.Username != "" || o.Password != "" {
		clientOpts.SetAuth(options.Credential{
			Username: o.Username,
			Password: o.Password,
		})
	}
	if o.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(o.MaxPoolSize)
	}
	if o.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(o.MinPoolSize)
	}
	if o.Timeout > 0 {
		clientOpts.SetConnectTimeout(o.Timeout)
		clientOpts.SetServerSelectionTimeout(o.Timeout)
	}
	return clientOpts
}

// open 通过 mgo 创建客户端
func (o *MongoOptions) open() (*mgo.Client, error) {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mgo.NewClient(ctx, o.Uri, o.clientOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client '%s': %w", o.Name, err)
	}
	return client, nil
}

// openDriver 创建驱动客户端；驱动在后台建立连接，不会阻塞
func (o *MongoOptions) openDriver() (*mongo.Client, error) {
	client, err := mongo.Connect(o.clientOptions().ApplyURI(o.Uri))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client '%s': %w", o.Name, err)
	}
	return client, nil
}
