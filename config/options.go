package config

import (
	"encoding/json"
	"sync"
)

// Option 静态配置选项（注入器生命周期内不变）
// 第一次解析时绑定一次，之后不再更新
type Option[T any] interface {
	Value() T
}

// OptionSnapshot 快照配置选项
// 每次解析都得到当时配置的一份副本，子注入器中解析一次即可在作用域内保持不变
type OptionSnapshot[T any] interface {
	Value() T
}

// OptionMonitor 监听配置选项
// 总是返回最新的配置值，配置重载后自动更新
type OptionMonitor[T any] interface {
	Value() T
}

// OptionsCache 配置缓存，用于存储和自动更新配置节
type OptionsCache[T any] struct {
	config  Configuration
	section string
	current T
	err     error
	mu      sync.RWMutex
}

// NewOptionsCache 创建配置缓存；配置支持重载时注册回调
func NewOptionsCache[T any](config Configuration, section string) *OptionsCache[T] {
	cache := &OptionsCache[T]{
		config:  config,
		section: section,
	}
	cache.reload()

	if rc, ok := config.(Reloadable); ok {
		rc.OnReload(cache.reload)
	}
	return cache
}

// reload 重新绑定配置节，失败时保留上一次的值并记录错误
func (c *OptionsCache[T]) reload() {
	value, err := Load[T](c.config, c.section)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
	if err == nil {
		c.current = value
	}
}

// Get 获取当前配置值
func (c *OptionsCache[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Err 返回最近一次绑定的错误
func (c *OptionsCache[T]) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Snapshot 创建当前配置的深拷贝
func (c *OptionsCache[T]) Snapshot() T {
	current := c.Get()

	var snapshot T
	data, err := json.Marshal(current)
	if err != nil {
		return current
	}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return current
	}
	return snapshot
}

type option[T any] struct {
	value T
}

func (o *option[T]) Value() T { return o.value }

// NewOption 创建静态配置选项
func NewOption[T any](value T) Option[T] {
	return &option[T]{value: value}
}

type optionSnapshot[T any] struct {
	snapshot T
}

func (o *optionSnapshot[T]) Value() T { return o.snapshot }

// NewOptionSnapshot 创建快照配置选项
func NewOptionSnapshot[T any](snapshot T) OptionSnapshot[T] {
	return &optionSnapshot[T]{snapshot: snapshot}
}

type optionMonitor[T any] struct {
	cache *OptionsCache[T]
}

func (o *optionMonitor[T]) Value() T { return o.cache.Get() }

// NewOptionMonitor 创建监听配置选项
func NewOptionMonitor[T any](cache *OptionsCache[T]) OptionMonitor[T] {
	return &optionMonitor[T]{cache: cache}
}
