package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Configuration 配置接口（类似于 .NET Core IConfiguration）
type Configuration interface {
	// Get 获取配置值
	Get(key string) string
	// GetWithDefault 获取配置值，如果不存在则返回默认值
	GetWithDefault(key, defaultValue string) string
	// GetInt 获取整数配置值
	GetInt(key string) (int, error)
	// GetBool 获取布尔配置值
	GetBool(key string) (bool, error)
	// GetSection 获取配置节
	GetSection(key string) Configuration
	// Bind 绑定配置到结构体
	Bind(key string, target any) error
	// GetAll 获取所有配置
	GetAll() map[string]any
}

// Reloadable 可以重新加载配置源的配置
type Reloadable interface {
	Configuration
	// Reload 按顺序重新加载所有配置源，成功后触发回调
	Reload() error
	// OnReload 注册重载回调
	OnReload(fn func())
}

// configuration 配置实现，读取无锁，重载时整体替换数据
type configuration struct {
	data    atomic.Pointer[map[string]any]
	sources []ConfigurationSource

	mu        sync.Mutex
	callbacks []func()
}

func newConfiguration(data map[string]any, sources []ConfigurationSource) *configuration {
	c := &configuration{sources: sources}
	c.data.Store(&data)
	return c
}

func (c *configuration) snapshot() map[string]any {
	if p := c.data.Load(); p != nil {
		return *p
	}
	return nil
}

// Get 获取配置值
func (c *configuration) Get(key string) string {
	value := c.lookup(key)
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (c *configuration) GetWithDefault(key, defaultValue string) string {
	if value := c.Get(key); value != "" {
		return value
	}
	return defaultValue
}

// GetInt 获取整数配置值
func (c *configuration) GetInt(key string) (int, error) {
	switch v := c.lookup(key).(type) {
	case nil:
		return 0, fmt.Errorf("config: key %s not found", key)
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("config: cannot convert %v to int", v)
	}
}

// GetBool 获取布尔配置值
func (c *configuration) GetBool(key string) (bool, error) {
	switch v := c.lookup(key).(type) {
	case nil:
		return false, fmt.Errorf("config: key %s not found", key)
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("config: cannot convert %v to bool", v)
	}
}

// GetSection 获取配置节，节不存在时返回空配置
func (c *configuration) GetSection(key string) Configuration {
	if m, ok := c.lookup(key).(map[string]any); ok {
		return newConfiguration(m, nil)
	}
	return newConfiguration(make(map[string]any), nil)
}

// Bind 绑定配置到结构体，key 为空时绑定全部配置
func (c *configuration) Bind(key string, target any) error {
	data := c.lookup(key)
	if data == nil {
		return fmt.Errorf("config: key %s not found", key)
	}

	// 使用 JSON 序列化/反序列化进行绑定
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("config: marshal %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("config: bind %s: %w", key, err)
	}
	return nil
}

// GetAll 返回配置的副本
func (c *configuration) GetAll() map[string]any {
	result := make(map[string]any)
	mergeMaps(result, c.snapshot())
	return result
}

// Reload 重新加载所有配置源
func (c *configuration) Reload() error {
	data, err := loadSources(c.sources)
	if err != nil {
		return err
	}
	c.data.Store(&data)

	c.mu.Lock()
	callbacks := append([]func(){}, c.callbacks...)
	c.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
	return nil
}

func (c *configuration) OnReload(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, fn)
}

// lookup 通过路径获取值（支持 "a:b:c" 或 "a.b.c"），空路径返回全部
func (c *configuration) lookup(path string) any {
	current := any(c.snapshot())
	if path == "" {
		return current
	}
	for _, part := range segments(path) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

// pathCache 缓存路径解析结果
var pathCache sync.Map

func segments(path string) []string {
	if v, ok := pathCache.Load(path); ok {
		return v.([]string)
	}
	parts := strings.Split(strings.ReplaceAll(path, ":", "."), ".")
	pathCache.Store(path, parts)
	return parts
}

// mergeMaps 合并两个 map，嵌套的 map 递归合并
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		if dstMap, ok := dst[k].(map[string]any); ok {
			if srcMap, ok := v.(map[string]any); ok {
				mergeMaps(dstMap, srcMap)
				continue
			}
		}
		if srcMap, ok := v.(map[string]any); ok {
			copied := make(map[string]any, len(srcMap))
			mergeMaps(copied, srcMap)
			v = copied
		}
		dst[k] = v
	}
}

// ConfigurationBuilder 配置构建器
type ConfigurationBuilder struct {
	sources []ConfigurationSource
	mu      sync.RWMutex
}

// ConfigurationSource 配置源接口
type ConfigurationSource interface {
	Load() (map[string]any, error)
	Name() string
}

// NewConfigurationBuilder 创建配置构建器
func NewConfigurationBuilder() *ConfigurationBuilder {
	return &ConfigurationBuilder{
		sources: make([]ConfigurationSource, 0),
	}
}

// Add 添加配置源
func (b *ConfigurationBuilder) Add(source ConfigurationSource) *ConfigurationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = append(b.sources, source)
	return b
}

// AddJsonFile 添加 JSON 文件配置源
func (b *ConfigurationBuilder) AddJsonFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&JsonFileSource{Path: path, Optional: len(optional) > 0 && optional[0]})
}

// AddYamlFile 添加 YAML 文件配置源
func (b *ConfigurationBuilder) AddYamlFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&YamlFileSource{Path: path, Optional: len(optional) > 0 && optional[0]})
}

// AddDotEnvFile 添加 .env 文件配置源，键的映射规则与环境变量相同
func (b *ConfigurationBuilder) AddDotEnvFile(path, prefix string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&DotEnvSource{Path: path, Prefix: prefix, Optional: len(optional) > 0 && optional[0]})
}

// AddEnvironmentVariables 添加环境变量配置源
func (b *ConfigurationBuilder) AddEnvironmentVariables(prefix string) *ConfigurationBuilder {
	return b.Add(&EnvironmentVariableSource{Prefix: prefix})
}

// AddInMemory 添加内存配置源
func (b *ConfigurationBuilder) AddInMemory(data map[string]any) *ConfigurationBuilder {
	return b.Add(&InMemorySource{Data: data})
}

// Build 构建配置
func (b *ConfigurationBuilder) Build() (Configuration, error) {
	return b.BuildReloadable()
}

// BuildReloadable 构建可重载的配置
func (b *ConfigurationBuilder) BuildReloadable() (Reloadable, error) {
	b.mu.RLock()
	sources := append([]ConfigurationSource{}, b.sources...)
	b.mu.RUnlock()

	data, err := loadSources(sources)
	if err != nil {
		return nil, err
	}
	return newConfiguration(data, sources), nil
}

// loadSources 按顺序加载所有配置源（后面的会覆盖前面的）
func loadSources(sources []ConfigurationSource) (map[string]any, error) {
	data := make(map[string]any)
	for _, source := range sources {
		loaded, err := source.Load()
		if err != nil {
			return nil, fmt.Errorf("config: load source %s: %w", source.Name(), err)
		}
		mergeMaps(data, loaded)
	}
	return data, nil
}
