package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// JsonFileSource JSON 文件配置源
type JsonFileSource struct {
	Path     string
	Optional bool
}

func (s *JsonFileSource) Name() string {
	return fmt.Sprintf("JsonFile(%s)", s.Path)
}

func (s *JsonFileSource) Load() (map[string]any, error) {
	data, err := readOptional(s.Path, s.Optional)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return make(map[string]any), nil
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return result, nil
}

// YamlFileSource YAML 文件配置源
type YamlFileSource struct {
	Path     string
	Optional bool
}

func (s *YamlFileSource) Name() string {
	return fmt.Sprintf("YamlFile(%s)", s.Path)
}

func (s *YamlFileSource) Load() (map[string]any, error) {
	data, err := readOptional(s.Path, s.Optional)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return make(map[string]any), nil
	}
	var result map[string]any
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if result == nil {
		result = make(map[string]any)
	}
	return result, nil
}

// readOptional 读取文件，可选文件不存在时返回 nil, nil
func readOptional(path string, optional bool) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// EnvironmentVariableSource 环境变量配置源
//
// 去掉前缀后键转为小写，"_" 作为层级分隔符：APP_SERVER_PORT -> server:port。
type EnvironmentVariableSource struct {
	Prefix string
}

func (s *EnvironmentVariableSource) Name() string {
	return fmt.Sprintf("EnvironmentVariables(%s)", s.Prefix)
}

func (s *EnvironmentVariableSource) Load() (map[string]any, error) {
	result := make(map[string]any)
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if path, ok := envPath(s.Prefix, key); ok {
			setNestedValue(result, path, value)
		}
	}
	return result, nil
}

// DotEnvSource .env 文件配置源，文件内容不会写入进程环境
type DotEnvSource struct {
	Path     string
	Prefix   string
	Optional bool
}

func (s *DotEnvSource) Name() string {
	return fmt.Sprintf("DotEnv(%s)", s.Path)
}

func (s *DotEnvSource) Load() (map[string]any, error) {
	if _, err := os.Stat(s.Path); err != nil && s.Optional && errors.Is(err, fs.ErrNotExist) {
		return make(map[string]any), nil
	}
	values, err := godotenv.Read(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dotenv: %w", err)
	}
	result := make(map[string]any)
	for key, value := range values {
		if path, ok := envPath(s.Prefix, key); ok {
			setNestedValue(result, path, value)
		}
	}
	return result, nil
}

func envPath(prefix, key string) (string, bool) {
	if prefix != "" {
		if !strings.HasPrefix(key, prefix) {
			return "", false
		}
		key = strings.TrimPrefix(key, prefix)
	}
	if key == "" {
		return "", false
	}
	return strings.ReplaceAll(strings.ToLower(key), "_", ":"), true
}

// InMemorySource 内存配置源
type InMemorySource struct {
	Data map[string]any
}

func (s *InMemorySource) Name() string {
	return "InMemory"
}

func (s *InMemorySource) Load() (map[string]any, error) {
	result := make(map[string]any)
	mergeMaps(result, s.Data)
	return result, nil
}

// setNestedValue 按 ":" 分隔的路径设置值，字符串会尝试转换为整数、浮点数或布尔值
func setNestedValue(data map[string]any, path string, value any) {
	parts := strings.Split(path, ":")
	current := data
	for _, part := range parts[:len(parts)-1] {
		if _, exists := current[part]; !exists {
			current[part] = make(map[string]any)
		}
		m, ok := current[part].(map[string]any)
		if !ok {
			return
		}
		current = m
	}

	if s, ok := value.(string); ok {
		if i, err := strconv.Atoi(s); err == nil {
			value = i
		} else if f, err := strconv.ParseFloat(s, 64); err == nil {
			value = f
		} else if b, err := strconv.ParseBool(s); err == nil {
			value = b
		}
	}
	current[parts[len(parts)-1]] = value
}

// EtcdOptions etcd 配置选项
type EtcdOptions struct {
	Endpoints   []string      // etcd 服务器地址列表
	Username    string        // 用户名（可选）
	Password    string        // 密码（可选）
	Prefix      string        // 键前缀（可选）
	Timeout     time.Duration // 读取超时时间（默认 5 秒）
	DialTimeout time.Duration // 拨号超时时间（默认 5 秒）
}

// AddEtcd 添加 etcd 配置源
func (b *ConfigurationBuilder) AddEtcd(opts EtcdOptions) *ConfigurationBuilder {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return b.Add(&EtcdSource{Options: opts})
}

// EtcdSource etcd 配置源，键中的 "/" 作为层级分隔符，值可以是 JSON 或 YAML
type EtcdSource struct {
	Options EtcdOptions
	client  *clientv3.Client // 外部提供的客户端，不负责关闭
}

// NewEtcdSource 使用已有的客户端创建配置源
func NewEtcdSource(client *clientv3.Client, prefix string) *EtcdSource {
	return &EtcdSource{
		Options: EtcdOptions{Endpoints: client.Endpoints(), Prefix: prefix, Timeout: 5 * time.Second},
		client:  client,
	}
}

func (s *EtcdSource) Name() string {
	return fmt.Sprintf("Etcd(%v)", s.Options.Endpoints)
}

func (s *EtcdSource) Load() (map[string]any, error) {
	cli := s.client
	if cli == nil {
		var err error
		cli, err = clientv3.New(clientv3.Config{
			Endpoints:   s.Options.Endpoints,
			Username:    s.Options.Username,
			Password:    s.Options.Password,
			DialTimeout: s.Options.DialTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create etcd client: %w", err)
		}
		defer cli.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.Options.Timeout)
	defer cancel()

	prefix := s.Options.Prefix
	if prefix == "" {
		prefix = "/"
	}
	resp, err := cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to get config from etcd: %w", err)
	}

	result := make(map[string]any)
	for _, kv := range resp.Kvs {
		key := strings.TrimPrefix(strings.TrimPrefix(string(kv.Key), s.Options.Prefix), "/")
		if key == "" {
			continue
		}
		setNestedValue(result, strings.ReplaceAll(key, "/", ":"), decodeEtcdValue(kv.Value))
	}
	return result, nil
}

// decodeEtcdValue 依次尝试 JSON、YAML，都失败时作为字符串
func decodeEtcdValue(raw []byte) any {
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	if err := yaml.Unmarshal(raw, &v); err == nil && v != nil {
		return v
	}
	return string(raw)
}
