package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/gocrud/injector/di"
	"github.com/gocrud/injector/logging"
)

// Register 把配置绑定到注入器，成员可以通过 config.Configuration 注入
func Register(inj *di.Injector, cfg Configuration) error {
	if err := di.BindValue[Configuration](inj, cfg); err != nil {
		return err
	}
	if rc, ok := cfg.(Reloadable); ok {
		return di.BindValue[Reloadable](inj, rc)
	}
	return nil
}

// Provide 把配置节 section 绑定为 T 的各种形式：
//
//   - T、*T、Option[T]：第一次解析时绑定配置节，之后保持不变
//   - OptionMonitor[T]：总是返回最新值，配置重载后自动更新
//   - OptionSnapshot[T]：每次解析得到一份当前值的副本
func Provide[T any](inj *di.Injector, cfg Configuration, section string) error {
	cache := sync.OnceValue(func() *OptionsCache[T] {
		return NewOptionsCache[T](cfg, section)
	})

	bindings := []error{
		di.BindProvider(inj, func() (T, error) {
			return Load[T](cfg, section)
		}),
		di.BindProvider(inj, func() (*T, error) {
			v, err := Load[T](cfg, section)
			if err != nil {
				return nil, err
			}
			return &v, nil
		}),
		di.BindProvider(inj, func() (Option[T], error) {
			v, err := Load[T](cfg, section)
			if err != nil {
				return nil, err
			}
			return NewOption(v), nil
		}),
		di.BindProvider(inj, func() (OptionMonitor[T], error) {
			return NewOptionMonitor(cache()), nil
		}),
		di.Bind[OptionSnapshot[T]](inj, di.ResolverFunc(func(*di.Injector, reflect.Type) (any, error) {
			return NewOptionSnapshot(cache().Snapshot()), nil
		})),
	}
	for _, err := range bindings {
		if err != nil {
			return fmt.Errorf("config: provide %s: %w", section, err)
		}
	}
	return nil
}

// InjectorSettings 注入器配置，默认从 "injector" 节读取
//
//	injector:
//	  level: debug    # trace / debug / info / warn / error / none
//	  output: console # console / json / zap / none
type InjectorSettings struct {
	Level  string `json:"level"`
	Output string `json:"output"`
}

// DefaultInjectorSettings 未配置时使用的设置
var DefaultInjectorSettings = InjectorSettings{Level: "info", Output: "none"}

// NewInjector 按配置创建根注入器：构建日志、绑定 Configuration
func NewInjector(cfg Configuration, opts ...di.Option) (*di.Injector, error) {
	settings := LoadOrDefault(cfg, "injector", DefaultInjectorSettings)

	logger, err := newLogger(settings)
	if err != nil {
		return nil, err
	}
	inj := di.New(append([]di.Option{di.WithLogger(logger)}, opts...)...)
	if err := Register(inj, cfg); err != nil {
		return nil, err
	}
	return inj, nil
}

func newLogger(settings InjectorSettings) (logging.Logger, error) {
	level, err := logging.ParseLogLevel(settings.Level)
	if err != nil {
		return nil, fmt.Errorf("config: injector level: %w", err)
	}

	builder := logging.NewLoggingBuilder().SetMinimumLevel(level)
	switch strings.ToLower(settings.Output) {
	case "", "none":
		return logging.Nop(), nil
	case "console":
		builder.AddConsole()
	case "json":
		builder.AddWriter(os.Stdout, logging.NewJsonFormatter())
	case "zap":
		builder.AddZap(nil)
	default:
		return nil, fmt.Errorf("config: unknown injector output %q", settings.Output)
	}

	factory, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return factory.CreateLogger("di"), nil
}
