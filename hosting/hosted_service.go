package hosting

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gocrud/injector/logging"
)

// HostedService 托管服务接口
// 框架会自动在 goroutine 中调用 Start，用户无需自己启动 goroutine
type HostedService interface {
	// Start 启动服务。该方法可以阻塞，直到 context 被取消或发生错误。
	Start(ctx context.Context) error

	// Stop 执行优雅关闭逻辑，必须支持通过 ctx 进行超时控制。
	Stop(ctx context.Context) error
}

// ServiceFunc 把阻塞的函数适配为 HostedService，停止时取消它的 context
type ServiceFunc func(ctx context.Context) error

func (f ServiceFunc) Start(ctx context.Context) error { return f(ctx) }
func (ServiceFunc) Stop(context.Context) error        { return nil }

// HostedServiceManager 托管服务管理器
type HostedServiceManager struct {
	services []HostedService
	logger   logging.Logger
	cancel   context.CancelFunc
	mu       sync.Mutex
	wg       sync.WaitGroup
}

// NewHostedServiceManager 创建托管服务管理器
func NewHostedServiceManager(logger logging.Logger) *HostedServiceManager {
	return &HostedServiceManager{logger: logger}
}

// Add 添加托管服务
func (m *HostedServiceManager) Add(service HostedService) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append(m.services, service)
}

// Len 返回托管服务的数量
func (m *HostedServiceManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.services)
}

// StartAll 启动所有托管服务，每个服务在独立的 goroutine 中运行。
// 返回的通道接收服务的异常退出错误；context 取消导致的退出不算错误。
func (m *HostedServiceManager) StartAll(ctx context.Context) <-chan error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, m.cancel = context.WithCancel(ctx)
	errCh := make(chan error, len(m.services))
	m.logger.Info("Starting hosted services", logging.Field{Key: "count", Value: len(m.services)})

	for i, service := range m.services {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()

			err := service.Start(ctx)
			switch {
			case err == nil:
				m.logger.Debug("Hosted service completed", logging.Field{Key: "index", Value: i})
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				m.logger.Debug("Hosted service stopped (context done)", logging.Field{Key: "index", Value: i})
			default:
				m.logger.Error("Hosted service error",
					logging.Field{Key: "index", Value: i},
					logging.Field{Key: "error", Value: err.Error()})
				errCh <- fmt.Errorf("hosted service %T: %w", service, err)
			}
		}()
	}
	return errCh
}

// StopAll 倒序停止所有托管服务，取消它们的 context 并等待 Start 返回
func (m *HostedServiceManager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	services := append([]HostedService(nil), m.services...)
	cancel := m.cancel
	m.mu.Unlock()

	m.logger.Info("Stopping hosted services", logging.Field{Key: "count", Value: len(services)})

	var errs []error
	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Stop(ctx); err != nil {
			m.logger.Error("Failed to stop hosted service",
				logging.Field{Key: "index", Value: i},
				logging.Field{Key: "error", Value: err.Error()})
			errs = append(errs, err)
		}
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Hosted services stop timeout")
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}
