// Package web 基于 Gin 的 Web 主机，每个请求在独立的子注入器中解析依赖。
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/gocrud/injector/di"
	"github.com/gocrud/injector/internal/scope"
	"github.com/gocrud/injector/logging"
)

// Controller 控制器接口，挂载自己的路由
type Controller interface {
	MountRoutes(router gin.IRouter)
}

// Builder Web 主机构建器（基于 Gin）
type Builder struct {
	guard       *scope.Guard
	logger      logging.Logger
	port        int
	engine      *gin.Engine
	controllers []any // 控制器类型 (reflect.Type) 或实例指针
}

// NewBuilder 创建 Web 构建器，请求作用域的父注入器是 inj
func NewBuilder(inj *di.Injector) *Builder {
	gin.SetMode(gin.ReleaseMode)

	guard := scope.NewGuard(inj)
	engine := gin.New()
	engine.Use(gin.Recovery(), Scope(guard))

	return &Builder{
		guard:  guard,
		logger: inj.Logger().WithCategory("web"),
		port:   8080,
		engine: engine,
	}
}

// UsePort 设置端口，0 表示随机端口
func (b *Builder) UsePort(port int) *Builder {
	b.port = port
	return b
}

// Use 使用全局中间件
func (b *Builder) Use(middleware ...gin.HandlerFunc) *Builder {
	b.engine.Use(middleware...)
	return b
}

// AddControllers 注册控制器
// 传入参数可以是：
// 1. 控制器类型 (例如 di.TypeOf[*UserController]()) -> 通过注入器创建，支持构造函数注入
// 2. 控制器实例指针 (例如 &UserController{}) -> 支持成员注入
func (b *Builder) AddControllers(controllers ...any) *Builder {
	b.controllers = append(b.controllers, controllers...)
	return b
}

// Get 注册 GET 路由
func (b *Builder) Get(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.GET(path, handlers...)
	return b
}

// Post 注册 POST 路由
func (b *Builder) Post(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.POST(path, handlers...)
	return b
}

// Group 创建路由组
func (b *Builder) Group(relativePath string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return b.engine.Group(relativePath, handlers...)
}

// Engine 获取 Gin 引擎（用于高级定制）
func (b *Builder) Engine() *gin.Engine {
	return b.engine
}

// Build 解析控制器、挂载路由并构建 Web 主机
func (b *Builder) Build() (*Host, error) {
	for _, item := range b.controllers {
		ctrl, err := b.resolveController(item)
		if err != nil {
			return nil, fmt.Errorf("web: failed to map controllers: %w", err)
		}
		ctrl.MountRoutes(b.engine)
		b.logger.Debug("Mapped controller routes", logging.Field{Key: "controller", Value: fmt.Sprintf("%T", ctrl)})
	}

	return &Host{
		port:   b.port,
		engine: b.engine,
		server: &http.Server{Handler: b.engine},
		logger: b.logger,
	}, nil
}

func (b *Builder) resolveController(item any) (Controller, error) {
	var instance any
	err := b.guard.Do(func() error {
		inj := b.guard.Root()
		if t, ok := item.(reflect.Type); ok {
			v, err := inj.Build(t)
			instance = v
			return err
		}
		instance = item
		return inj.Inject(item)
	})
	if err != nil {
		return nil, err
	}
	ctrl, ok := instance.(Controller)
	if !ok {
		return nil, fmt.Errorf("%T does not implement web.Controller", instance)
	}
	return ctrl, nil
}

// Host Web 主机
type Host struct {
	port   int
	engine *gin.Engine
	server *http.Server
	addr   atomic.Pointer[string]
	logger logging.Logger
}

// Handler 返回 HTTP 处理器（用于测试）
func (h *Host) Handler() http.Handler {
	return h.engine
}

// Address 获取监听地址 (e.g., "[::]:50234")
// 仅在 Start 后有效
func (h *Host) Address() string {
	if addr := h.addr.Load(); addr != nil {
		return *addr
	}
	return ""
}

// Start 启动 Web 主机，阻塞直到服务退出
func (h *Host) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", h.port)
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", addr, err)
	}
	addr = ln.Addr().String()
	h.addr.Store(&addr)
	h.logger.Info("Web host started", logging.Field{Key: "address", Value: addr})

	if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		h.logger.Error("Web host error", logging.Field{Key: "error", Value: err.Error()})
		return err
	}
	return nil
}

// Stop 停止 Web 主机
func (h *Host) Stop(ctx context.Context) error {
	h.logger.Info("Stopping web host")
	if err := h.server.Shutdown(ctx); err != nil {
		h.logger.Error("Failed to shutdown web host gracefully",
			logging.Field{Key: "error", Value: err.Error()})
		return err
	}
	h.logger.Info("Web host stopped")
	return nil
}
