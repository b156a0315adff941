package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gocrud/injector/di"
	"github.com/gocrud/injector/internal/scope"
	"github.com/gocrud/injector/logging"
)

// RequestIDHeader 请求 ID 的请求/响应头
const RequestIDHeader = "X-Request-ID"

const (
	injectorKey = "gocrud.injector"
	guardKey    = "gocrud.injector.guard"
)

// RequestID 当前请求的 ID，在请求作用域内可以注入
type RequestID string

// Handler 在请求作用域中创建的处理器。
// 实现类型可以声明 inject 成员，例如 *gin.Context、RequestID 或任意已注册的服务。
type Handler interface {
	Handle(c *gin.Context)
}

// Scope 返回为每个请求创建子注入器的中间件。
//
// 子注入器绑定 *gin.Context、*http.Request、context.Context、RequestID
// 和带请求 ID 的 logging.Logger。请求头没有 X-Request-ID 时生成一个 UUID。
func Scope(guard *scope.Guard) gin.HandlerFunc {
	base := guard.Root().Logger().WithCategory("web")
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		logger := base.WithFields(logging.Field{Key: "request_id", Value: id})

		child, err := guard.Child(func(inj *di.Injector) error {
			for _, err := range []error{
				di.BindValue(inj, c),
				di.BindValue(inj, c.Request),
				di.BindValue[context.Context](inj, c.Request.Context()),
				di.BindValue(inj, RequestID(id)),
				di.BindValue(inj, logger),
			} {
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			logger.Error("failed to create request scope", logging.Field{Key: "error", Value: err.Error()})
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Set(injectorKey, child)
		c.Set(guardKey, guard)
		c.Next()
	}
}

// Injector 返回当前请求的子注入器；没有经过 Scope 中间件时返回 nil
func Injector(c *gin.Context) *di.Injector {
	if v, ok := c.Get(injectorKey); ok {
		return v.(*di.Injector)
	}
	return nil
}

func requestScope(c *gin.Context) (*di.Injector, *scope.Guard, bool) {
	inj := Injector(c)
	g, ok := c.Get(guardKey)
	if inj == nil || !ok {
		_ = c.Error(errors.New("web: request scope not found, Scope middleware is required"))
		c.AbortWithStatus(http.StatusInternalServerError)
		return nil, nil, false
	}
	return inj, g.(*scope.Guard), true
}

// Handle 返回在请求作用域中创建 T 并调用 Handle 的处理函数，需要 Scope 中间件
func Handle[T Handler]() gin.HandlerFunc {
	return func(c *gin.Context) {
		inj, guard, ok := requestScope(c)
		if !ok {
			return
		}
		h, err := scope.Build[T](guard, inj)
		if err != nil {
			inj.Logger().Error("failed to build handler",
				logging.Field{Key: "handler", Value: di.TypeOf[T]().String()},
				logging.Field{Key: "error", Value: err.Error()})
			_ = c.Error(err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		h.Handle(c)
	}
}

// Invoke 返回调用 fn 的处理函数，fn 的参数在锁内从请求作用域解析，fn 在锁外执行。
func Invoke(fn any) gin.HandlerFunc {
	return func(c *gin.Context) {
		inj, guard, ok := requestScope(c)
		if !ok {
			return
		}
		if _, err := scope.Invoke(guard, inj, fn); err != nil {
			_ = c.Error(err)
			if !c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}
	}
}
