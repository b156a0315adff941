// Package chiweb 为 chi 路由提供请求作用域的注入，用法与 web 包的 Gin 版本一致。
package chiweb

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/gocrud/injector/di"
	"github.com/gocrud/injector/internal/scope"
	"github.com/gocrud/injector/logging"
)

// RequestIDHeader 请求 ID 的请求/响应头
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{ name string }

var (
	injectorKey = &ctxKey{"injector"}
	guardKey    = &ctxKey{"guard"}
)

// RequestID 当前请求的 ID，在请求作用域内可以注入
type RequestID string

// Params 当前请求的路由参数
type Params struct {
	r *http.Request
}

// Get 返回名为 key 的路由参数
func (p Params) Get(key string) string { return chi.URLParam(p.r, key) }

// Handler 在请求作用域中创建的处理器
type Handler interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// Router 带请求作用域注入的 chi 路由
type Router struct {
	chi.Router
	guard *scope.Guard
}

// New 创建路由，请求作用域的父注入器是 inj
func New(inj *di.Injector) *Router {
	guard := scope.NewGuard(inj)
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(Scope(guard))
	return &Router{Router: r, guard: guard}
}

// Scope 返回为每个请求创建子注入器的中间件。
//
// 子注入器绑定 http.ResponseWriter、*http.Request、context.Context、RequestID、
// Params 和带请求 ID 的 logging.Logger。
func Scope(guard *scope.Guard) func(http.Handler) http.Handler {
	base := guard.Root().Logger().WithCategory("web")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			logger := base.WithFields(logging.Field{Key: "request_id", Value: id})

			var child *di.Injector
			ctx := context.WithValue(r.Context(), guardKey, guard)
			ctx = context.WithValue(ctx, injectorKey, &child)
			r = r.WithContext(ctx)

			created, err := guard.Child(func(inj *di.Injector) error {
				return errors.Join(
					di.BindValue(inj, w),
					di.BindValue(inj, r),
					di.BindValue(inj, ctx),
					di.BindValue(inj, RequestID(id)),
					di.BindValue(inj, Params{r: r}),
					di.BindValue(inj, logger),
				)
			})
			if err != nil {
				logger.Error("failed to create request scope", logging.Field{Key: "error", Value: err.Error()})
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			child = created
			next.ServeHTTP(w, r)
		})
	}
}

// Injector 返回当前请求的子注入器；没有经过 Scope 中间件时返回 nil
func Injector(r *http.Request) *di.Injector {
	if p, ok := r.Context().Value(injectorKey).(**di.Injector); ok {
		return *p
	}
	return nil
}

func requestScope(w http.ResponseWriter, r *http.Request) (*di.Injector, *scope.Guard, bool) {
	inj := Injector(r)
	guard, ok := r.Context().Value(guardKey).(*scope.Guard)
	if inj == nil || !ok {
		http.Error(w, "request scope not found", http.StatusInternalServerError)
		return nil, nil, false
	}
	return inj, guard, true
}

// Handle 返回在请求作用域中创建 T 并调用 ServeHTTP 的处理函数
func Handle[T Handler]() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inj, guard, ok := requestScope(w, r)
		if !ok {
			return
		}
		h, err := scope.Build[T](guard, inj)
		if err != nil {
			inj.Logger().Error("failed to build handler",
				logging.Field{Key: "handler", Value: di.TypeOf[T]().String()},
				logging.Field{Key: "error", Value: err.Error()})
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		h.ServeHTTP(w, r)
	}
}

// Get 注册使用请求作用域处理器 T 的 GET 路由
func Get[T Handler](r chi.Router, pattern string) {
	r.Get(pattern, Handle[T]())
}

// Post 注册使用请求作用域处理器 T 的 POST 路由
func Post[T Handler](r chi.Router, pattern string) {
	r.Post(pattern, Handle[T]())
}
