package chiweb_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/injector/di"
	"github.com/gocrud/injector/web/chiweb"
)

type greeter struct {
	Prefix string
}

type helloHandler struct {
	Greeter *greeter            `inject:""`
	Params  chiweb.Params       `inject:""`
	ID      chiweb.RequestID    `inject:""`
	Ctx     context.Context     `inject:""`
	Req     *http.Request       `inject:""`
	Writer  http.ResponseWriter `inject:""`
}

func (h *helloHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Req != r || h.Ctx != r.Context() {
		http.Error(w, "request mismatch", http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(h.Writer, "%s %s (%s)", h.Greeter.Prefix, h.Params.Get("name"), h.ID)
}

func newRouter(t *testing.T) (*di.Injector, *chiweb.Router) {
	t.Helper()
	inj := di.New()
	require.NoError(t, di.BindValue(inj, &greeter{Prefix: "hello"}))
	return inj, chiweb.New(inj)
}

func TestRequestScopedHandler(t *testing.T) {
	inj, r := newRouter(t)
	chiweb.Get[*helloHandler](r, "/hello/{name}")

	req := httptest.NewRequest(http.MethodGet, "/hello/gopher", nil)
	req.Header.Set(chiweb.RequestIDHeader, "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello gopher (abc)", w.Body.String())
	assert.Equal(t, "abc", w.Header().Get(chiweb.RequestIDHeader))

	// 请求作用域的绑定只存在于子注入器
	assert.False(t, inj.Has(di.TypeOf[chiweb.RequestID]()))
}

func TestGeneratedRequestID(t *testing.T) {
	_, r := newRouter(t)
	var seen *di.Injector
	r.Get("/id", func(w http.ResponseWriter, req *http.Request) {
		seen = chiweb.Injector(req)
		id, err := di.Resolve[chiweb.RequestID](seen)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, id)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))

	require.NotNil(t, seen)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(chiweb.RequestIDHeader))
}

func TestHandleWithoutScope(t *testing.T) {
	w := httptest.NewRecorder()
	chiweb.Handle[*helloHandler]().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Nil(t, chiweb.Injector(httptest.NewRequest(http.MethodGet, "/", nil)))
}
