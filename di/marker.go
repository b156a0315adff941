package di

import (
	"reflect"

	"github.com/gocrud/injector/describe"
)

// Inject 默认的注入标记，标签键为 "inject"。
//
//	type Service struct {
//		Repo  *Repository     `inject:""`
//		Cache di.Lazy[*Cache] `inject:"cache"`
//		_     struct{}        `inject:"method=Init"`
//	}
//
// 标签值原样保存在 Name 中，容器本身不解释它。
type Inject struct {
	Name string
}

func (Inject) TagKey() string { return "inject" }

func (Inject) DecodeTag(value string) (describe.Marker, error) {
	return Inject{Name: value}, nil
}

var injectMarker = reflect.TypeFor[Inject]()
