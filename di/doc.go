// Package di 基于反射的运行时依赖注入。
//
// Injector 把类型映射到 Resolver，解析时先查自身再查父注入器。
// 结构体通过标记声明需要注入的成员：
//
//	type Handler struct {
//		Users *UserService   `inject:""`
//		Clock di.Lazy[Clock] `inject:""`
//		_     struct{}       `inject:"method=Init"`
//	}
//
//	inj := di.New()
//	_ = di.BindSingleton[*UserService, *UserService](inj)
//	h, err := di.Build[*Handler](inj)
//
// 内置的解析器：
//   - FactoryResolver：每次解析创建新实例
//   - SingletonResolver：首次解析时创建，之后复用
//   - DynamicSingletonResolver：首次解析时调用提供函数
//   - ValueResolver：返回已有的值
//
// 成员的反射信息由 describe 包解析并缓存。注入器不做内部加锁。
package di
