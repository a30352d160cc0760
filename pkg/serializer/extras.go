package serializer

import (
	"reflect"

	"github.com/samber/lo"

	"github.com/lk2023060901/model-serializer-go/pkg/model"
	"github.com/lk2023060901/model-serializer-go/pkg/util/merr"
)

var errorType = reflect.TypeFor[error]()

// resolveExtra 查找对象上名为 name 的属性。
//
// 对象实现 model.ExtraProvider 时完全交给它处理；否则依次尝试 name 与其
// PascalCase 形式（full_name -> FullName），每个名称先找无参方法，再找导出字段，
// 字段为函数时调用它。ok 为 false 表示对象上没有该属性。
func resolveExtra(obj model.Model, name string) (any, bool, error) {
	if p, ok := obj.(model.ExtraProvider); ok {
		return p.Extra(name)
	}
	rv := reflect.ValueOf(obj)
	for _, candidate := range lo.Uniq([]string{name, lo.PascalCase(name)}) {
		if v, ok, err := lookupMember(rv, candidate); ok || err != nil {
			return v, ok, err
		}
	}
	return nil, false, nil
}

func lookupMember(rv reflect.Value, name string) (any, bool, error) {
	if !rv.IsValid() || name == "" {
		return nil, false, nil
	}
	if m := rv.MethodByName(name); m.IsValid() {
		return callExtra(name, m)
	}

	ev := rv
	for ev.Kind() == reflect.Pointer || ev.Kind() == reflect.Interface {
		if ev.IsNil() {
			return nil, false, nil
		}
		ev = ev.Elem()
	}
	if ev.Kind() != reflect.Struct {
		return nil, false, nil
	}
	f := ev.FieldByName(name)
	if !f.IsValid() || !f.CanInterface() {
		return nil, false, nil
	}
	if f.Kind() == reflect.Func {
		if f.IsNil() {
			return nil, true, nil
		}
		return callExtra(name, f)
	}
	return f.Interface(), true, nil
}

// callExtra 调用无参函数，支持 func() T 与 func() (T, error) 两种形式。
func callExtra(name string, fn reflect.Value) (any, bool, error) {
	t := fn.Type()
	if t.NumIn() != 0 {
		return nil, false, merr.WrapErrParameterInvalidMsg("extra %s requires %d arguments", name, t.NumIn())
	}
	out := fn.Call(nil)
	switch {
	case len(out) == 0:
		return nil, true, nil
	case len(out) == 1:
		return out[0].Interface(), true, nil
	case len(out) == 2 && t.Out(1).Implements(errorType):
		if !out[1].IsNil() {
			return nil, false, out[1].Interface().(error)
		}
		return out[0].Interface(), true, nil
	}
	return nil, false, merr.WrapErrParameterInvalidMsg("extra %s returns %d values", name, len(out))
}
