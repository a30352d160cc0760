package inmem

import (
	"context"
	"fmt"

	"github.com/spf13/cast"

	"github.com/lk2023060901/model-serializer-go/pkg/model"
	"github.com/lk2023060901/model-serializer-go/pkg/util/merr"
)

type fieldBase struct {
	name      string
	attName   string
	serialize bool
}

type FieldOption func(*fieldBase)

// Hidden 标记字段不可序列化。
func Hidden() FieldOption {
	return func(f *fieldBase) { f.serialize = false }
}

// WithAttName 修改字段的存储属性名。
func WithAttName(name string) FieldOption {
	return func(f *fieldBase) { f.attName = name }
}

func newFieldBase(name, attName string, opts []FieldOption) fieldBase {
	f := fieldBase{name: name, attName: attName, serialize: true}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

func (f *fieldBase) Name() string { return f.name }

func (f *fieldBase) AttName() string { return f.attName }

func (f *fieldBase) Serialize() bool { return f.serialize }

func (f *fieldBase) raw(obj model.Model) (any, error) {
	o, ok := obj.(*Object)
	if !ok {
		return nil, merr.WrapErrParameterInvalid[any]("*inmem.Object", obj, f.name)
	}
	v, _ := o.Get(f.attName)
	return v, nil
}

// attrField 是普通字段。
type attrField struct {
	fieldBase
	compute func(*Object) (any, error)
}

// Attr 声明一个普通字段，值保存在同名属性上。
func Attr(name string, opts ...FieldOption) model.Field {
	return &attrField{fieldBase: newFieldBase(name, name, opts)}
}

// Computed 声明一个值由函数计算的普通字段。
func Computed(name string, compute func(*Object) (any, error), opts ...FieldOption) model.Field {
	return &attrField{fieldBase: newFieldBase(name, name, opts), compute: compute}
}

func (f *attrField) Kind() model.FieldKind { return model.KindDirect }

func (f *attrField) Value(obj model.Model) (any, error) {
	if f.compute == nil {
		return f.raw(obj)
	}
	o, ok := obj.(*Object)
	if !ok {
		return nil, merr.WrapErrParameterInvalid[any]("*inmem.Object", obj, f.name)
	}
	return f.compute(o)
}

func (f *attrField) ValueString(obj model.Model) (string, error) {
	v, err := f.Value(obj)
	if err != nil {
		return "", err
	}
	return valueString(v), nil
}

func valueString(v any) string {
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

// fkField 是正向外键，对象上保存关联的 *Object。
type fkField struct {
	fieldBase
	target string
}

// FK 声明一个外键，默认引用关联模型的主键，存储属性名为 <name>_id。
func FK(name string, opts ...FieldOption) model.ForeignKey {
	return &fkField{fieldBase: newFieldBase(name, name+"_id", opts)}
}

// FKTo 声明一个引用关联模型 target 字段的外键。
func FKTo(name, target string, opts ...FieldOption) model.ForeignKey {
	return &fkField{fieldBase: newFieldBase(name, name+"_id", opts), target: target}
}

func (f *fkField) Kind() model.FieldKind { return model.KindForeignKey }

func (f *fkField) TargetField() string { return f.target }

func (f *fkField) related(obj model.Model) (*Object, error) {
	o, ok := obj.(*Object)
	if !ok {
		return nil, merr.WrapErrParameterInvalid[any]("*inmem.Object", obj, f.name)
	}
	v, _ := o.Get(f.name)
	if v == nil {
		return nil, nil
	}
	related, ok := v.(*Object)
	if !ok {
		return nil, merr.WrapErrParameterInvalid[any]("*inmem.Object", v, f.name)
	}
	return related, nil
}

func (f *fkField) Related(_ context.Context, obj model.Model) (model.Model, error) {
	related, err := f.related(obj)
	if err != nil || related == nil {
		return nil, err
	}
	return related, nil
}

// Value 返回关联对象的主键，不存在时为 nil。
func (f *fkField) Value(obj model.Model) (any, error) {
	related, err := f.related(obj)
	if err != nil || related == nil {
		return nil, err
	}
	return related.PK(), nil
}

func (f *fkField) ValueString(obj model.Model) (string, error) {
	v, err := f.Value(obj)
	if err != nil || v == nil {
		return "", err
	}
	return valueString(v), nil
}

// m2mField 是正向多对多，对象上保存 []*Object。
type m2mField struct {
	fieldBase
	autoCreated bool
}

// M2M 声明一个中间表自动创建的多对多字段。
func M2M(name string, opts ...FieldOption) model.ManyToManyField {
	return &m2mField{fieldBase: newFieldBase(name, name, opts), autoCreated: true}
}

// M2MThrough 声明一个使用自定义中间模型的多对多字段，序列化时被跳过。
func M2MThrough(name string, opts ...FieldOption) model.ManyToManyField {
	return &m2mField{fieldBase: newFieldBase(name, name, opts)}
}

func (f *m2mField) Kind() model.FieldKind { return model.KindManyToMany }

func (f *m2mField) AutoCreated() bool { return f.autoCreated }

func (f *m2mField) members(obj model.Model) ([]*Object, error) {
	v, err := f.raw(obj)
	if err != nil || v == nil {
		return nil, err
	}
	objs, ok := v.([]*Object)
	if !ok {
		return nil, merr.WrapErrParameterInvalid[any]("[]*inmem.Object", v, f.name)
	}
	return objs, nil
}

func (f *m2mField) Related(_ context.Context, obj model.Model) (model.Manager, error) {
	objs, err := f.members(obj)
	if err != nil {
		return nil, err
	}
	return Objects(objs...), nil
}

// Value 返回关联对象的主键列表。
func (f *m2mField) Value(obj model.Model) (any, error) {
	objs, err := f.members(obj)
	if err != nil {
		return nil, err
	}
	pks := make([]any, 0, len(objs))
	for _, o := range objs {
		pks = append(pks, o.PK())
	}
	return pks, nil
}

func (f *m2mField) ValueString(obj model.Model) (string, error) {
	v, err := f.Value(obj)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}
