package inmem

import (
	"github.com/lk2023060901/model-serializer-go/pkg/model"
)

// Object 是 Schema 的一个实例。
//
// 普通字段按存储属性名保存；外键保存关联的 *Object（nil 表示不存在）；
// 多对多字段保存 []*Object。
type Object struct {
	schema     *Schema
	pk         any
	values     map[string]any
	naturalKey []any
	extras     map[string]any
}

var (
	_ model.Model         = (*Object)(nil)
	_ model.NaturalKeyer  = (*Object)(nil)
	_ model.ExtraProvider = (*Object)(nil)
)

func NewObject(schema *Schema, pk any) *Object {
	return &Object{
		schema: schema,
		pk:     pk,
		values: make(map[string]any),
		extras: make(map[string]any),
	}
}

// Set 设置存储属性 name 的值。
func (o *Object) Set(name string, value any) *Object {
	o.values[name] = value
	return o
}

func (o *Object) Get(name string) (any, bool) {
	v, ok := o.values[name]
	return v, ok
}

// WithNaturalKey 为对象设置自然键。
func (o *Object) WithNaturalKey(key ...any) *Object {
	o.naturalKey = key
	return o
}

// WithExtra 注册一个 extra。value 为 func() any 或 func() (any, error) 时会在读取时调用。
func (o *Object) WithExtra(name string, value any) *Object {
	o.extras[name] = value
	return o
}

func (o *Object) Meta() model.Meta { return o.schema }

func (o *Object) PK() any { return o.pk }

func (o *Object) NaturalKey() ([]any, bool) {
	return o.naturalKey, o.naturalKey != nil
}

func (o *Object) Extra(name string) (any, bool, error) {
	v, ok := o.extras[name]
	if !ok {
		return nil, false, nil
	}
	switch fn := v.(type) {
	case func() any:
		return fn(), true, nil
	case func() (any, error):
		res, err := fn()
		if err != nil {
			return nil, true, err
		}
		return res, true, nil
	}
	return v, true, nil
}
