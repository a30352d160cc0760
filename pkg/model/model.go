package model

import (
	"context"
	"iter"
)

// FieldKind 是字段描述符的分类。
//
// 序列化器对每个描述符只做一次分类，然后按分类分发到对应的处理函数。
type FieldKind uint8

const (
	// KindDirect 普通（非关系）字段。
	KindDirect FieldKind = iota
	// KindForeignKey 正向外键（包括一对一）。
	KindForeignKey
	// KindManyToMany 正向多对多。
	KindManyToMany
	// KindReverseForeignKey 反向一对多 / 一对一关系，只能通过访问器名访问。
	KindReverseForeignKey
	// KindReverseManyToMany 反向多对多关系。
	KindReverseManyToMany
)

var fieldKindNames = map[FieldKind]string{
	KindDirect:            "direct",
	KindForeignKey:        "fk",
	KindManyToMany:        "m2m",
	KindReverseForeignKey: "reverse_fk",
	KindReverseManyToMany: "reverse_m2m",
}

func (k FieldKind) String() string {
	if name, ok := fieldKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Model 是一个已持久化的模型对象。
type Model interface {
	// Meta 返回对象所属模型的元信息。
	Meta() Meta
	// PK 返回主键值。
	PK() any
}

// Meta 描述一个模型的字段与关系，由数据访问层提供。
type Meta interface {
	// Label 返回模型标识，例如 "app.author"。
	Label() string
	// PKName 返回主键字段名。
	PKName() string
	// LocalFields 按声明顺序返回本模型上的普通字段与外键字段。
	LocalFields() []Field
	// ManyToMany 返回多对多字段。
	ManyToMany() []Field
	// Relations 返回自动创建的反向关系（反向外键与反向多对多）。
	Relations() []Relation
	// Field 按名称查找字段，找不到时返回错误。
	Field(name string) (Field, error)
}

// Field 是单个声明字段的描述符。
type Field interface {
	Name() string
	// AttName 返回存储属性名，外键一般为 "<name>_id"。
	AttName() string
	Kind() FieldKind
	// Serialize 为 false 的字段永远不会被序列化。
	Serialize() bool
	// Value 读取字段在 obj 上的运行时值。
	Value(obj Model) (any, error)
	// ValueString 返回字段值的规范字符串形式。
	ValueString(obj Model) (string, error)
}

// ForeignKey 是 Kind() == KindForeignKey 的字段必须实现的接口。
type ForeignKey interface {
	Field
	// TargetField 返回外键在关联模型上引用的字段名。
	TargetField() string
	// Related 返回关联对象，不存在时返回 nil。
	Related(ctx context.Context, obj Model) (Model, error)
}

// ManyToManyField 是 Kind() == KindManyToMany 的字段必须实现的接口。
type ManyToManyField interface {
	Field
	// AutoCreated 表示中间表由框架自动管理（没有自定义 through 模型）。
	AutoCreated() bool
	Related(ctx context.Context, obj Model) (Manager, error)
}

// Relation 描述一个反向关系。
type Relation interface {
	AccessorName() string
	// Kind 只会是 KindReverseForeignKey 或 KindReverseManyToMany。
	Kind() FieldKind
	// Resolve 通过访问器读取关联值：
	//   - 一对多 / 多对多返回 Manager；
	//   - 一对一返回单个 Model；
	//   - 不存在时返回 nil。
	Resolve(ctx context.Context, obj Model) (any, error)
}

// Manager 是关联对象集合，迭代可能是惰性的。
type Manager interface {
	All(ctx context.Context) iter.Seq2[Model, error]
}

// NaturalKeyer 由支持自然键的模型实现。ok 为 false 表示当前对象不支持。
type NaturalKeyer interface {
	NaturalKey() (key []any, ok bool)
}

// ExtraProvider 允许模型自行解析 extras，优先于反射查找。
// ok 为 false 表示对象没有该属性。
type ExtraProvider interface {
	Extra(name string) (value any, ok bool, err error)
}

// Slice 将对象切片包装为迭代序列。
func Slice[T Model](objs []T) iter.Seq2[Model, error] {
	return func(yield func(Model, error) bool) {
		for _, obj := range objs {
			if !yield(obj, nil) {
				return
			}
		}
	}
}
