package serializer

import (
	"bytes"
	"iter"
	"slices"

	"github.com/lk2023060901/model-serializer-go/internal/json"
	"github.com/lk2023060901/model-serializer-go/pkg/model"
)

// Record 是单个对象的序列化结果：
//
//	{model: "app.author", pk: "1", fields: {...}, extras: {...}}
//
// extras 仅在非空时出现。Record 在 object-end 时生成，之后不再修改。
type Record struct {
	Model  string  `json:"model" yaml:"model"`
	PK     string  `json:"pk" yaml:"pk"`
	Fields *Fields `json:"fields" yaml:"fields"`
	Extras *Fields `json:"extras,omitempty" yaml:"extras,omitempty"`
}

// Fields 是保持插入顺序的字段映射。
type Fields struct {
	keys   []string
	values map[string]any
}

func NewFields() *Fields {
	return &Fields{values: make(map[string]any)}
}

// Set 写入字段；已存在的键保持原位置，只替换值。
func (f *Fields) Set(key string, value any) {
	if f.values == nil {
		f.values = make(map[string]any)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

func (f *Fields) Get(key string) (any, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.values[key]
	return v, ok
}

func (f *Fields) Has(key string) bool {
	_, ok := f.Get(key)
	return ok
}

// Keys 返回按插入顺序排列的键。
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	return slices.Clone(f.keys)
}

func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// All 按插入顺序遍历字段。
func (f *Fields) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if f == nil {
			return
		}
		for _, k := range f.keys {
			if !yield(k, f.values[k]) {
				return
			}
		}
	}
}

// MarshalJSON 按插入顺序输出 JSON 对象。
func (f *Fields) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RecordBuilder 是单个对象的累加器，由 StartObject 创建并在各字段处理函数之间传递，
// 避免不同对象之间共享可变状态。
type RecordBuilder struct {
	obj    model.Model
	fields *Fields
	extras *Fields
}

func NewRecordBuilder(obj model.Model) *RecordBuilder {
	return &RecordBuilder{
		obj:    obj,
		fields: NewFields(),
		extras: NewFields(),
	}
}

// Object 返回正在序列化的对象。
func (b *RecordBuilder) Object() model.Model {
	return b.obj
}

func (b *RecordBuilder) SetField(name string, value any) {
	b.fields.Set(name, value)
}

func (b *RecordBuilder) SetExtra(name string, value any) {
	b.extras.Set(name, value)
}

// Build 生成最终的 Record。
func (b *RecordBuilder) Build() *Record {
	rec := &Record{
		Model:  b.obj.Meta().Label(),
		PK:     toString(b.obj.PK()),
		Fields: b.fields,
	}
	if b.extras.Len() > 0 {
		rec.Extras = b.extras
	}
	return rec
}
