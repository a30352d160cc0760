// Package inmem 是 model 包各能力接口的内存实现，
// 用于测试与示例，不涉及任何持久化。
package inmem

import (
	"slices"

	"github.com/lk2023060901/model-serializer-go/pkg/model"
	"github.com/lk2023060901/model-serializer-go/pkg/util/merr"
)

const defaultPKName = "id"

// Schema 描述一个内存模型，实现 model.Meta。
type Schema struct {
	label     string
	pkName    string
	local     []model.Field
	m2m       []model.Field
	relations []model.Relation
}

var _ model.Meta = (*Schema)(nil)

// NewSchema 创建一个主键名为 id 的模型。
func NewSchema(label string) *Schema {
	return &Schema{label: label, pkName: defaultPKName}
}

// WithPK 修改主键字段名。
func (s *Schema) WithPK(name string) *Schema {
	s.pkName = name
	return s
}

// AddLocal 按声明顺序追加普通字段或外键字段。
func (s *Schema) AddLocal(fields ...model.Field) *Schema {
	s.local = append(s.local, fields...)
	return s
}

// AddM2M 追加多对多字段。
func (s *Schema) AddM2M(fields ...model.Field) *Schema {
	s.m2m = append(s.m2m, fields...)
	return s
}

// AddRelation 追加反向关系。
func (s *Schema) AddRelation(relations ...model.Relation) *Schema {
	s.relations = append(s.relations, relations...)
	return s
}

func (s *Schema) Label() string { return s.label }

func (s *Schema) PKName() string { return s.pkName }

func (s *Schema) LocalFields() []model.Field { return slices.Clone(s.local) }

func (s *Schema) ManyToMany() []model.Field { return slices.Clone(s.m2m) }

func (s *Schema) Relations() []model.Relation { return slices.Clone(s.relations) }

func (s *Schema) Field(name string) (model.Field, error) {
	for _, f := range s.local {
		if f.Name() == name {
			return f, nil
		}
	}
	for _, f := range s.m2m {
		if f.Name() == name {
			return f, nil
		}
	}
	return nil, merr.WrapErrFieldNotFound(name, s.label)
}
