package log

import (
	"go.uber.org/zap"
)

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
	FieldNameModel     = "model"
	FieldNameRelation  = "relation"
	FieldNameFormat    = "format"
)

// FieldModule 返回一个包含模块名的 zap 字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent 返回一个包含组件名的 zap 字段。
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldModel 返回一个包含模型标识（如 app.author）的 zap 字段。
func FieldModel(label string) zap.Field {
	return zap.String(FieldNameModel, label)
}

// FieldRelation 返回一个包含关系名的 zap 字段。
func FieldRelation(name string) zap.Field {
	return zap.String(FieldNameRelation, name)
}

// FieldFormat 返回一个包含输出格式名的 zap 字段。
func FieldFormat(format string) zap.Field {
	return zap.String(FieldNameFormat, format)
}
