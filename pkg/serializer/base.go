package serializer

import (
	"context"
	"iter"

	"github.com/lk2023060901/model-serializer-go/pkg/model"
	"github.com/lk2023060901/model-serializer-go/pkg/util/merr"
)

// Handler 是 Walk 在遍历过程中调用的钩子集合。
//
// Walk 只负责迭代协议与字段过滤，字段如何编码完全由 Handler 决定。
// 直接实现 Handler 的类型在编译期即保证所有钩子齐全；
// 嵌入 BaseHandler 的类型未覆盖的字段钩子会在首次调用时返回 merr.ErrNotImplemented。
type Handler interface {
	StartSerialization(ctx context.Context, opts *Options) error
	EndSerialization(ctx context.Context) error

	// StartObject 为 obj 创建累加器，EndObject 负责收尾。
	StartObject(ctx context.Context, obj model.Model) (*RecordBuilder, error)
	EndObject(ctx context.Context, b *RecordBuilder) error

	HandleField(ctx context.Context, b *RecordBuilder, field model.Field) error
	HandleFK(ctx context.Context, b *RecordBuilder, field model.ForeignKey) error
	HandleM2M(ctx context.Context, b *RecordBuilder, field model.ManyToManyField) error
	HandleRelatedFK(ctx context.Context, b *RecordBuilder, rel model.Relation) error
	HandleRelatedM2M(ctx context.Context, b *RecordBuilder, rel model.Relation) error
	HandleExtra(ctx context.Context, b *RecordBuilder, name string) error
}

// BaseHandler 提供生命周期钩子的默认实现，字段钩子均未实现。
type BaseHandler struct{}

func (BaseHandler) StartSerialization(context.Context, *Options) error { return nil }

func (BaseHandler) EndSerialization(context.Context) error { return nil }

func (BaseHandler) StartObject(_ context.Context, obj model.Model) (*RecordBuilder, error) {
	return NewRecordBuilder(obj), nil
}

func (BaseHandler) EndObject(context.Context, *RecordBuilder) error { return nil }

func (BaseHandler) HandleField(context.Context, *RecordBuilder, model.Field) error {
	return merr.WrapErrNotImplemented("HandleField")
}

func (BaseHandler) HandleFK(context.Context, *RecordBuilder, model.ForeignKey) error {
	return merr.WrapErrNotImplemented("HandleFK")
}

func (BaseHandler) HandleM2M(context.Context, *RecordBuilder, model.ManyToManyField) error {
	return merr.WrapErrNotImplemented("HandleM2M")
}

func (BaseHandler) HandleRelatedFK(context.Context, *RecordBuilder, model.Relation) error {
	return merr.WrapErrNotImplemented("HandleRelatedFK")
}

func (BaseHandler) HandleRelatedM2M(context.Context, *RecordBuilder, model.Relation) error {
	return merr.WrapErrNotImplemented("HandleRelatedM2M")
}

func (BaseHandler) HandleExtra(context.Context, *RecordBuilder, string) error {
	return merr.WrapErrNotImplemented("HandleExtra")
}

var _ Handler = BaseHandler{}

// Walk 按固定顺序遍历每个对象的字段并分发给 h：
//
//	StartObject
//	  -> 本地字段（普通字段与外键，按声明顺序，受 Fields/Excludes 约束）
//	  -> 多对多字段（受 Fields/Excludes 约束）
//	  -> 反向外键（只受 Excludes 约束）
//	  -> 反向多对多（只受 Excludes 约束）
//	  -> Extras（按给定顺序）
//	EndObject
//
// 不存在的字段名不会报错，只是匹配不到任何字段。
// 关系图中存在环且调用方要求相互展开时，Walk 不做检测。
func Walk(ctx context.Context, h Handler, objects iter.Seq2[model.Model, error], opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}
	sel := newSelection(opts)

	if err := h.StartSerialization(ctx, opts); err != nil {
		return err
	}
	for obj, err := range objects {
		if err != nil {
			return err
		}
		if err := walkObject(ctx, h, obj, sel, opts.Extras); err != nil {
			return err
		}
	}
	return h.EndSerialization(ctx)
}

func walkObject(ctx context.Context, h Handler, obj model.Model, sel selection, extras []string) error {
	meta := obj.Meta()
	b, err := h.StartObject(ctx, obj)
	if err != nil {
		return err
	}

	for _, field := range meta.LocalFields() {
		if !field.Serialize() || !sel.allows(field.Name()) {
			continue
		}
		if err := dispatchField(ctx, h, b, field); err != nil {
			return err
		}
	}
	for _, field := range meta.ManyToMany() {
		if !field.Serialize() || !sel.allows(field.Name()) {
			continue
		}
		if err := dispatchField(ctx, h, b, field); err != nil {
			return err
		}
	}

	reverseFK, reverseM2M, err := splitRelations(meta.Relations())
	if err != nil {
		return err
	}
	for _, rel := range reverseFK {
		if sel.excluded(rel.AccessorName()) {
			continue
		}
		if err := h.HandleRelatedFK(ctx, b, rel); err != nil {
			return err
		}
	}
	for _, rel := range reverseM2M {
		if sel.excluded(rel.AccessorName()) {
			continue
		}
		if err := h.HandleRelatedM2M(ctx, b, rel); err != nil {
			return err
		}
	}

	for _, name := range extras {
		if err := h.HandleExtra(ctx, b, name); err != nil {
			return err
		}
	}
	return h.EndObject(ctx, b)
}

// dispatchField 根据字段分类选择唯一的处理函数。
func dispatchField(ctx context.Context, h Handler, b *RecordBuilder, field model.Field) error {
	switch kind := field.Kind(); kind {
	case model.KindDirect:
		return h.HandleField(ctx, b, field)
	case model.KindForeignKey:
		fk, ok := field.(model.ForeignKey)
		if !ok {
			return merr.WrapErrFieldKindMismatch(field.Name(), kind, field)
		}
		return h.HandleFK(ctx, b, fk)
	case model.KindManyToMany:
		m2m, ok := field.(model.ManyToManyField)
		if !ok {
			return merr.WrapErrFieldKindMismatch(field.Name(), kind, field)
		}
		return h.HandleM2M(ctx, b, m2m)
	default:
		return merr.WrapErrFieldKindMismatch(field.Name(), kind, field)
	}
}

func splitRelations(relations []model.Relation) (reverseFK, reverseM2M []model.Relation, err error) {
	for _, rel := range relations {
		switch kind := rel.Kind(); kind {
		case model.KindReverseForeignKey:
			reverseFK = append(reverseFK, rel)
		case model.KindReverseManyToMany:
			reverseM2M = append(reverseM2M, rel)
		default:
			return nil, nil, merr.WrapErrRelationKindUnknown(rel.AccessorName(), kind)
		}
	}
	return reverseFK, reverseM2M, nil
}
