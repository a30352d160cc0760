package serializer

import (
	"context"
	"iter"

	"go.uber.org/zap"

	"github.com/lk2023060901/model-serializer-go/pkg/log"
	"github.com/lk2023060901/model-serializer-go/pkg/metrics"
	"github.com/lk2023060901/model-serializer-go/pkg/model"
	"github.com/lk2023060901/model-serializer-go/pkg/util/merr"
)

const extraRateGroup = "serializer.extras"

// Serializer 把模型对象转换为 []*Record。
//
// 每次展开关系都会新建一个 Serializer，只携带该关系的嵌套选项，
// 因此 Serializer 的状态只属于一次 Serialize 调用。
// 同一个 Serializer 不能被并发使用，不同的 Serializer 之间互不影响。
type Serializer struct {
	log.Binder

	opts    *Options
	objects []*Record
}

var _ Handler = (*Serializer)(nil)

func New() *Serializer {
	return &Serializer{}
}

// Serialize 序列化 objects 并返回结果。出错时不返回部分结果。
func (s *Serializer) Serialize(ctx context.Context, objects iter.Seq2[model.Model, error], opts *Options) ([]*Record, error) {
	if err := Walk(ctx, s, objects, opts); err != nil {
		s.objects = nil
		return nil, err
	}
	return s.Value(), nil
}

// Value 返回已累积的记录。
func (s *Serializer) Value() []*Record {
	return s.objects
}

// Serialize 是 New().Serialize 的便捷形式。
func Serialize[T model.Model](ctx context.Context, objects []T, opts *Options) ([]*Record, error) {
	return New().Serialize(ctx, model.Slice(objects), opts)
}

func (s *Serializer) StartSerialization(_ context.Context, opts *Options) error {
	s.opts = opts
	s.objects = make([]*Record, 0)
	return nil
}

func (s *Serializer) EndSerialization(context.Context) error {
	return nil
}

func (s *Serializer) StartObject(_ context.Context, obj model.Model) (*RecordBuilder, error) {
	return NewRecordBuilder(obj), nil
}

func (s *Serializer) EndObject(_ context.Context, b *RecordBuilder) error {
	rec := b.Build()
	s.objects = append(s.objects, rec)
	metrics.SerializedObjects.WithLabelValues(rec.Model).Inc()
	return nil
}

// HandleField 受保护类型原样保存，其它值使用字段的字符串形式。
func (s *Serializer) HandleField(_ context.Context, b *RecordBuilder, field model.Field) error {
	obj := b.Object()
	v, err := field.Value(obj)
	if err != nil {
		return merr.WrapErrFieldValueFailed(obj.Meta().Label(), field.Name(), err)
	}
	if isProtected(v) {
		b.SetField(field.Name(), smartString(v))
		return nil
	}
	str, err := field.ValueString(obj)
	if err != nil {
		return merr.WrapErrFieldValueFailed(obj.Meta().Label(), field.Name(), err)
	}
	b.SetField(field.Name(), str)
	return nil
}

func (s *Serializer) HandleFK(ctx context.Context, b *RecordBuilder, field model.ForeignKey) error {
	obj := b.Object()
	name := field.Name()
	related, err := field.Related(ctx, obj)
	if err != nil {
		return merr.WrapErrFieldValueFailed(obj.Meta().Label(), name, err)
	}
	if isNil(related) {
		b.SetField(name, nil)
		return nil
	}

	if s.opts.Relations.Has(name) {
		rec, err := s.expandOne(ctx, obj, related, name, field.Kind())
		if err != nil {
			return err
		}
		b.SetField(name, rec)
		return nil
	}
	if key, ok := s.naturalKey(related); ok {
		b.SetField(name, key)
		return nil
	}

	target := field.TargetField()
	meta := related.Meta()
	if target == "" || target == meta.PKName() {
		// 引用主键时保存主键原值，不做字符串转换。
		b.SetField(name, related.PK())
		return nil
	}
	targetField, err := meta.Field(target)
	if err != nil {
		return merr.Combine(err, merr.WrapErrFieldNotFound(target, meta.Label()))
	}
	v, err := targetField.Value(related)
	if err != nil {
		return merr.WrapErrFieldValueFailed(meta.Label(), target, err)
	}
	b.SetField(name, smartString(v))
	return nil
}

// HandleM2M 只处理自动创建中间表的多对多字段。
func (s *Serializer) HandleM2M(ctx context.Context, b *RecordBuilder, field model.ManyToManyField) error {
	if !field.AutoCreated() {
		return nil
	}
	obj := b.Object()
	name := field.Name()
	manager, err := field.Related(ctx, obj)
	if err != nil {
		return merr.WrapErrFieldValueFailed(obj.Meta().Label(), name, err)
	}

	if s.opts.Relations.Has(name) {
		records, err := s.expand(ctx, obj, members(ctx, manager), name, field.Kind())
		if err != nil {
			return err
		}
		b.SetField(name, records)
		return nil
	}

	refs := make([]any, 0)
	for related, err := range members(ctx, manager) {
		if err != nil {
			return merr.WrapErrFieldValueFailed(obj.Meta().Label(), name, err)
		}
		if key, ok := s.naturalKey(related); ok {
			refs = append(refs, key)
			continue
		}
		refs = append(refs, smartString(related.PK()))
	}
	b.SetField(name, refs)
	return nil
}

// HandleRelatedFK 只在关系被要求展开时输出：
// 一对多输出记录列表，一对一输出单条记录，不存在时输出 nil。
func (s *Serializer) HandleRelatedFK(ctx context.Context, b *RecordBuilder, rel model.Relation) error {
	name := rel.AccessorName()
	if !s.opts.Relations.Has(name) {
		return nil
	}
	obj := b.Object()
	value, err := rel.Resolve(ctx, obj)
	if err != nil {
		return merr.WrapErrFieldValueFailed(obj.Meta().Label(), name, err)
	}

	switch v := value.(type) {
	case nil:
		b.SetField(name, nil)
	case model.Manager:
		// 集合形式的关系即使没有成员也输出空列表。
		records, err := s.expand(ctx, obj, members(ctx, v), name, rel.Kind())
		if err != nil {
			return err
		}
		b.SetField(name, records)
	case model.Model:
		if isNil(v) {
			b.SetField(name, nil)
			return nil
		}
		rec, err := s.expandOne(ctx, obj, v, name, rel.Kind())
		if err != nil {
			return err
		}
		b.SetField(name, rec)
	default:
		return merr.WrapErrFieldKindMismatch(name, rel.Kind(), value)
	}
	return nil
}

func (s *Serializer) HandleRelatedM2M(ctx context.Context, b *RecordBuilder, rel model.Relation) error {
	name := rel.AccessorName()
	if !s.opts.Relations.Has(name) {
		return nil
	}
	obj := b.Object()
	value, err := rel.Resolve(ctx, obj)
	if err != nil {
		return merr.WrapErrFieldValueFailed(obj.Meta().Label(), name, err)
	}
	var manager model.Manager
	if !isNil(value) {
		var ok bool
		if manager, ok = value.(model.Manager); !ok {
			return merr.WrapErrFieldKindMismatch(name, rel.Kind(), value)
		}
	}
	records, err := s.expand(ctx, obj, members(ctx, manager), name, rel.Kind())
	if err != nil {
		return err
	}
	b.SetField(name, records)
	return nil
}

// HandleExtra 附加属性或无参方法的值，对象上不存在该名称时静默忽略。
func (s *Serializer) HandleExtra(_ context.Context, b *RecordBuilder, name string) error {
	obj := b.Object()
	v, ok, err := resolveExtra(obj, name)
	if err != nil {
		return merr.WrapErrFieldValueFailed(obj.Meta().Label(), name, err)
	}
	if !ok {
		s.Logger().WithRateGroup(extraRateGroup, 1, 60).
			RatedDebug(1, "extra not found, skipped", log.FieldModel(obj.Meta().Label()), log.FieldRelation(name))
		return nil
	}
	b.SetExtra(name, smartString(v))
	return nil
}

// expand 用一个全新的 Serializer 序列化关联对象。
func (s *Serializer) expand(ctx context.Context, owner model.Model, objects iter.Seq2[model.Model, error], name string, kind model.FieldKind) ([]*Record, error) {
	metrics.RelationExpansions.WithLabelValues(kind.String()).Inc()
	s.Logger().Debug("expand relation",
		log.FieldModel(owner.Meta().Label()),
		log.FieldRelation(name),
		zap.Stringer("kind", kind))
	return s.nested().Serialize(ctx, objects, s.opts.Relations.Nested(name))
}

func (s *Serializer) expandOne(ctx context.Context, owner, related model.Model, name string, kind model.FieldKind) (*Record, error) {
	records, err := s.expand(ctx, owner, model.Slice([]model.Model{related}), name, kind)
	if err != nil {
		return nil, err
	}
	return records[0], nil
}

func (s *Serializer) nested() *Serializer {
	child := New()
	child.Inherit(&s.Binder)
	return child
}

// naturalKey 在启用自然键且对象支持时返回其自然键。
func (s *Serializer) naturalKey(obj model.Model) ([]any, bool) {
	if !s.opts.UseNaturalKeys {
		return nil, false
	}
	nk, ok := obj.(model.NaturalKeyer)
	if !ok {
		return nil, false
	}
	return nk.NaturalKey()
}

// members 遍历 manager 中的对象，nil 视为空集合。
func members(ctx context.Context, manager model.Manager) iter.Seq2[model.Model, error] {
	if isNil(manager) {
		return func(func(model.Model, error) bool) {}
	}
	return manager.All(ctx)
}
