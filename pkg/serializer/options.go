package serializer

import (
	"io"

	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/lk2023060901/model-serializer-go/pkg/util/merr"
	"github.com/lk2023060901/model-serializer-go/pkg/util/typeutil"
)

// 配置中可识别的选项键。
const (
	OptionFields         = "fields"
	OptionExcludes       = "excludes"
	OptionRelations      = "relations"
	OptionExtras         = "extras"
	OptionUseNaturalKeys = "use_natural_keys"
)

// Options 是一次 Serialize 调用的配置，调用期间不会被修改。
type Options struct {
	// Fields 为字段白名单，为空表示全部字段。
	Fields []string
	// Excludes 为字段黑名单，优先于 Fields。
	Excludes []string
	// Relations 为需要展开的关系名及其嵌套选项。
	Relations Relations
	// Extras 为需要附加的属性或无参方法名，按顺序处理。
	Extras []string
	// UseNaturalKeys 为 true 时，未展开的引用优先输出自然键。
	UseNaturalKeys bool
	// Stream 是下游编码器使用的输出目标，核心逻辑只负责透传。
	Stream io.Writer
}

// Relations 将关系名映射到嵌套选项，nil 值表示使用空选项展开。
type Relations map[string]*Options

// ExpandRelations 以列表形式构造 Relations。
func ExpandRelations(names ...string) Relations {
	r := make(Relations, len(names))
	for _, name := range names {
		r[name] = nil
	}
	return r
}

// Has 判断 name 是否在展开集合中。
func (r Relations) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// Nested 返回 name 对应的嵌套选项，缺省为空选项：
// 不再继续展开，输出全部普通字段。
func (r Relations) Nested(name string) *Options {
	if opts := r[name]; opts != nil {
		return opts
	}
	return &Options{}
}

// Names 返回展开集合中的关系名（已排序）。
func (r Relations) Names() []string {
	return typeutil.Sorted(typeutil.NewSet(lo.Keys(r)...))
}

// selection 是 Fields/Excludes 的集合视图，仅在一次调用内使用。
type selection struct {
	fields   typeutil.Set[string]
	excludes typeutil.Set[string]
}

func newSelection(opts *Options) selection {
	return selection{
		fields:   typeutil.NewSet(opts.Fields...),
		excludes: typeutil.NewSet(opts.Excludes...),
	}
}

// excluded 只检查黑名单，反向关系只受它约束。
func (s selection) excluded(name string) bool {
	return s.excludes.Contain(name)
}

// allows 检查普通字段、外键与多对多字段：黑名单优先，其次白名单。
func (s selection) allows(name string) bool {
	if s.excluded(name) {
		return false
	}
	return s.fields.Len() == 0 || s.fields.Contain(name)
}

// ParseOptions 将配置文件中的选项（通常来自 viper）解析为 Options。
//
// relations 既可以是关系名列表，也可以是 "关系名 -> 嵌套选项" 的映射，
// 映射的值为空时表示使用空选项展开。未识别的键会被忽略。
func ParseOptions(raw map[string]any) (*Options, error) {
	opts := &Options{}
	if len(raw) == 0 {
		return opts, nil
	}

	var err error
	if v, ok := raw[OptionFields]; ok {
		if opts.Fields, err = cast.ToStringSliceE(v); err != nil {
			return nil, merr.WrapErrParameterInvalid("string list", v, OptionFields)
		}
	}
	if v, ok := raw[OptionExcludes]; ok {
		if opts.Excludes, err = cast.ToStringSliceE(v); err != nil {
			return nil, merr.WrapErrParameterInvalid("string list", v, OptionExcludes)
		}
	}
	if v, ok := raw[OptionExtras]; ok {
		if opts.Extras, err = cast.ToStringSliceE(v); err != nil {
			return nil, merr.WrapErrParameterInvalid("string list", v, OptionExtras)
		}
	}
	if v, ok := raw[OptionUseNaturalKeys]; ok {
		if opts.UseNaturalKeys, err = cast.ToBoolE(v); err != nil {
			return nil, merr.WrapErrParameterInvalid("bool", v, OptionUseNaturalKeys)
		}
	}
	if v, ok := raw[OptionRelations]; ok {
		if opts.Relations, err = parseRelations(v); err != nil {
			return nil, err
		}
	}
	return opts, nil
}

func parseRelations(v any) (Relations, error) {
	switch v.(type) {
	case nil:
		return nil, nil
	case []any, []string:
		names, err := cast.ToStringSliceE(v)
		if err != nil {
			return nil, merr.WrapErrParameterInvalid("list or mapping", v, OptionRelations)
		}
		return ExpandRelations(names...), nil
	}

	m, err := cast.ToStringMapE(v)
	if err != nil {
		return nil, merr.WrapErrParameterInvalid("list or mapping", v, OptionRelations)
	}
	relations := make(Relations, len(m))
	for name, nested := range m {
		if nested == nil {
			relations[name] = nil
			continue
		}
		nestedRaw, err := cast.ToStringMapE(nested)
		if err != nil {
			return nil, merr.WrapErrParameterInvalid("mapping", nested, OptionRelations+"."+name)
		}
		if relations[name], err = ParseOptions(nestedRaw); err != nil {
			return nil, err
		}
	}
	return relations, nil
}
