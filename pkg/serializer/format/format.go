// Package format 把 serializer 生成的记录编码为具体的交换格式。
package format

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/lk2023060901/model-serializer-go/pkg/util/merr"
)

// Serializer 抽象了“记录 <-> 字节流”的编解码能力。
//
// Marshal 接受 []*serializer.Record、*serializer.Record 或任意普通值；
// Unmarshal 只负责还原为通用结构（map / slice / 标量），不会重建模型对象。
type Serializer interface {
	// Name 返回格式名，例如 "json"。
	Name() string

	// Marshal 将 v 编码为字节序列。
	Marshal(v any) ([]byte, error)

	// Unmarshal 将字节序列解码到 v，v 通常为指针。
	Unmarshal(data []byte, v any) error
}

const (
	NameJSON = "json"
	NameYAML = "yaml"
	NameCBOR = "cbor"
)

var (
	mu       sync.RWMutex
	registry = map[string]Serializer{}
)

func init() {
	Register(JSONSerializer{})
	Register(YAMLSerializer{})
	Register(CBORSerializer{})
}

// Register 注册一个格式，同名格式会被覆盖。
func Register(s Serializer) {
	mu.Lock()
	defer mu.Unlock()
	registry[s.Name()] = s
}

// Get 按名称返回格式，名称为空时返回 JSON。
func Get(name string) (Serializer, error) {
	if name == "" {
		name = NameJSON
	}
	mu.RLock()
	defer mu.RUnlock()
	s, ok := registry[name]
	if !ok {
		return nil, merr.WrapErrFormatUnsupported(name, names()...)
	}
	return s, nil
}

// Names 返回已注册的格式名（已排序）。
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	return names()
}

func names() []string {
	res := lo.Keys(registry)
	sort.Strings(res)
	return res
}
