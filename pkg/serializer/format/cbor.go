package format

import (
	"encoding/json"
	"math/big"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/lk2023060901/model-serializer-go/pkg/serializer"
	"github.com/lk2023060901/model-serializer-go/pkg/util/merr"
)

// encMode 使用 Core Deterministic Encoding：map 键排序、整数最短编码，
// 同样的记录总是得到同样的字节。
var encMode cbor.EncMode

// decMode 解码到 any 时使用 map[string]any。
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("format: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("format: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBORSerializer 使用 fxamacker/cbor/v2 编码。CBOR 的 map 键按确定性规则排序，
// 不保留字段插入顺序。
type CBORSerializer struct{}

var _ Serializer = (*CBORSerializer)(nil)

func (CBORSerializer) Name() string { return NameCBOR }

func (CBORSerializer) Marshal(v any) ([]byte, error) {
	data, err := encMode.Marshal(plain(v))
	if err != nil {
		return nil, merr.WrapErrEncodeFailed(NameCBOR, err)
	}
	return data, nil
}

func (CBORSerializer) Unmarshal(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return merr.WrapErrDecodeFailed(NameCBOR, err)
	}
	return nil
}

// plain 把记录转换为 map / slice 组成的普通结构，
// 并把 CBOR 无法直接表示的定点小数转换为字符串。
func plain(v any) any {
	switch t := v.(type) {
	case *serializer.Record:
		if t == nil {
			return nil
		}
		m := map[string]any{
			"model":  t.Model,
			"pk":     t.PK,
			"fields": plain(t.Fields),
		}
		if t.Extras.Len() > 0 {
			m["extras"] = plain(t.Extras)
		}
		return m
	case []*serializer.Record:
		res := make([]any, 0, len(t))
		for _, rec := range t {
			res = append(res, plain(rec))
		}
		return res
	case *serializer.Fields:
		if t == nil {
			return nil
		}
		m := make(map[string]any, t.Len())
		for k, item := range t.All() {
			m[k] = plain(item)
		}
		return m
	case []any:
		res := make([]any, 0, len(t))
		for _, item := range t {
			res = append(res, plain(item))
		}
		return res
	case *big.Rat:
		return t.RatString()
	case *big.Float:
		return t.Text('g', -1)
	case json.Number:
		return t.String()
	}
	return v
}
