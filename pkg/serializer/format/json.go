package format

import (
	"github.com/lk2023060901/model-serializer-go/internal/json"
	"github.com/lk2023060901/model-serializer-go/pkg/util/merr"
)

// JSONSerializer 使用 internal/json（基于 bytedance/sonic）实现 JSON 编解码。
// 字段顺序由 serializer.Fields 的 MarshalJSON 保证。
type JSONSerializer struct{}

var _ Serializer = (*JSONSerializer)(nil)

func (JSONSerializer) Name() string { return NameJSON }

func (JSONSerializer) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, merr.WrapErrEncodeFailed(NameJSON, err)
	}
	return data, nil
}

func (JSONSerializer) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return merr.WrapErrDecodeFailed(NameJSON, err)
	}
	return nil
}
