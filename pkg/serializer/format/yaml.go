package format

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/lk2023060901/model-serializer-go/pkg/serializer"
	"github.com/lk2023060901/model-serializer-go/pkg/util/merr"
)

// YAMLSerializer 使用 gopkg.in/yaml.v3 编码。
//
// 记录先被转换为 yaml.Node 树，mapping 节点按字段插入顺序排列。
type YAMLSerializer struct{}

var _ Serializer = (*YAMLSerializer)(nil)

func (YAMLSerializer) Name() string { return NameYAML }

func (YAMLSerializer) Marshal(v any) ([]byte, error) {
	node, err := toNode(v)
	if err != nil {
		return nil, merr.WrapErrEncodeFailed(NameYAML, err)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, merr.WrapErrEncodeFailed(NameYAML, err)
	}
	if err := enc.Close(); err != nil {
		return nil, merr.WrapErrEncodeFailed(NameYAML, err)
	}
	return buf.Bytes(), nil
}

func (YAMLSerializer) Unmarshal(data []byte, v any) error {
	if err := yaml.Unmarshal(data, v); err != nil {
		return merr.WrapErrDecodeFailed(NameYAML, err)
	}
	return nil
}

func toNode(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case *serializer.Record:
		if t == nil {
			return scalarNode(nil)
		}
		return recordNode(t)
	case []*serializer.Record:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, rec := range t {
			n, err := toNode(rec)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	case *serializer.Fields:
		if t == nil {
			return scalarNode(nil)
		}
		return fieldsNode(t)
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range t {
			n, err := toNode(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	}
	return scalarNode(v)
}

func recordNode(rec *serializer.Record) (*yaml.Node, error) {
	m := &yaml.Node{Kind: yaml.MappingNode}
	appendPair := func(key string, value any) error {
		n, err := toNode(value)
		if err != nil {
			return err
		}
		m.Content = append(m.Content, keyNode(key), n)
		return nil
	}
	if err := appendPair("model", rec.Model); err != nil {
		return nil, err
	}
	if err := appendPair("pk", rec.PK); err != nil {
		return nil, err
	}
	if err := appendPair("fields", rec.Fields); err != nil {
		return nil, err
	}
	if rec.Extras.Len() > 0 {
		if err := appendPair("extras", rec.Extras); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func fieldsNode(f *serializer.Fields) (*yaml.Node, error) {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for k, v := range f.All() {
		n, err := toNode(v)
		if err != nil {
			return nil, err
		}
		m.Content = append(m.Content, keyNode(k), n)
	}
	return m, nil
}

func keyNode(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}

// scalarNode 编码单个值。yaml.v3 遇到无法编码的类型时会 panic，这里转换为错误返回。
func scalarNode(v any) (n *yaml.Node, err error) {
	defer func() {
		if x := recover(); x != nil {
			n, err = nil, errors.Newf("yaml: cannot encode %T: %v", v, x)
		}
	}()
	n = &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}
