package compressor

import (
	"github.com/lk2023060901/model-serializer-go/pkg/util/merr"
)

// Compressor 抽象了“单次压缩/解压”能力，用于压缩整段导出结果。
//
// 不做全局单例，调用方按需创建具体实现的实例。
type Compressor interface {
	// Name 返回压缩算法名。
	Name() string

	// Compress 将 src 压缩到 dst。
	//
	// dst 可以传入一个可复用的缓冲区（长度可为 0），返回值为压缩后的完整数据。
	Compress(dst, src []byte) (packet []byte, err error)

	// Decompress 将压缩数据 src 解压到 dst，src 必须是 Compress 的输出。
	Decompress(dst, src []byte) (plain []byte, err error)

	// Close 释放内部资源。
	Close()
}

const (
	NameNone = "none"
	NameZstd = "zstd"
)

// New 按名称创建压缩器，名称为空等价于 none。
func New(name string) (Compressor, error) {
	switch name {
	case "", NameNone:
		return NopCompressor{}, nil
	case NameZstd:
		return NewZstdCompressor()
	}
	return nil, merr.WrapErrParameterInvalid(NameNone+"|"+NameZstd, name, "compressor")
}

// NopCompressor 不做任何压缩/解压，直接返回输入内容。
type NopCompressor struct{}

var _ Compressor = NopCompressor{}

func (NopCompressor) Name() string { return NameNone }

func (NopCompressor) Compress(_ []byte, src []byte) ([]byte, error) {
	return src, nil
}

func (NopCompressor) Decompress(_ []byte, src []byte) ([]byte, error) {
	return src, nil
}

func (NopCompressor) Close() {}
