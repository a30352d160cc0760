// Package dumper 把模型对象序列化、编码、（可选）压缩后写出到 io.Writer。
//
// Pipeline（写出 Dump）：
//
//	objects --> serializer --> format.Marshal --> [compress?] --> io.Writer
//
// Pipeline（读入 Load）：
//
//	io.Reader --> [decompress?] --> format.Unmarshal --> 通用结构
package dumper

import (
	"context"
	"io"
	"iter"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lk2023060901/model-serializer-go/internal/compressor"
	"github.com/lk2023060901/model-serializer-go/pkg/log"
	"github.com/lk2023060901/model-serializer-go/pkg/metrics"
	"github.com/lk2023060901/model-serializer-go/pkg/model"
	"github.com/lk2023060901/model-serializer-go/pkg/serializer"
	"github.com/lk2023060901/model-serializer-go/pkg/serializer/format"
	"github.com/lk2023060901/model-serializer-go/pkg/util/conc"
	"github.com/lk2023060901/model-serializer-go/pkg/util/logutil"
	"github.com/lk2023060901/model-serializer-go/pkg/util/merr"
	"github.com/lk2023060901/model-serializer-go/pkg/util/retry"
)

const tracerName = "github.com/lk2023060901/model-serializer-go/pkg/dumper"

// Options 用于构造 Dumper。
type Options struct {
	// Format 为输出格式名，默认 json。
	Format string `mapstructure:"format"`
	// Compress 为 true 时使用 zstd 压缩输出。
	Compress bool `mapstructure:"compress"`
	// Parallelism 为 DumpAll 的最大并发数，<= 0 时使用 CPU 核心数。
	Parallelism int `mapstructure:"parallelism"`
	// WriteAttempts 为写出失败时的最大尝试次数，<= 0 时只尝试一次。
	WriteAttempts uint `mapstructure:"write-attempts"`
	// LogLevel 为 Dump 期间上下文日志的级别，留空表示沿用全局级别。
	LogLevel string `mapstructure:"log-level"`
}

// Dumper 组合了序列化器、编码格式与压缩器。
//
// 每次 Dump 都使用独立的 serializer.Serializer，因此同一个 Dumper 可以被并发使用。
type Dumper struct {
	log.Binder

	format        format.Serializer
	compressor    compressor.Compressor
	pool          *conc.Pool[int]
	writeAttempts uint
	logLevel      string
}

// Job 是 DumpAll 中的一个独立导出任务。
type Job struct {
	Writer  io.Writer
	Objects iter.Seq2[model.Model, error]
	Options *serializer.Options
}

// New 创建一个 Dumper，使用完毕后需要调用 Close。
func New(opts Options) (*Dumper, error) {
	f, err := format.Get(opts.Format)
	if err != nil {
		return nil, err
	}
	name := compressor.NameNone
	if opts.Compress {
		name = compressor.NameZstd
	}
	c, err := compressor.New(name)
	if err != nil {
		return nil, err
	}
	pool, err := conc.NewPool[int](opts.Parallelism)
	if err != nil {
		c.Close()
		return nil, err
	}
	return &Dumper{
		format:        f,
		compressor:    c,
		pool:          pool,
		writeAttempts: max(opts.WriteAttempts, 1),
		logLevel:      opts.LogLevel,
	}, nil
}

// Format 返回输出格式名。
func (d *Dumper) Format() string {
	return d.format.Name()
}

// Compressor 返回压缩算法名。
func (d *Dumper) Compressor() string {
	return d.compressor.Name()
}

// Dump 序列化 objects 并写出到 w，返回写出的字节数。
//
// w 为 nil 时使用 opts.Stream；两者都为空时返回 ErrParameterMissing。
func (d *Dumper) Dump(ctx context.Context, w io.Writer, objects iter.Seq2[model.Model, error], opts *serializer.Options) (n int, err error) {
	if w == nil && opts != nil {
		w = opts.Stream
	}
	if w == nil {
		return 0, merr.WrapErrParameterMissing("writer", "dump requires a writer or Options.Stream")
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "Dump", trace.WithAttributes(
		attribute.String("format", d.format.Name()),
		attribute.String("compressor", d.compressor.Name()),
	))
	defer span.End()
	ctx = logutil.WithLevelAndTrace(ctx, d.logLevel)
	logger := log.Ctx(ctx).With(log.FieldFormat(d.format.Name()))

	start := time.Now()
	status := metrics.FailLabel
	defer func() {
		metrics.DumpLatency.WithLabelValues(d.format.Name(), status).
			Observe(float64(time.Since(start).Milliseconds()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Warn("dump failed", zap.Error(err))
		}
	}()

	s := serializer.New()
	s.Inherit(&d.Binder)
	records, err := s.Serialize(ctx, objects, opts)
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int("records", len(records)))

	body, err := d.format.Marshal(records)
	if err != nil {
		return 0, err
	}
	body, err = d.compressor.Compress(nil, body)
	if err != nil {
		return 0, err
	}

	if n, err = d.write(ctx, w, body); err != nil {
		return n, err
	}

	status = metrics.SuccessLabel
	metrics.DumpBytes.WithLabelValues(d.format.Name()).Observe(float64(n))
	span.SetAttributes(attribute.Int("bytes", n))
	logger.Debug("dump finished", zap.Int("records", len(records)), zap.Int("bytes", n))
	return n, nil
}

// write 写出 body，短写或写出错误时从断点继续重试。
func (d *Dumper) write(ctx context.Context, w io.Writer, body []byte) (int, error) {
	written := 0
	err := retry.Do(ctx, func() error {
		n, err := w.Write(body[written:])
		written += n
		if err == nil && written < len(body) {
			err = io.ErrShortWrite
		}
		return merr.WrapErrWriteFailed(err)
	}, retry.Attempts(d.writeAttempts), retry.Sleep(10*time.Millisecond), retry.RetryErr(merr.IsRetryableErr))
	return written, err
}

// DumpAll 在协程池中并发执行互不相关的导出任务，返回每个任务写出的字节数。
// 所有任务都会执行完，返回第一个遇到的错误。
func (d *Dumper) DumpAll(ctx context.Context, jobs ...Job) ([]int, error) {
	futures := lo.Map(jobs, func(job Job, _ int) *conc.Future[int] {
		return d.pool.Submit(func() (int, error) {
			return d.Dump(ctx, job.Writer, job.Objects, job.Options)
		})
	})
	err := conc.AwaitAll(futures...)
	return lo.Map(futures, func(f *conc.Future[int], _ int) int { return f.Value() }), err
}

// Load 读取 Dump 的输出并解码到 v。
func (d *Dumper) Load(r io.Reader, v any) error {
	if r == nil {
		return merr.WrapErrParameterMissing("reader")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	plain, err := d.compressor.Decompress(nil, data)
	if err != nil {
		return err
	}
	return d.format.Unmarshal(plain, v)
}

// Close 释放压缩器与协程池。
func (d *Dumper) Close() {
	d.compressor.Close()
	d.pool.Release()
}
