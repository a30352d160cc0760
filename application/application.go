package application

import (
	"context"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/lk2023060901/model-serializer-go/pkg/dumper"
	zlog "github.com/lk2023060901/model-serializer-go/pkg/log"
	"github.com/lk2023060901/model-serializer-go/pkg/metrics"
	"github.com/lk2023060901/model-serializer-go/pkg/model"
	"github.com/lk2023060901/model-serializer-go/pkg/serializer"
	"github.com/lk2023060901/model-serializer-go/pkg/util/merr"
	"github.com/lk2023060901/model-serializer-go/pkg/util/typeutil"
	zviper "github.com/lk2023060901/model-serializer-go/pkg/util/viper"
)

const (
	defaultConfigPath = "./config.yaml"

	envConfigPath = "SERIALIZER_CONFIG_FILE_PATH"

	keyLogging  = "logging"
	keyProfiles = "serializer.profiles"
	keyDump     = "serializer.dump"

	// SerializerLoggerName 是序列化与导出使用的模块 Logger 名。
	SerializerLoggerName = "serializer"
)

// Application 是序列化服务的运行时容器，负责加载配置并管理公共依赖。
type Application struct {
	args     []string
	cfg      *zviper.Config
	loggers  map[string]*zlog.MLogger
	profiles map[string]*serializer.Options
	dump     dumper.Options
}

// New 创建一个读取 os.Args 的 Application。
func New() *Application {
	return NewWithArgs(os.Args[1:])
}

// NewWithArgs 创建一个使用给定命令行参数的 Application。
func NewWithArgs(args []string) *Application {
	return &Application{args: args}
}

// Run 加载配置并初始化日志、指标与序列化配置。
// 配置文件路径的优先级（后者覆盖前者）：
//  1. 默认：./config.yaml
//  2. 环境变量：SERIALIZER_CONFIG_FILE_PATH
//  3. 命令行：--config <path> 或 --config=<path>
func (a *Application) Run() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := a.initLogging(); err != nil {
		return err
	}
	metrics.Register(prometheus.DefaultRegisterer)

	return a.loadSerializerConfig()
}

// Config 返回已加载的配置。
func (a *Application) Config() *zviper.Config {
	return a.cfg
}

// Logger 返回配置中定义的模块 Logger，未定义时退回全局 Logger。
func (a *Application) Logger(name string) *zlog.MLogger {
	if a.loggers == nil {
		return &zlog.MLogger{Logger: zlog.L()}
	}
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return &zlog.MLogger{Logger: zlog.L()}
}

// Profile 返回名为 name 的序列化选项。
func (a *Application) Profile(name string) (*serializer.Options, error) {
	opts, ok := a.profiles[strings.ToLower(name)]
	if !ok {
		return nil, merr.WrapErrParameterInvalidMsg("unknown serializer profile %q, available: %v", name, a.Profiles())
	}
	return opts, nil
}

// Profiles 返回全部序列化选项名（已排序）。
func (a *Application) Profiles() []string {
	return typeutil.Sorted(typeutil.NewSet(lo.Keys(a.profiles)...))
}

// DumpOptions 返回 serializer.dump 下的导出配置。
func (a *Application) DumpOptions() dumper.Options {
	return a.dump
}

// NewDumper 按配置创建 Dumper，并绑定 serializer 模块 Logger。
func (a *Application) NewDumper() (*dumper.Dumper, error) {
	d, err := dumper.New(a.dump)
	if err != nil {
		return nil, err
	}
	d.SetLogger(a.Logger(SerializerLoggerName))
	return d, nil
}

// Dump 使用名为 profile 的选项导出 objects。
func (a *Application) Dump(ctx context.Context, w io.Writer, profile string, objects iter.Seq2[model.Model, error]) (int, error) {
	opts, err := a.Profile(profile)
	if err != nil {
		return 0, err
	}
	d, err := a.NewDumper()
	if err != nil {
		return 0, err
	}
	defer d.Close()
	return d.Dump(ctx, w, objects, opts)
}

// loadConfig 解析配置文件路径并通过 viper 封装加载。
func (a *Application) loadConfig() (*zviper.Config, error) {
	configPath := defaultConfigPath

	if envPath := os.Getenv(envConfigPath); envPath != "" {
		configPath = envPath
	}

	args := a.args
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return nil, merr.WrapErrParameterMissing("--config", "missing value after --config")
			}
			configPath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--config=") {
			val := strings.TrimPrefix(arg, "--config=")
			if val != "" {
				configPath = val
			}
			continue
		}
	}

	cfg := zviper.New()
	if err := cfg.LoadFile(configPath); err != nil {
		return nil, err
	}

	return cfg, nil
}

// initLogging 初始化全局 Logger 与模块 Logger。
func (a *Application) initLogging() error {
	if err := a.initGlobalLoggerFromEnv(); err != nil {
		return err
	}
	if err := a.initModuleLoggersFromConfig(); err != nil {
		return err
	}
	return nil
}

// initGlobalLoggerFromEnv 根据 SERIALIZER_LOG_* 环境变量配置全局 Logger。
//
//   - SERIALIZER_LOG_ENABLE：为 "1"/"true" 时启用输出，其它值视为关闭。
//   - SERIALIZER_LOG_LEVEL：日志级别（默认 info）。
//   - SERIALIZER_LOG_STDOUT：是否输出到标准输出（默认 false）。
//   - SERIALIZER_LOG_FILE_DIR：日志目录。
//   - SERIALIZER_LOG_FILE：日志文件名（为空表示不写文件）。
//   - SERIALIZER_LOG_FORMAT：日志格式（text 或 json，默认 text）。
func (a *Application) initGlobalLoggerFromEnv() error {
	enabled := getenvBool("SERIALIZER_LOG_ENABLE", false)

	cfg := &zlog.Config{
		Level:             getenvDefault("SERIALIZER_LOG_LEVEL", "info"),
		Format:            getenvDefault("SERIALIZER_LOG_FORMAT", "text"),
		DisableTimestamp:  false,
		Stdout:            getenvBool("SERIALIZER_LOG_STDOUT", false),
		DisableCaller:     false,
		DisableStacktrace: false,
		File: zlog.FileLogConfig{
			RootPath: getenvDefault("SERIALIZER_LOG_FILE_DIR", ""),
			Filename: getenvDefault("SERIALIZER_LOG_FILE", ""),
		},
	}

	// 未启用时丢弃所有输出。
	if !enabled {
		cfg.Stdout = false
		cfg.File.Filename = ""
	}

	logger, props, err := zlog.InitLogger(cfg)
	if err != nil {
		return errors.Wrap(err, "init global logger from env")
	}
	zlog.ReplaceGlobals(logger, props)
	return nil
}

// initModuleLoggersFromConfig 根据配置中的 logging 段创建模块 Logger。
//
// 示例：
//
//	logging:
//	  serializer:
//	    level: debug
//	    stdout: true
//	    file:
//	      rootpath: ./logs
//	      filename: serializer.log
func (a *Application) initModuleLoggersFromConfig() error {
	if a.cfg == nil {
		return nil
	}

	raw := make(map[string]zlog.Config)
	if err := a.cfg.UnmarshalKey(keyLogging, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	a.loggers = make(map[string]*zlog.MLogger, len(raw))
	for name, lc := range raw {
		cfgCopy := lc
		logger, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return errors.Wrapf(err, "init module logger %q", name)
		}
		a.loggers[name] = &zlog.MLogger{Logger: logger}
	}

	return nil
}

// loadSerializerConfig 解析 serializer.profiles 与 serializer.dump。
//
// 示例：
//
//	serializer:
//	  dump:
//	    format: yaml
//	    compress: true
//	  profiles:
//	    author:
//	      excludes: [password]
//	      relations:
//	        book_set:
//	          fields: [title]
func (a *Application) loadSerializerConfig() error {
	a.profiles = make(map[string]*serializer.Options)
	if a.cfg == nil {
		return nil
	}

	for name, raw := range a.cfg.GetStringMap(keyProfiles) {
		m, err := cast.ToStringMapE(raw)
		if err != nil {
			return merr.WrapErrParameterInvalid("mapping", raw, keyProfiles+"."+name)
		}
		opts, err := serializer.ParseOptions(m)
		if err != nil {
			return errors.Wrapf(err, "parse serializer profile %q", name)
		}
		a.profiles[name] = opts
	}

	if a.cfg.IsSet(keyDump) {
		if err := a.cfg.UnmarshalKey(keyDump, &a.dump); err != nil {
			return err
		}
	}

	a.Logger(SerializerLoggerName).Info("serializer config loaded",
		zlog.FieldComponent("application"),
		zlog.FieldFormat(a.dump.Format))
	return nil
}

func getenvDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func getenvBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
