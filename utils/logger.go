package utils

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/cppla/board/config"
)

var (
	// Logger is the process wide structured logger. It discards everything until InitLogger runs.
	Logger = zap.NewNop()
	// Sugar is Logger with printf style helpers.
	Sugar = Logger.Sugar()
)

// Rotation describes how a log file is rolled.
type Rotation struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// RotationFrom takes the rotation settings of cfg for the file at path.
func RotationFrom(cfg config.AppConfig, path string) Rotation {
	return Rotation{
		Path:       path,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	}
}

// InitLogger writes JSON logs to stdout and, when LogPath is set, to a rolling file.
func InitLogger(cfg config.AppConfig) error {
	level := levelOf(cfg.LogLevel)
	cores := []zapcore.Core{
		zapcore.NewCore(jsonEncoder(), zapcore.Lock(os.Stdout), level),
	}
	if cfg.LogPath != "" {
		core, err := fileCore(RotationFrom(cfg, cfg.LogPath), level)
		if err != nil {
			return err
		}
		cores = append(cores, core)
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if level == zapcore.DebugLevel {
		opts = append(opts, zap.Development())
	}
	Logger = zap.New(zapcore.NewTee(cores...), opts...)
	Sugar = Logger.Sugar()
	return nil
}

// NewFileLogger returns a logger that only writes to the rolling file r.
func NewFileLogger(r Rotation, levelName string) (*zap.Logger, error) {
	core, err := fileCore(r, levelOf(levelName))
	if err != nil {
		return nil, err
	}
	return zap.New(core), nil
}

func fileCore(r Rotation, level zapcore.Level) (zapcore.Core, error) {
	if err := os.MkdirAll(filepath.Dir(r.Path), 0o755); err != nil {
		return nil, err
	}
	sink := &lumberjack.Logger{
		Filename:   r.Path,
		MaxSize:    r.MaxSizeMB,
		MaxBackups: r.MaxBackups,
		MaxAge:     r.MaxAgeDays,
		Compress:   r.Compress,
	}
	return zapcore.NewCore(jsonEncoder(), zapcore.AddSync(sink), level), nil
}

func jsonEncoder() zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	ec.EncodeDuration = zapcore.SecondsDurationEncoder
	return zapcore.NewJSONEncoder(ec)
}

func levelOf(name string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(name))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
