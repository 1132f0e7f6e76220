package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Loggers per kategori. Defaultnya no-op sampai InitLoggers dipanggil.
var (
	ErrorLogger    = zap.NewNop()
	AuditLogger    = zap.NewNop()
	RequestLogger  = zap.NewNop()
	SecurityLogger = zap.NewNop()
	SystemLogger   = zap.NewNop()
)

type Options struct {
	Dir    string
	Stdout bool
}

func newLogger(ws zapcore.WriteSyncer, level zapcore.Level) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		ws,
		level,
	)
	return zap.New(core)
}

func sink(opts Options, name string) (zapcore.WriteSyncer, error) {
	if opts.Stdout {
		return zapcore.Lock(os.Stdout), nil
	}
	file, err := os.OpenFile(filepath.Join(opts.Dir, name+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return zapcore.AddSync(file), nil
}

// InitLoggers replaces the no-op loggers with file or stdout backed ones.
func InitLoggers(opts Options) error {
	if !opts.Stdout {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}

	targets := []struct {
		name  string
		level zapcore.Level
		dst   **zap.Logger
	}{
		{"errors", zapcore.ErrorLevel, &ErrorLogger},
		{"audit", zapcore.InfoLevel, &AuditLogger},
		{"request", zapcore.InfoLevel, &RequestLogger},
		{"security", zapcore.WarnLevel, &SecurityLogger},
		{"system", zapcore.InfoLevel, &SystemLogger},
	}
	for _, t := range targets {
		ws, err := sink(opts, t.name)
		if err != nil {
			return fmt.Errorf("cannot create %s logger: %w", t.name, err)
		}
		l := newLogger(ws, t.level)
		if opts.Stdout {
			l = l.With(zap.String("category", t.name))
		}
		*t.dst = l
	}
	return nil
}

func SyncLoggers() {
	_ = ErrorLogger.Sync()
	_ = AuditLogger.Sync()
	_ = RequestLogger.Sync()
	_ = SecurityLogger.Sync()
	_ = SystemLogger.Sync()
}
