package monitoring

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide structured logger. It starts as a no-op so
// packages can log before Initialize is called (tests never need to).
var Logger = zap.NewNop().Sugar()

// Logf is the package-level diagnostic logger used by the pipeline packages.
// It may be replaced by SetLogger. Tests or production code can redirect or
// mute it.
var Logf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	Logger.Infof(format, v...)
}

// Debugf carries per-frame notes such as dropped boxes. It is muted unless
// Initialize is called with Debug set.
var Debugf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	Logger.Debugf(format, v...)
}

// Options controls Initialize.
type Options struct {
	// JSON selects zap's production JSON encoder instead of the console encoder.
	JSON bool
	// Debug lowers the level to debug so Debugf output is emitted.
	Debug bool
}

// Initialize builds the zap logger and points Logf and Debugf at it.
func Initialize(opts Options) error {
	level := zap.InfoLevel
	if opts.Debug {
		level = zap.DebugLevel
	}

	var zl *zap.Logger
	if opts.JSON {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		var err error
		zl, err = cfg.Build()
		if err != nil {
			return err
		}
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		zl = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.AddSync(os.Stderr),
			level,
		))
	}

	Logger = zl.Sugar()
	Logf = Logger.Infof
	Debugf = Logger.Debugf
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Logger.Sync()
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
// Debugf follows the same function so tests capture both streams.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		Debugf = Logf
		return
	}
	Logf = f
	Debugf = f
}
