package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig configures the ZapLogger.
type LoggerConfig struct {
	// Output overrides OutputPath when set.
	Output io.Writer

	// OutputPath is the log file. Empty means stderr.
	OutputPath string

	// EvaluationLogPath, when set, receives one JSON line per
	// evaluation. Otherwise evaluations go to the main log at
	// debug level.
	EvaluationLogPath string

	Level  LogLevel
	Fields map[string]any
}

// ZapLogger implements Logger with JSON Lines output through
// go.uber.org/zap.
type ZapLogger struct {
	logger  *zap.Logger
	evalLog *zap.Logger
	closers []io.Closer
}

// NewZapLogger creates a JSON logger from config.
func NewZapLogger(config LoggerConfig) (*ZapLogger, error) {
	l := &ZapLogger{}

	out := config.Output
	if out == nil {
		if config.OutputPath != "" {
			f, err := openLogFile(config.OutputPath)
			if err != nil {
				return nil, err
			}
			l.closers = append(l.closers, f)
			out = f
		} else {
			out = os.Stderr
		}
	}

	level := zapLevel(config.Level)
	l.logger = zap.New(newJSONCore(out, level))

	if len(config.Fields) > 0 {
		fs := make([]zap.Field, 0, len(config.Fields))
		for k, v := range config.Fields {
			fs = append(fs, zap.Any(k, v))
		}
		l.logger = l.logger.With(fs...)
	}

	if config.EvaluationLogPath != "" {
		f, err := openLogFile(config.EvaluationLogPath)
		if err != nil {
			l.closeFiles()
			return nil, err
		}
		l.closers = append(l.closers, f)
		l.evalLog = zap.New(newJSONCore(f, zapcore.DebugLevel))
	}

	return l, nil
}

func newJSONCore(w io.Writer, level zapcore.Level) zapcore.Core {
	enc := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.NanosDurationEncoder,
	}
	return zapcore.NewCore(
		zapcore.NewJSONEncoder(enc),
		zapcore.AddSync(w),
		level,
	)
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf(
			"failed to create log directory: %w", err,
		)
	}
	f, err := os.OpenFile(
		path,
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0644,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to open log file %s: %w", path, err,
		)
	}
	return f, nil
}

func zapLevel(l LogLevel) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}

// Info logs an informational message.
func (l *ZapLogger) Info(msg string, fields ...Field) {
	l.logger.Info(msg, zapFields(fields)...)
}

// Warn logs a warning message.
func (l *ZapLogger) Warn(msg string, fields ...Field) {
	l.logger.Warn(msg, zapFields(fields)...)
}

// Error logs an error message.
func (l *ZapLogger) Error(msg string, fields ...Field) {
	l.logger.Error(msg, zapFields(fields)...)
}

// Debug logs a debug message.
func (l *ZapLogger) Debug(msg string, fields ...Field) {
	l.logger.Debug(msg, zapFields(fields)...)
}

// WithFields returns a child logger with additional default
// fields. The child shares the parent's outputs and does not
// close them.
func (l *ZapLogger) WithFields(fields ...Field) Logger {
	return &ZapLogger{
		logger:  l.logger.With(zapFields(fields)...),
		evalLog: l.evalLog,
	}
}

// LogEvaluation writes an evaluation record.
func (l *ZapLogger) LogEvaluation(entry EvaluationLog) {
	fs := []zap.Field{
		zap.String("predicate", entry.Predicate),
		zap.Bool("passed", entry.Passed),
		zap.Int64("duration_ns", entry.DurationNs),
	}
	if entry.Error != "" {
		fs = append(fs, zap.String("error", entry.Error))
	}

	if l.evalLog != nil {
		l.evalLog.Info("evaluation", fs...)
		return
	}
	l.logger.Debug("evaluation", fs...)
}

// Close flushes the logger and closes any files it opened.
func (l *ZapLogger) Close() error {
	// Sync on a terminal returns EINVAL on some platforms.
	_ = l.logger.Sync()
	if l.evalLog != nil {
		_ = l.evalLog.Sync()
	}
	return l.closeFiles()
}

func (l *ZapLogger) closeFiles() error {
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.closers = nil
	return first
}

// Setup creates a JSON logger writing messages at or above
// level to logsDir/predicates.log and every evaluation to
// logsDir/evaluations.log.
func Setup(logsDir string, level LogLevel) (*ZapLogger, error) {
	return NewZapLogger(LoggerConfig{
		OutputPath:        filepath.Join(logsDir, "predicates.log"),
		EvaluationLogPath: filepath.Join(logsDir, "evaluations.log"),
		Level:             level,
	})
}
