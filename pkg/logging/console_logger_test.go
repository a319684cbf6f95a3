package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(Logger)
		level string
	}{
		{"info", func(l Logger) { l.Info("msg") }, "INFO"},
		{"warn", func(l Logger) { l.Warn("msg") }, "WARN"},
		{"error", func(l Logger) { l.Error("msg") }, "ERROR"},
		{"debug", func(l Logger) { l.Debug("msg") }, "DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewConsoleLoggerTo(&buf, true))
			assert.Contains(t, buf.String(), tt.level)
			assert.Contains(t, buf.String(), "msg")
		})
	}
}

func TestConsoleLogger_Debug_NotVerbose(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLoggerTo(&buf, false)
	l.Debug("quiet")
	l.LogEvaluation(EvaluationLog{Predicate: "is-string"})
	assert.Empty(t, buf.String())
}

func TestConsoleLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLoggerTo(&buf, false)

	child := l.WithFields(StringField("bank", "shapes"))
	child.Info("loaded", IntField("count", 3))

	out := buf.String()
	assert.Contains(t, out, "bank=shapes")
	assert.Contains(t, out, "count=3")
}

func TestConsoleLogger_LogEvaluation_Verbose(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLoggerTo(&buf, true)

	l.LogEvaluation(EvaluationLog{
		Predicate: "has-length",
		Passed:    true,
	})

	out := buf.String()
	assert.Contains(t, out, "predicate=has-length")
	assert.Contains(t, out, "passed=true")
	assert.NoError(t, l.Close())
}

func TestLeveledConsoleLogger(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  []string
		skip  []string
	}{
		{LevelDebug, []string{"d-msg", "i-msg", "w-msg", "e-msg", "evaluation"}, nil},
		{LevelInfo, []string{"i-msg", "w-msg", "e-msg"}, []string{"d-msg", "evaluation"}},
		{LevelWarn, []string{"w-msg", "e-msg"}, []string{"d-msg", "i-msg", "evaluation"}},
		{LevelError, []string{"e-msg"}, []string{"d-msg", "i-msg", "w-msg"}},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLeveledConsoleLogger(&buf, tt.level).
				WithFields(StringField("component", "cli"))
			l.Debug("d-msg")
			l.Info("i-msg")
			l.Warn("w-msg")
			l.Error("e-msg")
			l.LogEvaluation(EvaluationLog{Predicate: "is-string"})

			out := buf.String()
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, s := range tt.skip {
				assert.NotContains(t, out, s)
			}
		})
	}
}
