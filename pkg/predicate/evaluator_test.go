package predicate

import (
	"bytes"
	"errors"
	"testing"

	"digital.vasic.predicates/pkg/logging"
	"digital.vasic.predicates/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_Properties(t *testing.T) {
	e := NewEvaluator(NewBuiltinRegistry())

	tests := []struct {
		name      string
		predicate string
		value     any
		passed    bool
	}{
		{"string matches", "is-string", "abc", true},
		{"number is not string", "is-string", 5, false},
		{"slice has length", "has-length", []any{1, 2, 3}, true},
		{"number has no length", "has-length", 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := e.Evaluate(tt.predicate, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.passed, ok)
		})
	}
}

func TestEvaluate_UnknownPredicate(t *testing.T) {
	e := NewEvaluator(NewBuiltinRegistry())

	ok, err := e.Evaluate("unknown-predicate", 1)
	assert.False(t, ok)
	require.Error(t, err)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "unknown-predicate", nf.Name)
}

func TestEvaluate_PackageDefault(t *testing.T) {
	ok, err := Evaluate("is-boolean", true)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = Evaluate("nope", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEvaluateAll(t *testing.T) {
	e := NewEvaluator(NewBuiltinRegistry())

	results := e.EvaluateAll(
		[]string{"is-string", "missing", "has-length"},
		"hello",
	)

	require.Len(t, results, 3)
	assert.True(t, results[0].Passed)
	assert.Empty(t, results[0].Error)

	assert.Equal(t, "missing", results[1].Predicate)
	assert.False(t, results[1].Passed)
	assert.Contains(t, results[1].Error, "predicate not found")

	assert.True(t, results[2].Passed)
}

func TestEvaluator_RecordsMetricsAndObservers(t *testing.T) {
	m := metrics.NewInMemoryMetrics()
	var seen []Result

	e := NewEvaluator(
		NewBuiltinRegistry(),
		WithMetrics(m),
		WithObserver(ObserverFunc(func(r Result) {
			seen = append(seen, r)
		})),
	)

	_, err := e.Evaluate("is-number", 1)
	require.NoError(t, err)
	_, err = e.Evaluate("is-number", "1")
	require.NoError(t, err)
	_, err = e.Evaluate("bogus", 1)
	require.Error(t, err)

	assert.Equal(t, 2, m.Evaluations("is-number"))
	assert.Equal(t, 1, m.Misses("bogus"))

	require.Len(t, seen, 3)
	assert.True(t, seen[0].Passed)
	assert.False(t, seen[1].Passed)
	assert.NotEmpty(t, seen[2].Error)
}

func TestEvaluator_LogsEvaluations(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewConsoleLoggerTo(&buf, true)

	e := NewEvaluator(NewBuiltinRegistry(), WithLogger(logger))
	_, _ = e.Evaluate("is-null", nil)
	_, _ = e.Evaluate("is-nothing", nil)

	out := buf.String()
	assert.Contains(t, out, "predicate=is-null")
	assert.Contains(t, out, "unknown predicate")
}

func TestEvaluator_NilOptionsKeepDefaults(t *testing.T) {
	e := NewEvaluator(NewRegistry(), WithLogger(nil), WithMetrics(nil))
	assert.NotNil(t, e.logger)
	assert.NotNil(t, e.metrics)
	assert.NotNil(t, e.Registry())
}
