package predicate

import (
	"time"

	"digital.vasic.predicates/pkg/logging"
	"digital.vasic.predicates/pkg/metrics"
)

// Evaluator defines the interface for applying named predicates
// to values.
type Evaluator interface {
	// Evaluate looks up the named predicate and applies it to
	// value. Returns a *NotFoundError if the name is unknown.
	Evaluate(name string, value any) (bool, error)

	// EvaluateAll applies each named predicate to value and
	// returns one Result per name, in order. Unknown names are
	// reported in Result.Error.
	EvaluateAll(names []string, value any) []Result
}

// Observer receives every evaluation result, including misses.
type Observer interface {
	Observe(result Result)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(result Result)

// Observe calls f.
func (f ObserverFunc) Observe(result Result) {
	f(result)
}

// DefaultEvaluator is the standard Evaluator implementation. It
// holds no mutable state of its own and is safe for concurrent
// use when its registry is.
type DefaultEvaluator struct {
	registry  Registry
	logger    logging.Logger
	metrics   metrics.EvaluationMetrics
	observers []Observer
}

// Default is the package-level registry of built-in predicates.
var Default = NewBuiltinRegistry()

// NewEvaluator creates an evaluator backed by reg.
func NewEvaluator(
	reg Registry,
	opts ...EvaluatorOption,
) *DefaultEvaluator {
	e := &DefaultEvaluator{
		registry: reg,
		logger:   logging.NullLogger{},
		metrics:  metrics.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate applies the predicate registered under the given name
// to value using the Default registry.
func Evaluate(name string, value any) (bool, error) {
	return NewEvaluator(Default).Evaluate(name, value)
}

// Evaluate looks up name and applies its test to value.
func (e *DefaultEvaluator) Evaluate(
	name string,
	value any,
) (bool, error) {
	r, err := e.evaluate(name, value)
	return r.Passed, err
}

// EvaluateAll applies each named predicate to value.
func (e *DefaultEvaluator) EvaluateAll(
	names []string,
	value any,
) []Result {
	results := make([]Result, 0, len(names))
	for _, name := range names {
		r, _ := e.evaluate(name, value)
		results = append(results, r)
	}
	return results
}

// Registry returns the registry the evaluator reads from.
func (e *DefaultEvaluator) Registry() Registry {
	return e.registry
}

func (e *DefaultEvaluator) evaluate(
	name string,
	value any,
) (Result, error) {
	p, err := e.registry.Lookup(name)
	if err != nil {
		r := Result{Predicate: name, Error: err.Error()}
		e.metrics.RecordMiss(name)
		e.logger.Warn("unknown predicate",
			logging.StringField("predicate", name),
		)
		e.notify(r)
		return r, err
	}

	start := time.Now()
	passed := p.Test(value)
	elapsed := time.Since(start)

	r := Result{
		Predicate:  name,
		Passed:     passed,
		DurationNs: elapsed.Nanoseconds(),
	}

	e.metrics.RecordEvaluation(name, passed, elapsed)
	e.logger.LogEvaluation(logging.EvaluationLog{
		Timestamp:  start.Format(time.RFC3339Nano),
		Predicate:  name,
		Passed:     passed,
		DurationNs: r.DurationNs,
	})
	e.notify(r)

	return r, nil
}

func (e *DefaultEvaluator) notify(r Result) {
	for _, o := range e.observers {
		o.Observe(r)
	}
}
