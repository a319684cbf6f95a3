package predicate

import (
	"digital.vasic.predicates/pkg/logging"
	"digital.vasic.predicates/pkg/metrics"
)

// EvaluatorOption configures a DefaultEvaluator.
type EvaluatorOption func(*DefaultEvaluator)

// WithLogger sets the logger used for evaluation records.
func WithLogger(logger logging.Logger) EvaluatorOption {
	return func(e *DefaultEvaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.EvaluationMetrics) EvaluatorOption {
	return func(e *DefaultEvaluator) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithObserver adds an observer notified after every
// evaluation.
func WithObserver(o Observer) EvaluatorOption {
	return func(e *DefaultEvaluator) {
		e.observers = append(e.observers, o)
	}
}
