// Package metrics records predicate evaluation counters.
package metrics

import "time"

// EvaluationMetrics defines the interface for recording
// evaluation metrics.
type EvaluationMetrics interface {
	// RecordEvaluation records one completed evaluation.
	RecordEvaluation(predicate string, passed bool, duration time.Duration)
	// RecordMiss records a lookup of an unknown predicate.
	RecordMiss(predicate string)
}

// NoopMetrics is a no-op implementation of EvaluationMetrics.
type NoopMetrics struct{}

func (NoopMetrics) RecordEvaluation(_ string, _ bool, _ time.Duration) {}
func (NoopMetrics) RecordMiss(_ string)                                {}
