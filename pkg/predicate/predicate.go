// Package predicate provides a registry of named classification
// functions and an evaluator that applies them to arbitrary
// values. It ships with a set of built-in type predicates and
// supports composing new ones from existing predicates.
package predicate

// Func reports whether a value satisfies a predicate. A Func
// must be pure and must return a result for every input,
// including nil.
type Func func(value any) bool

// Predicate is a named classification function.
type Predicate struct {
	// Name is the unique registry key (e.g., "is-string").
	Name string `json:"name"`

	// Description is a short human-readable summary.
	Description string `json:"description,omitempty"`

	// Test is the classification function.
	Test Func `json:"-"`
}

// Result captures the outcome of evaluating one predicate.
type Result struct {
	// Predicate is the name that was evaluated.
	Predicate string `json:"predicate"`

	// Passed is the value returned by the predicate.
	Passed bool `json:"passed"`

	// Error is set when the predicate could not be evaluated.
	Error string `json:"error,omitempty"`

	// DurationNs is the evaluation time in nanoseconds.
	DurationNs int64 `json:"duration_ns"`
}
