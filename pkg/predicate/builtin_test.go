package predicate

import (
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type person struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestBuiltins(t *testing.T) {
	var nilMap map[string]any
	var nilSlice []int
	var nilPtr *person
	var nilTime *time.Time
	now := time.Now()

	tests := []struct {
		predicate string
		value     any
		passed    bool
	}{
		{"is-string", "abc", true},
		{"is-string", "", true},
		{"is-string", 5, false},
		{"is-string", nil, false},

		{"is-number", 5, true},
		{"is-number", uint8(1), true},
		{"is-number", 3.14, true},
		{"is-number", "5", false},
		{"is-number", big.NewInt(1), false},
		{"is-number", nil, false},

		{"is-integer", 5, true},
		{"is-integer", 5.0, true},
		{"is-integer", 5.5, false},
		{"is-integer", math.Inf(1), false},
		{"is-integer", math.NaN(), false},
		{"is-integer", "5", false},

		{"is-bigint", big.NewInt(9007199254740991), true},
		{"is-bigint", (*big.Int)(nil), false},
		{"is-bigint", 5, false},

		{"is-boolean", true, true},
		{"is-boolean", false, true},
		{"is-boolean", "true", false},

		{"is-null", nil, true},
		{"is-null", nilMap, true},
		{"is-null", nilSlice, true},
		{"is-null", nilPtr, true},
		{"is-null", 0, false},
		{"is-null", "", false},

		{"is-array", []int{1, 2, 3}, true},
		{"is-array", [2]string{"a", "b"}, true},
		{"is-array", []any{}, true},
		{"is-array", "abc", false},
		{"is-array", map[string]any{}, false},

		{"is-object", map[string]any{"a": 1}, true},
		{"is-object", person{}, true},
		{"is-object", &person{}, true},
		{"is-object", nilPtr, false},
		{"is-object", nilMap, false},
		{"is-object", []int{1}, false},
		{"is-object", now, false},
		{"is-object", "x", false},

		{"is-function", echo, true},
		{"is-function", (func())(nil), false},
		{"is-function", "func", false},

		{"is-instance-of-date", now, true},
		{"is-instance-of-date", &now, true},
		{"is-instance-of-date", nilTime, false},
		{"is-instance-of-date", "2024-01-01", false},

		{"has-length", []int{1, 2, 3}, true},
		{"has-length", "abc", true},
		{"has-length", map[string]int{}, true},
		{"has-length", [0]int{}, true},
		{"has-length", 5, false},
		{"has-length", nil, false},
		{"has-length", make(chan int), false},

		{"is-empty", nil, true},
		{"is-empty", "  ", true},
		{"is-empty", []any{}, true},
		{"is-empty", map[string]any{}, true},
		{"is-empty", "x", false},
		{"is-empty", []int{0}, false},
		{"is-empty", 0, false},
	}

	r := NewBuiltinRegistry()
	for _, tt := range tests {
		t.Run(tt.predicate, func(t *testing.T) {
			p, err := r.Lookup(tt.predicate)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, tt.passed, p.Test(tt.value),
				"%s(%#v)", tt.predicate, tt.value)
		})
	}
}

func echo(s string) string { return s }

func TestBuiltins_TotalOverOddInputs(t *testing.T) {
	inputs := []any{
		nil, struct{}{}, make(chan int), complex(1, 2),
		new(int), [][]int{nil}, map[int]int{1: 1},
	}

	for _, p := range Builtins() {
		for _, in := range inputs {
			assert.NotPanics(t, func() { p.Test(in) },
				"%s(%#v)", p.Name, in)
		}
	}
}
