package predicate

import (
	"math"
	"math/big"
	"reflect"
	"strings"
	"time"
)

// Builtins returns fresh copies of all built-in predicates.
func Builtins() []*Predicate {
	return []*Predicate{
		{Name: "is-string", Description: "value is a string", Test: isString},
		{Name: "is-number", Description: "value is an integer or floating-point number", Test: isNumber},
		{Name: "is-integer", Description: "value is a number with no fractional part", Test: isInteger},
		{Name: "is-bigint", Description: "value is an arbitrary-precision integer", Test: isBigInt},
		{Name: "is-boolean", Description: "value is true or false", Test: isBoolean},
		{Name: "is-null", Description: "value is nil or a nil reference", Test: isNull},
		{Name: "is-array", Description: "value is a slice or array", Test: isArray},
		{Name: "is-object", Description: "value is a map or struct", Test: isObject},
		{Name: "is-function", Description: "value is a function", Test: isFunction},
		{Name: "is-instance-of-date", Description: "value is a time.Time", Test: isDate},
		{Name: "has-length", Description: "value is a string, slice, array or map", Test: hasLength},
		{Name: "is-empty", Description: "value is nil, blank, or has zero length", Test: isEmpty},
	}
}

func isString(value any) bool {
	_, ok := value.(string)
	return ok
}

func isNumber(value any) bool {
	if value == nil {
		return false
	}
	switch reflect.TypeOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16,
		reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16,
		reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isInteger(value any) bool {
	if !isNumber(value) {
		return false
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		return !math.IsInf(f, 0) && f == math.Trunc(f)
	}
	return true
}

func isBigInt(value any) bool {
	switch v := value.(type) {
	case *big.Int:
		return v != nil
	case big.Int:
		return true
	}
	return false
}

func isBoolean(value any) bool {
	_, ok := value.(bool)
	return ok
}

func isNull(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice,
		reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func isArray(value any) bool {
	if value == nil {
		return false
	}
	switch reflect.TypeOf(value).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}

func isObject(value any) bool {
	if isDate(value) || isBigInt(value) {
		return false
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Map:
		return !v.IsNil()
	case reflect.Struct:
		return true
	case reflect.Ptr:
		return !v.IsNil() && v.Elem().Kind() == reflect.Struct
	}
	return false
}

func isFunction(value any) bool {
	v := reflect.ValueOf(value)
	return v.Kind() == reflect.Func && !v.IsNil()
}

func isDate(value any) bool {
	switch v := value.(type) {
	case time.Time:
		return true
	case *time.Time:
		return v != nil
	}
	return false
}

func hasLength(value any) bool {
	_, ok := lengthOf(value)
	return ok
}

func isEmpty(value any) bool {
	if isNull(value) {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	n, ok := lengthOf(value)
	return ok && n == 0
}

// lengthOf returns len(value) for strings, slices, arrays and
// maps.
func lengthOf(value any) (int, bool) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.String, reflect.Slice,
		reflect.Array, reflect.Map:
		return v.Len(), true
	}
	return 0, false
}
