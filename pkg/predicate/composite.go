package predicate

import (
	"reflect"
	"strings"
)

// AllOf returns a Func that passes when every given predicate
// passes. With no predicates it always passes.
func AllOf(preds ...*Predicate) Func {
	return func(value any) bool {
		for _, p := range preds {
			if !p.Test(value) {
				return false
			}
		}
		return true
	}
}

// AnyOf returns a Func that passes when at least one of the
// given predicates passes. With no predicates it never passes.
func AnyOf(preds ...*Predicate) Func {
	return func(value any) bool {
		for _, p := range preds {
			if p.Test(value) {
				return true
			}
		}
		return false
	}
}

// Not returns a Func that inverts p.
func Not(p *Predicate) Func {
	return func(value any) bool {
		return !p.Test(value)
	}
}

// HasKeys returns a Func that passes when the value is a map
// with string-like keys or a struct (or pointer to struct) that
// exposes every one of the given keys. Struct fields match by Go
// name or by their json tag name.
func HasKeys(keys ...string) Func {
	return func(value any) bool {
		v := reflect.ValueOf(value)
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return false
			}
			v = v.Elem()
		}

		switch v.Kind() {
		case reflect.Map:
			if v.Type().Key().Kind() != reflect.String {
				return false
			}
			for _, k := range keys {
				kv := reflect.ValueOf(k).Convert(v.Type().Key())
				if !v.MapIndex(kv).IsValid() {
					return false
				}
			}
			return true
		case reflect.Struct:
			fields := structKeys(v.Type())
			for _, k := range keys {
				if !fields[k] {
					return false
				}
			}
			return true
		}
		return false
	}
}

// structKeys collects exported field names and json tag names.
func structKeys(t reflect.Type) map[string]bool {
	out := make(map[string]bool, t.NumField()*2)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		out[f.Name] = true
		if tag, ok := f.Tag.Lookup("json"); ok {
			name, _, _ := strings.Cut(tag, ",")
			if name != "" && name != "-" {
				out[name] = true
			}
		}
	}
	return out
}
