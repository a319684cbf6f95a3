// Package value turns command-line text into Go values that
// predicates can classify.
package value

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Kind selects how raw text is interpreted.
type Kind string

const (
	// KindAuto decodes the text as a YAML document, which also
	// accepts JSON.
	KindAuto Kind = "auto"
	// KindString keeps the text as-is.
	KindString Kind = "string"
	// KindNumber parses an int64, falling back to float64.
	KindNumber Kind = "number"
	// KindBigInt parses an arbitrary-precision integer.
	KindBigInt Kind = "bigint"
	// KindDate parses an RFC 3339 timestamp or a YYYY-MM-DD date.
	KindDate Kind = "date"
	// KindNull ignores the text and yields nil.
	KindNull Kind = "null"
)

// Kinds lists every supported Kind.
func Kinds() []Kind {
	return []Kind{
		KindAuto, KindString, KindNumber,
		KindBigInt, KindDate, KindNull,
	}
}

// Parse converts raw into a value according to kind. An empty
// kind means KindAuto.
func Parse(raw string, kind Kind) (any, error) {
	switch kind {
	case "", KindAuto:
		return parseAuto(raw)
	case KindString:
		return raw, nil
	case KindNumber:
		return parseNumber(raw)
	case KindBigInt:
		n, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
		if !ok {
			return nil, fmt.Errorf("invalid bigint: %q", raw)
		}
		return n, nil
	case KindDate:
		return parseDate(raw)
	case KindNull:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown value kind: %q", kind)
}

func parseAuto(raw string) (any, error) {
	if strings.TrimSpace(raw) == "" {
		return raw, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		// Not a YAML document; classify the literal text.
		return raw, nil
	}
	keepTimestamps(&doc)

	var v any
	if err := doc.Decode(&v); err != nil {
		return raw, nil
	}
	return normalize(v), nil
}

// keepTimestamps retags plain date and timestamp scalars as
// strings. Dates are only produced by KindDate.
func keepTimestamps(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!timestamp" {
		n.Tag = "!!str"
	}
	for _, c := range n.Content {
		keepTimestamps(c)
	}
}

// normalize converts YAML's map[any]any nodes (from non-string
// keys) so nested values have JSON-like shapes.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalize(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = normalize(item)
		}
		return t
	}
	return v
}

func parseNumber(raw string) (any, error) {
	s := strings.TrimSpace(raw)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number: %q", raw)
	}
	return f, nil
}

func parseDate(raw string) (any, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		time.DateOnly,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("invalid date: %q", raw)
}
