package bank

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ValidationError represents a validation issue found in a bank
// file.
type ValidationError struct {
	Field   string
	Message string
	Index   int // -1 if not applicable
}

func (e ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("predicates[%d].%s: %s", e.Index, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func bankSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		raw, err := Schema()
		if err != nil {
			schemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("bank.schema.json", bytes.NewReader(raw)); err != nil {
			schemaErr = fmt.Errorf("failed to add bank schema: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile("bank.schema.json")
	})
	return compiledSchema, schemaErr
}

// ValidateFile validates a bank file and returns all errors
// found.
func ValidateFile(path string) []ValidationError {
	data, err := os.ReadFile(path)
	if err != nil {
		return []ValidationError{{Field: "file", Message: err.Error(), Index: -1}}
	}
	return ValidateBytes(data)
}

// ValidateBytes validates YAML or JSON bank content. Structural
// problems are reported first; semantic checks run only on a
// structurally valid document.
func ValidateBytes(data []byte) []ValidationError {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return []ValidationError{{Field: "document", Message: err.Error(), Index: -1}}
	}

	if errs := validateSchema(doc); len(errs) > 0 {
		return errs
	}

	var file BankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return []ValidationError{{Field: "document", Message: err.Error(), Index: -1}}
	}
	return validateSemantics(&file)
}

func validateSchema(doc any) []ValidationError {
	sch, err := bankSchema()
	if err != nil {
		return []ValidationError{{Field: "schema", Message: err.Error(), Index: -1}}
	}

	raw, err := json.Marshal(jsonCompatible(doc))
	if err != nil {
		return []ValidationError{{Field: "document", Message: err.Error(), Index: -1}}
	}
	// The validator expects json.Number for numeric values.
	var inst any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&inst); err != nil {
		return []ValidationError{{Field: "document", Message: err.Error(), Index: -1}}
	}

	err = sch.Validate(inst)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []ValidationError{{Field: "document", Message: err.Error(), Index: -1}}
	}

	var out []ValidationError
	collectLeaves(ve, &out)
	return out
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]ValidationError) {
	if len(ve.Causes) == 0 {
		field, index := splitLocation(ve.InstanceLocation)
		*out = append(*out, ValidationError{
			Field:   field,
			Message: ve.Message,
			Index:   index,
		})
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, out)
	}
}

// splitLocation turns a JSON pointer such as
// "/predicates/2/name" into ("name", 2).
func splitLocation(loc string) (string, int) {
	parts := strings.Split(strings.TrimPrefix(loc, "/"), "/")
	if len(parts) >= 2 && parts[0] == "predicates" {
		if i, err := strconv.Atoi(parts[1]); err == nil {
			field := strings.Join(parts[2:], ".")
			if field == "" {
				field = "definition"
			}
			return field, i
		}
	}
	field := strings.Join(parts, ".")
	if field == "" {
		field = "document"
	}
	return field, -1
}

func validateSemantics(file *BankFile) []ValidationError {
	var errs []ValidationError

	v, err := semver.NewVersion(file.Version)
	if err != nil {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("invalid version %q: %v", file.Version, err),
			Index:   -1,
		})
	} else {
		c, err := semver.NewConstraint(SupportedVersions)
		if err == nil && !c.Check(v) {
			errs = append(errs, ValidationError{
				Field:   "version",
				Message: fmt.Sprintf("version %s does not satisfy %s", file.Version, SupportedVersions),
				Index:   -1,
			})
		}
	}

	names := make(map[string]bool, len(file.Predicates))
	for i := range file.Predicates {
		def := &file.Predicates[i]
		if names[def.Name] {
			errs = append(errs, ValidationError{
				Field: "name", Message: fmt.Sprintf("duplicate name: %s", def.Name), Index: i,
			})
		}
		names[def.Name] = true

		if def.IsEmpty() {
			errs = append(errs, ValidationError{
				Field:   "definition",
				Message: "at least one of all_of, any_of, not, has_keys is required",
				Index:   i,
			})
		}
		for _, ref := range def.References() {
			if ref == def.Name {
				errs = append(errs, ValidationError{
					Field: "definition", Message: "predicate references itself", Index: i,
				})
				break
			}
		}
	}

	return errs
}

// jsonCompatible rewrites map[any]any nodes produced by YAML
// into map[string]any so the document can be marshaled as JSON.
func jsonCompatible(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = jsonCompatible(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = jsonCompatible(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = jsonCompatible(item)
		}
		return out
	}
	return v
}
