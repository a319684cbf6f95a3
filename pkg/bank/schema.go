// Package bank loads declarative predicate definitions from
// YAML or JSON files and installs them into a predicate
// registry.
package bank

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SupportedVersions is the semver constraint a bank file's
// version must satisfy.
const SupportedVersions = ">= 1.0.0, < 2.0.0"

// BankFile is the on-disk structure of a predicate bank.
type BankFile struct {
	Version    string         `json:"version" yaml:"version" jsonschema:"minLength=1,description=Bank format version (semver)"`
	Name       string         `json:"name,omitempty" yaml:"name,omitempty"`
	Predicates []Definition   `json:"predicates" yaml:"predicates"`
	Metadata   map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Definition describes one composite predicate. All populated
// clauses must pass for the predicate to pass.
type Definition struct {
	// Name is the registry key. Lower-case words joined by
	// hyphens.
	Name string `json:"name" yaml:"name" jsonschema:"pattern=^[a-z][a-z0-9]*(-[a-z0-9]+)*$"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// AllOf lists predicates that must all pass.
	AllOf []string `json:"all_of,omitempty" yaml:"all_of,omitempty"`

	// AnyOf lists predicates of which at least one must pass.
	AnyOf []string `json:"any_of,omitempty" yaml:"any_of,omitempty"`

	// Not names a predicate that must fail.
	Not string `json:"not,omitempty" yaml:"not,omitempty"`

	// HasKeys lists map keys or struct fields that must exist.
	HasKeys []string `json:"has_keys,omitempty" yaml:"has_keys,omitempty"`
}

// References returns every predicate name the definition
// depends on, in declaration order.
func (d *Definition) References() []string {
	refs := make([]string, 0, len(d.AllOf)+len(d.AnyOf)+1)
	refs = append(refs, d.AllOf...)
	refs = append(refs, d.AnyOf...)
	if d.Not != "" {
		refs = append(refs, d.Not)
	}
	return refs
}

// IsEmpty reports whether the definition has no clauses.
func (d *Definition) IsEmpty() bool {
	return len(d.AllOf) == 0 && len(d.AnyOf) == 0 &&
		d.Not == "" && len(d.HasKeys) == 0
}

// Schema returns the JSON Schema for BankFile.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
		Anonymous:      true,
	}
	s := r.Reflect(&BankFile{})
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bank schema: %w", err)
	}
	return data, nil
}
