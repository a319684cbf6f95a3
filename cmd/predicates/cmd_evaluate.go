package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"digital.vasic.predicates/pkg/predicate"
	"digital.vasic.predicates/pkg/value"
)

func newEvaluateCmd(a *app) *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "evaluate <predicate-name> <value>",
		Short: "Evaluate a predicate against a value",
		Long: `Looks up the named predicate and applies it to the value,
printing true or false.

The value is decoded as a YAML document by default, so 42 is a
number, [1, 2] is an array and "42" (quoted) is a string. Use
--as to force an interpretation.

Exits 1 when the predicate name is unknown.

Examples:
  predicates evaluate is-number 42
  predicates evaluate is-string 42 --as string
  predicates evaluate is-instance-of-date 2024-01-02 --as date`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.evaluate(cmd, args[0], args[1], value.Kind(as))
		},
	}

	kinds := make([]string, 0, len(value.Kinds()))
	for _, k := range value.Kinds() {
		kinds = append(kinds, string(k))
	}
	cmd.Flags().StringVar(&as, "as", string(value.KindAuto),
		"value interpretation: "+strings.Join(kinds, ", "))
	return cmd
}

// evaluate resolves the predicate before parsing the value so an
// unknown name exits 1 even when the value is malformed.
func (a *app) evaluate(
	cmd *cobra.Command,
	name, raw string,
	kind value.Kind,
) error {
	reg, err := a.registry()
	if err != nil {
		return err
	}

	e := predicate.NewEvaluator(reg, predicate.WithLogger(a.logger))
	if !reg.Has(name) {
		// Evaluate reports the miss to the logger and returns the
		// not-found error.
		_, err := e.Evaluate(name, nil)
		return &exitCodeError{code: exitUnknownPredicate, err: err}
	}

	v, err := value.Parse(raw, kind)
	if err != nil {
		return err
	}

	passed, err := e.Evaluate(name, v)
	if errors.Is(err, predicate.ErrNotFound) {
		return &exitCodeError{code: exitUnknownPredicate, err: err}
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), passed)
	return nil
}
