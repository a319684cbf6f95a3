package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"digital.vasic.predicates/pkg/bank"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate predicate bank files",
		Long: `Checks each bank file against the bank JSON Schema and for
semantic problems: unsupported versions, duplicate names, empty
definitions and self-references.

References to predicates defined elsewhere are not resolved here.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				errs := bank.ValidateFile(path)
				if len(errs) == 0 {
					fmt.Fprintf(out, "%s: ok\n", path)
					continue
				}
				failed++
				for _, e := range errs {
					fmt.Fprintf(out, "%s: %s\n", path, e.Error())
				}
			}
			if failed > 0 {
				a.logger.Debug("validation failed")
				return fmt.Errorf("%d of %d files failed validation", failed, len(args))
			}
			return nil
		},
	}
}

func newSchemaCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the bank file JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := bank.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}
