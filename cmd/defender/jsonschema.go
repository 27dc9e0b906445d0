package main

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newJSONSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "jsonschema SCHEMA",
		Short: "Print a schema as JSON Schema",
		Long: `Print the JSON Schema (draft 2020-12) describing the JSON form of
SCHEMA's data. Dates are epoch milliseconds; properties without a default
are required.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.schema(args[0])
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(s.JSONSchema(), "", "  ")
			if err != nil {
				return fmt.Errorf("encode json schema: %w", err)
			}
			fmt.Fprintln(a.out, string(b))
			return nil
		},
	}
}
