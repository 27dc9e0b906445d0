package main

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

type schemaSummary struct {
	Name       string            `json:"name"`
	Locked     bool              `json:"locked"`
	Properties []propertySummary `json:"properties"`
}

type propertySummary struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the loaded schemas and their properties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runList()
		},
	}
}

func (a *app) runList() error {
	var summaries []schemaSummary
	for _, name := range a.registry.Names() {
		s, err := a.registry.Get(name)
		if err != nil {
			return err
		}
		sum := schemaSummary{Name: name, Locked: s.Locked(), Properties: []propertySummary{}}
		for _, p := range s.PropertyNames() {
			k, _ := s.Kind(p)
			sum.Properties = append(sum.Properties, propertySummary{Name: p, Kind: k.String()})
		}
		summaries = append(summaries, sum)
	}

	if a.jsonOutput() {
		if summaries == nil {
			summaries = []schemaSummary{}
		}
		b, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return fmt.Errorf("encode schemas: %w", err)
		}
		fmt.Fprintln(a.out, string(b))
		return nil
	}

	if len(summaries) == 0 {
		fmt.Fprintln(a.out, "no schemas loaded")
		return nil
	}
	for _, sum := range summaries {
		state := ""
		if sum.Locked {
			state = " (locked)"
		}
		fmt.Fprintf(a.out, "%s%s\n", sum.Name, state)
		parts := make([]string, 0, len(sum.Properties))
		for _, p := range sum.Properties {
			parts = append(parts, p.Name+":"+p.Kind)
		}
		if len(parts) > 0 {
			fmt.Fprintf(a.out, "  %s\n", strings.Join(parts, " "))
		}
	}
	return nil
}
