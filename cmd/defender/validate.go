package main

import (
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	defender "github.com/reoring/defender"
)

type validateResult struct {
	File   string         `json:"file"`
	Valid  bool           `json:"valid"`
	Data   map[string]any `json:"data,omitempty"`
	Issues []issueView    `json:"issues,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type issueView struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate SCHEMA [FILE...]",
		Short: "Validate JSON documents against a schema",
		Long: `Load each JSON document as data of SCHEMA and report every document
that fails. Missing properties receive their defaults and tokens, which
the json output shows under "data". Reads stdin when no FILE (or "-") is
given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runValidate(args[0], args[1:])
		},
	}
}

func (a *app) runValidate(name string, files []string) error {
	s, err := a.schema(name)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		files = []string{"-"}
	}

	results := make([]validateResult, 0, len(files))
	failed := 0
	for _, file := range files {
		r := a.validateFile(s, file)
		if !r.Valid {
			failed++
		}
		results = append(results, r)
	}

	if a.jsonOutput() {
		b, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
		fmt.Fprintln(a.out, string(b))
	} else {
		for _, r := range results {
			a.printResult(r)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents invalid", failed, len(results))
	}
	return nil
}

func (a *app) validateFile(s *defender.Schema, file string) validateResult {
	r := validateResult{File: file}
	b, err := a.read(file)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	d, err := s.LoadJSON(b)
	if err != nil {
		if iss, ok := defender.AsIssues(err); ok {
			for _, it := range iss {
				r.Issues = append(r.Issues, issueView{Path: it.Path, Code: it.Code, Message: it.Message, Hint: it.Hint})
			}
		} else {
			r.Error = err.Error()
		}
		a.logger.Debug().Str("file", file).Err(err).Msg("document rejected")
		return r
	}
	r.Valid = true
	r.Data = d.ToJSON()
	return r
}

func (a *app) read(file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(a.in)
	}
	return os.ReadFile(file)
}

func (a *app) printResult(r validateResult) {
	if r.Valid {
		fmt.Fprintf(a.out, "%s: ok\n", r.File)
		return
	}
	fmt.Fprintf(a.out, "%s: invalid\n", r.File)
	if r.Error != "" {
		fmt.Fprintf(a.out, "  %s\n", r.Error)
	}
	for _, it := range r.Issues {
		fmt.Fprintf(a.out, "  %s %s: %s\n", it.Path, it.Code, it.Message)
	}
}
