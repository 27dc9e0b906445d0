package defender

import (
	"bytes"

	json "github.com/goccy/go-json"

	"github.com/reoring/defender/i18n"
	"github.com/reoring/defender/internal/jsonscan"
)

// maxDuplicateIssues caps the duplicate_key issues reported for one input.
const maxDuplicateIssues = 10

// LoadJSON decodes a JSON object and loads it as a new Data. Numbers are kept
// as json.Number so integer precision survives; dates are read as epoch
// milliseconds. Objects with repeated keys, at any depth, are rejected with
// duplicate_key.
func (s *Schema) LoadJSON(b []byte, opts ...LoadOption) (*Data, error) {
	values, err := decodeObject(b)
	if err != nil {
		return nil, err
	}
	return s.Load(values, opts...)
}

// LoadJSON decodes a JSON object and applies it with Load.
func (d *Data) LoadJSON(b []byte) error {
	values, err := decodeObject(b)
	if err != nil {
		return err
	}
	return d.Load(values)
}

// MarshalJSON encodes the ToJSON projection.
func (d *Data) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.ToJSON())
}

func decodeObject(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		iss := issueAt(CodeParseError, "")
		iss[0].Message = iss[0].Message + ": " + err.Error()
		iss[0].Cause = err
		return nil, iss
	}
	m, ok := v.(map[string]any)
	if !ok {
		iss := issueAt(CodeInvalidValue, "", v)
		iss[0].Message = "input must be a JSON object"
		iss[0].Hint = "expected object"
		return nil, iss
	}
	dups, err := jsonscan.DuplicateKeys(b, maxDuplicateIssues)
	if err != nil {
		return nil, Issues{{Path: "/", Code: CodeParseError, Message: i18n.T(CodeParseError, nil) + ": " + err.Error(), Cause: err}}
	}
	if len(dups) > 0 {
		var iss Issues
		for _, d := range dups {
			iss = AppendIssues(iss, Issue{
				Path:    d.Path,
				Code:    CodeDuplicateKey,
				Message: i18n.T(CodeDuplicateKey, map[string]string{"name": d.Key}),
				Params:  map[string]any{"name": d.Key},
			})
		}
		return nil, iss
	}
	return m, nil
}
