package defender

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/defender/i18n"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeSchemaLocked          = "schema_locked"
	CodeDuplicateSchema       = "duplicate_schema"
	CodeDuplicateProperty     = "duplicate_property"
	CodeInvalidType           = "invalid_type"
	CodePropertyNotDefined    = "property_not_defined"
	CodeInvalidValue          = "invalid_value"
	CodeSchemaNotFound        = "schema_not_found"
	CodeValueChangeNotAllowed = "value_change_not_allowed"
	CodeInvalidDefault        = "invalid_default"
	CodeInvalidMax            = "invalid_max"
	CodeInvalidMin            = "invalid_min"
	CodeInvalidNestedSchema   = "invalid_nested_schema"
	CodeInvalidValidator      = "invalid_validator"
	CodeMissingValue          = "missing_value"
	// Input decoding (LoadJSON)
	CodeParseError   = "parse_error"
	CodeDuplicateKey = "duplicate_key"
)

// Issue represents a single failure.
type Issue struct {
	Path    string // JSON Pointer of the property (for example: /name), "/" for schema-level issues.
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints.
	Cause   error  // Optional: underlying error.
	// Params carries structured parameters (e.g., {"name":"age", "value":-1})
	// for i18n and observability.
	Params map[string]any
}

// Issues is a collection of failures that implements error.
type Issues []Issue

// Error renders the first few issues as "code: message".
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		fmt.Fprintf(b, "%s: %s", it.Code, it.Message)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Unwrap exposes the causes so errors.Is/As can reach them.
func (iss Issues) Unwrap() []error {
	var out []error
	for _, it := range iss {
		if it.Cause != nil {
			out = append(out, it.Cause)
		}
	}
	return out
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// CodeOf returns the code of the first issue carried by err, or "" when err
// carries none.
func CodeOf(err error) string {
	iss, ok := AsIssues(err)
	if !ok || len(iss) == 0 {
		return ""
	}
	return iss[0].Code
}

// HasCode reports whether any issue carried by err has the given code.
func HasCode(err error, code string) bool {
	iss, ok := AsIssues(err)
	if !ok {
		return false
	}
	for _, it := range iss {
		if it.Code == code {
			return true
		}
	}
	return false
}

// issueAt builds a single-issue error for the property name (empty for
// schema-level issues). The message is resolved through i18n from name and
// the optional offending value.
func issueAt(code, name string, value ...any) Issues {
	path := "/"
	params := map[string]any{}
	data := map[string]string{}
	if name != "" {
		path = "/" + name
		params["name"] = name
		data["name"] = name
	}
	if len(value) > 0 {
		params["value"] = value[0]
		data["value"] = describe(value[0])
	}
	return Issues{{Path: path, Code: code, Message: i18n.T(code, data), Params: params}}
}

func describe(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(v)
}
