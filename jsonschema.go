package defender

import (
	stdjson "encoding/json"
	"math"
	"strconv"

	js "github.com/invopop/jsonschema"
)

// JSONSchema projects the schema into a JSON Schema document describing the
// ToJSON output. Properties keep definition order; properties without a
// default or generated token are required. Nested schemas are inlined, and a
// schema already being expanded is emitted as a plain object.
func (s *Schema) JSONSchema() *js.Schema {
	out := s.jsonSchema(map[*Schema]bool{})
	out.Version = js.Version
	return out
}

func (s *Schema) jsonSchema(expanding map[*Schema]bool) *js.Schema {
	expanding[s] = true
	defer delete(expanding, s)

	s.mu.RLock()
	names := append([]string(nil), s.names...)
	constraints := make([]*constraint, len(names))
	for i, n := range names {
		constraints[i] = s.constraints[n]
	}
	s.mu.RUnlock()

	out := &js.Schema{
		Type:                 "object",
		Title:                s.name,
		Properties:           js.NewProperties(),
		AdditionalProperties: js.FalseSchema,
	}
	for i, name := range names {
		c := constraints[i]
		out.Properties.Set(name, c.jsonSchema(expanding))
		if c.kind != KindUniqueToken && !c.def.IsSet() {
			out.Required = append(out.Required, name)
		}
	}
	return out
}

func (c *constraint) jsonSchema(expanding map[*Schema]bool) *js.Schema {
	out := &js.Schema{}
	switch c.kind {
	case KindNumber:
		out.Type = "number"
		if c.hasMin {
			out.Minimum = number(c.min)
		}
		if c.hasMax {
			out.Maximum = number(c.max)
		}
	case KindString:
		out.Type = "string"
		out.MinLength = lowerCount(c.min, c.hasMin)
		out.MaxLength = upperCount(c.max, c.hasMax)
	case KindList:
		out.Type = "array"
		out.MinItems = lowerCount(c.min, c.hasMin)
		out.MaxItems = upperCount(c.max, c.hasMax)
	case KindMap:
		if c.nested != nil && !expanding[c.nested] {
			out = c.nested.jsonSchema(expanding)
		} else {
			out.Type = "object"
		}
		out.MinProperties = lowerCount(c.min, c.hasMin)
		out.MaxProperties = upperCount(c.max, c.hasMax)
	case KindUniqueToken:
		out.Description = "system generated unique token"
		out.ReadOnly = true
	case KindDateTime, KindAutoTimestamp:
		out.Type = "integer"
		out.Description = "epoch milliseconds"
		if c.hasMin {
			out.Minimum = number(c.min)
		}
		if c.hasMax {
			out.Maximum = number(c.max)
		}
		out.ReadOnly = c.kind == KindAutoTimestamp
	case KindBoolean:
		out.Type = "boolean"
	}
	if c.def.IsSet() && !c.def.IsGenerator() && c.def.value != nil {
		if c.kind.isDate() {
			ms, _ := toMillis(c.def.value)
			out.Default = ms
		} else {
			out.Default = project(c.def.value)
		}
	}
	return out
}

// number renders a bound in the json.Number type the jsonschema package uses.
func number(f float64) stdjson.Number {
	return stdjson.Number(strconv.FormatFloat(f, 'f', -1, 64))
}

// lowerCount converts a length bound to a JSON Schema minimum count. Negative
// bounds constrain nothing.
func lowerCount(f float64, present bool) *uint64 {
	if !present || f <= 0 {
		return nil
	}
	n := uint64(math.Ceil(f))
	return &n
}

func upperCount(f float64, present bool) *uint64 {
	if !present {
		return nil
	}
	if f < 0 {
		zero := uint64(0)
		return &zero
	}
	n := uint64(math.Floor(f))
	return &n
}
