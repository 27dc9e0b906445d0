package defender

import (
	"math"
	"reflect"
	"time"
	"unicode/utf8"

	json "github.com/goccy/go-json"
)

// constraint is the compiled, immutable form of a property definition.
type constraint struct {
	kind      Kind
	def       Default
	max, min  float64
	hasMax    bool
	hasMin    bool
	nested    *Schema
	validator Validator
}

// accepts is the value acceptance rule shared by Define (defaults) and every
// write.
func (c *constraint) accepts(v any) bool {
	_, ok := c.check(v)
	return ok
}

// check applies the acceptance rule and returns the value to store. Date
// producers are invoked once and their result is both checked and stored.
func (c *constraint) check(v any) (any, bool) {
	if v == nil {
		return nil, c.def.IsNull()
	}
	var n float64
	switch c.kind {
	case KindNumber:
		f, ok := toFloat(v)
		if !ok {
			return nil, false
		}
		n = f
	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		n = float64(utf8.RuneCountInString(s))
	case KindList:
		l, ok := listLen(v)
		if !ok {
			return nil, false
		}
		n = float64(l)
	case KindMap:
		l, ok := mapLen(v)
		if !ok {
			return nil, false
		}
		n = float64(l)
	case KindUniqueToken:
		return v, true
	case KindDateTime, KindAutoTimestamp:
		ms, ok := toMillis(v)
		if !ok {
			return nil, false
		}
		if isProducer(v) {
			v = ms
		}
		if !c.inBounds(float64(ms)) || !c.validates(v) {
			return nil, false
		}
		return ms, true
	case KindBoolean:
		if _, ok := v.(bool); !ok {
			return nil, false
		}
		return v, c.validates(v)
	default:
		return nil, false
	}
	if !c.inBounds(n) || !c.validates(v) {
		return nil, false
	}
	return v, true
}

func (c *constraint) inBounds(n float64) bool {
	return !(c.hasMax && n > c.max) && !(c.hasMin && n < c.min)
}

func (c *constraint) validates(v any) bool {
	return c.validator == nil || c.validator(v)
}

// isProducer reports whether v is one of the zero-argument date functions
// toMillis invokes.
func isProducer(v any) bool {
	switch v.(type) {
	case func() time.Time, func() int64, func() any:
		return true
	}
	return false
}

// toFloat converts any Go numeric value (or json.Number) to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// toMillis resolves a date-like value to epoch milliseconds. Zero-argument
// functions are invoked once.
func toMillis(v any) (int64, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UnixMilli(), true
	case *time.Time:
		if t == nil {
			return 0, false
		}
		return t.UnixMilli(), true
	case func() time.Time:
		if t == nil {
			return 0, false
		}
		return t().UnixMilli(), true
	case func() int64:
		if t == nil {
			return 0, false
		}
		return t(), true
	case func() any:
		if t == nil {
			return 0, false
		}
		r := t()
		if _, nested := r.(func() any); nested {
			return 0, false
		}
		return toMillis(r)
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

// toBound normalizes a Min/Max option. Dates become epoch milliseconds.
func toBound(v any) (f float64, present, ok bool) {
	if v == nil {
		return 0, false, true
	}
	switch t := v.(type) {
	case time.Time:
		return float64(t.UnixMilli()), true, true
	case *time.Time:
		if t == nil {
			return 0, false, false
		}
		return float64(t.UnixMilli()), true, true
	}
	f, ok = toFloat(v)
	if !ok || math.IsNaN(f) {
		return 0, true, false
	}
	return f, true, true
}

func listLen(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len(), true
	}
	return 0, false
}

func mapLen(v any) (int, bool) {
	if p, ok := v.(Projector); ok {
		return len(p.ToJSON()), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map {
		return rv.Len(), true
	}
	return 0, false
}

// sameValue compares a stored value with a normalized write.
func sameValue(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}
