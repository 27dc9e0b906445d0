package defender

import (
	"fmt"
	"reflect"
	"time"
)

// Projector is implemented by values that serialize through their own plain
// JSON projection. *Data implements it, which is how one schema's data nests
// inside another schema's map property.
type Projector interface {
	ToJSON() map[string]any
}

func projectMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = project(v)
	}
	return out
}

// project copies v into plain JSON-shaped data: map[string]any, []any and
// scalars. Projectors are replaced by their projection and times by epoch
// milliseconds.
func project(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case Projector:
		return t.ToJSON()
	case map[string]any:
		return projectMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = project(e)
		}
		return out
	case time.Time:
		return t.UnixMilli()
	case string, bool, float64, int, int64:
		return t
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = project(iter.Value().Interface())
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = project(rv.Index(i).Interface())
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return project(rv.Elem().Interface())
	}
	return v
}

// clone deep-copies container defaults so Data instances never share them.
// Scalars and Projectors are returned unchanged.
func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = clone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = clone(e)
		}
		return out
	}
	return v
}
