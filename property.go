package defender

// Default describes the value Load uses for a property that was not supplied.
// The zero value means "no default".
type Default struct {
	set   bool
	value any
	gen   func() any
}

// NoDefault returns the absent default.
func NoDefault() Default { return Default{} }

// Null returns a default of null; it also makes null an accepted value.
func Null() Default { return Default{set: true} }

// Value returns a default of v. v must satisfy the property's constraints.
func Value(v any) Default { return Default{set: true, value: v} }

// Generate returns a default computed by fn each time Load needs it. The
// generated value is checked when it is applied, not at definition time.
func Generate(fn func() any) Default {
	if fn == nil {
		return Default{}
	}
	return Default{set: true, gen: fn}
}

// IsSet reports whether a default exists.
func (d Default) IsSet() bool { return d.set }

// IsNull reports whether the default is exactly null.
func (d Default) IsNull() bool { return d.set && d.gen == nil && d.value == nil }

// IsGenerator reports whether the default is computed lazily.
func (d Default) IsGenerator() bool { return d.gen != nil }

// resolve produces a fresh default value for one Data.
func (d Default) resolve() any {
	if d.gen != nil {
		return d.gen()
	}
	return clone(d.value)
}

// Validator is an additional acceptance rule applied after kind and bound
// checks.
type Validator func(v any) bool

// Property is a property definition accepted by Schema.Define. It is
// implemented by Spec and by the typed builders (Number(), String(), ...).
type Property interface {
	spec() Spec
}

// Spec is the loosely typed property definition. It is meant for dynamic
// callers such as schema files; Go code should prefer the typed builders,
// which only expose the options meaningful for their kind.
type Spec struct {
	Kind    Kind
	Default Default
	// Max and Min are optional bounds: numbers, or time.Time / epoch
	// milliseconds. Date values are always normalized to epoch milliseconds.
	Max any
	Min any
	// Schema is the nested schema reference (*Schema) of a map property.
	Schema any
	// Validator is a Validator or a func(any) bool.
	Validator any
}

func (s Spec) spec() Spec { return s }

// common carries the options shared by every typed builder. P is the concrete
// builder returned for chaining.
type common[P any] struct {
	s    Spec
	self P
}

func (c *common[P]) spec() Spec { return c.s }

// Default sets a default value.
func (c *common[P]) Default(v any) P {
	c.s.Default = Value(v)
	return c.self
}

// DefaultNull makes null the default (and an accepted value).
func (c *common[P]) DefaultNull() P {
	c.s.Default = Null()
	return c.self
}

// DefaultFunc sets a default computed at load time.
func (c *common[P]) DefaultFunc(fn func() any) P {
	c.s.Default = Generate(fn)
	return c.self
}

// Validate adds a custom acceptance rule.
func (c *common[P]) Validate(fn func(v any) bool) P {
	// a nil fn stays a typed nil so Define reports invalid_validator
	c.s.Validator = Validator(fn)
	return c.self
}

// NumberProperty defines a numeric property; bounds apply to the value.
type NumberProperty struct{ common[*NumberProperty] }

// Number starts a numeric property definition.
func Number() *NumberProperty {
	p := &NumberProperty{}
	p.self, p.s.Kind = p, KindNumber
	return p
}

func (p *NumberProperty) Min(n float64) *NumberProperty { p.s.Min = n; return p }
func (p *NumberProperty) Max(n float64) *NumberProperty { p.s.Max = n; return p }

// StringProperty defines a text property; bounds apply to the rune count.
type StringProperty struct{ common[*StringProperty] }

// String starts a text property definition.
func String() *StringProperty {
	p := &StringProperty{}
	p.self, p.s.Kind = p, KindString
	return p
}

func (p *StringProperty) Min(n int) *StringProperty { p.s.Min = n; return p }
func (p *StringProperty) Max(n int) *StringProperty { p.s.Max = n; return p }

// ListProperty defines an ordered sequence; bounds apply to the element count.
type ListProperty struct{ common[*ListProperty] }

// List starts a list property definition.
func List() *ListProperty {
	p := &ListProperty{}
	p.self, p.s.Kind = p, KindList
	return p
}

func (p *ListProperty) Min(n int) *ListProperty { p.s.Min = n; return p }
func (p *ListProperty) Max(n int) *ListProperty { p.s.Max = n; return p }

// MapProperty defines a key/value collection; bounds apply to the key count.
type MapProperty struct{ common[*MapProperty] }

// Map starts a map property definition.
func Map() *MapProperty {
	p := &MapProperty{}
	p.self, p.s.Kind = p, KindMap
	return p
}

func (p *MapProperty) Min(n int) *MapProperty { p.s.Min = n; return p }
func (p *MapProperty) Max(n int) *MapProperty { p.s.Max = n; return p }

// Schema records the schema whose serialized data this property holds.
func (p *MapProperty) Schema(s *Schema) *MapProperty {
	// a nil s stays a typed nil so Define reports invalid_nested_schema
	p.s.Schema = s
	return p
}

// UniqueProperty defines a system generated token that cannot change once set.
type UniqueProperty struct{ s Spec }

// Unique starts a unique token property definition.
func Unique() *UniqueProperty { return &UniqueProperty{s: Spec{Kind: KindUniqueToken}} }

func (p *UniqueProperty) spec() Spec { return p.s }

// DateProperty defines a date property. Values and bounds are time.Time or
// epoch milliseconds.
type DateProperty struct{ common[*DateProperty] }

// DateTime starts a date property definition.
func DateTime() *DateProperty {
	p := &DateProperty{}
	p.self, p.s.Kind = p, KindDateTime
	return p
}

// AutoTimestamp starts a modification time property definition. Its value is
// refreshed on every update of the owning Data and cannot be changed directly.
func AutoTimestamp() *DateProperty {
	p := &DateProperty{}
	p.self, p.s.Kind = p, KindAutoTimestamp
	return p
}

// Min sets the earliest accepted date (time.Time or epoch milliseconds).
func (p *DateProperty) Min(t any) *DateProperty { p.s.Min = t; return p }

// Max sets the latest accepted date (time.Time or epoch milliseconds).
func (p *DateProperty) Max(t any) *DateProperty { p.s.Max = t; return p }

// BooleanProperty defines a true/false property.
type BooleanProperty struct{ common[*BooleanProperty] }

// Boolean starts a boolean property definition.
func Boolean() *BooleanProperty {
	p := &BooleanProperty{}
	p.self, p.s.Kind = p, KindBoolean
	return p
}

var (
	_ Property = Spec{}
	_ Property = (*NumberProperty)(nil)
	_ Property = (*StringProperty)(nil)
	_ Property = (*ListProperty)(nil)
	_ Property = (*MapProperty)(nil)
	_ Property = (*UniqueProperty)(nil)
	_ Property = (*DateProperty)(nil)
	_ Property = (*BooleanProperty)(nil)
)
