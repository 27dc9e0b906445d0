package defender

import (
	"sort"
	"sync"
	"time"
)

// Schema is a named, lockable set of property constraints. Data objects are
// created from a Schema with Load.
//
// Define must not run concurrently with Load; lock the schema once all
// properties are defined. A locked schema is safe for concurrent use.
type Schema struct {
	mu          sync.RWMutex
	name        string
	locked      bool
	names       []string
	constraints map[string]*constraint
	unique      []string
	modtime     []string
	opts        options
}

// NewSchema creates an unregistered schema. Most callers use Registry.Create.
func NewSchema(name string, opts ...Option) *Schema {
	return &Schema{
		name:        name,
		constraints: map[string]*constraint{},
		opts:        buildOptions(opts),
	}
}

// Name returns the informational schema name.
func (s *Schema) Name() string { return s.name }

// Define adds a property. Checks run in order and the first failure wins:
// schema_locked, duplicate_property, invalid_type, invalid_max, invalid_min,
// invalid_max (max < min), invalid_default, invalid_nested_schema,
// invalid_validator.
func (s *Schema) Define(name string, p Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked {
		return issueAt(CodeSchemaLocked, name)
	}
	if _, ok := s.constraints[name]; ok {
		return issueAt(CodeDuplicateProperty, name)
	}
	if p == nil {
		return issueAt(CodeInvalidType, name, nil)
	}
	sp := p.spec()
	if !sp.Kind.Valid() {
		return issueAt(CodeInvalidType, name, int(sp.Kind))
	}

	c := &constraint{kind: sp.Kind, def: sp.Default}
	var ok bool
	if c.max, c.hasMax, ok = toBound(sp.Max); !ok {
		return issueAt(CodeInvalidMax, name, sp.Max)
	}
	if c.min, c.hasMin, ok = toBound(sp.Min); !ok {
		return issueAt(CodeInvalidMin, name, sp.Min)
	}
	if c.hasMax && c.hasMin && c.max < c.min {
		return issueAt(CodeInvalidMax, name, sp.Max)
	}

	validator, validatorOK := resolveValidator(sp.Validator)
	c.validator = validator
	if sp.Default.IsSet() && !sp.Default.IsGenerator() && !c.accepts(sp.Default.value) {
		return issueAt(CodeInvalidDefault, name, sp.Default.value)
	}
	if sp.Schema != nil {
		nested, isSchema := sp.Schema.(*Schema)
		if !isSchema || nested == nil {
			return issueAt(CodeInvalidNestedSchema, name)
		}
		c.nested = nested
	}
	if !validatorOK {
		return issueAt(CodeInvalidValidator, name)
	}

	s.constraints[name] = c
	s.names = append(s.names, name)
	switch sp.Kind {
	case KindUniqueToken:
		s.unique = append(s.unique, name)
	case KindAutoTimestamp:
		s.modtime = append(s.modtime, name)
	}
	s.opts.logger.Debug().
		Str("schema", s.name).
		Str("property", name).
		Stringer("kind", sp.Kind).
		Msg("property defined")
	return nil
}

func resolveValidator(v any) (Validator, bool) {
	switch fn := v.(type) {
	case nil:
		return nil, true
	case Validator:
		return fn, fn != nil
	case func(any) bool:
		return fn, fn != nil
	}
	return nil, false
}

// LockSchema freezes the property set. It is idempotent.
func (s *Schema) LockSchema() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.locked {
		s.locked = true
		s.opts.logger.Debug().Str("schema", s.name).Int("properties", len(s.names)).Msg("schema locked")
	}
}

// Locked reports whether LockSchema has been called.
func (s *Schema) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked
}

// PropertyNames returns the defined property names in definition order.
func (s *Schema) PropertyNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.names...)
}

// UniquePropertyNames returns the unique token properties in definition order.
func (s *Schema) UniquePropertyNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.unique...)
}

// ModtimePropertyNames returns the auto timestamp properties in definition
// order.
func (s *Schema) ModtimePropertyNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.modtime...)
}

// Kind returns the kind of a defined property.
func (s *Schema) Kind(name string) (Kind, bool) {
	c := s.constraint(name)
	if c == nil {
		return 0, false
	}
	return c.kind, true
}

// Validate reports whether value would be accepted for the property, without
// touching any Data.
func (s *Schema) Validate(name string, value any) error {
	_, err := s.normalize(name, value)
	return err
}

func (s *Schema) constraint(name string) *constraint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.constraints[name]
}

// Load creates a Data bound to this schema. Properties missing from values
// receive a fresh token (unique kind) or their default; a property with
// neither fails the whole load with missing_value.
func (s *Schema) Load(values map[string]any, opts ...LoadOption) (*Data, error) {
	s.mu.RLock()
	names := append([]string(nil), s.names...)
	constraints := make([]*constraint, len(names))
	for i, n := range names {
		constraints[i] = s.constraints[n]
	}
	s.mu.RUnlock()

	merged := make(map[string]any, len(values)+len(names))
	for k, v := range values {
		merged[k] = v
	}
	for i, name := range names {
		if _, ok := values[name]; ok {
			continue
		}
		c := constraints[i]
		switch {
		case c.kind == KindUniqueToken:
			merged[name] = s.opts.tokens.New()
		case c.def.IsSet():
			merged[name] = c.def.resolve()
		default:
			return nil, issueAt(CodeMissingValue, name)
		}
	}

	var lo loadOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&lo)
		}
	}
	d := newData(s, lo)
	if err := d.Load(merged); err != nil {
		return nil, err
	}
	return d, nil
}

// write is a normalized, accepted write produced for Data.
type write struct {
	name     string
	value    any
	noChange bool // unique tokens and auto timestamps reject differing overwrites
}

// normalize validates a write and converts dates to epoch milliseconds.
func (s *Schema) normalize(name string, value any) (write, error) {
	c := s.constraint(name)
	if c == nil {
		return write{}, issueAt(CodePropertyNotDefined, name)
	}
	stored, ok := c.check(value)
	if !ok {
		return write{}, issueAt(CodeInvalidValue, name, value)
	}
	return write{
		name:     name,
		value:    stored,
		noChange: c.kind == KindUniqueToken || c.kind == KindAutoTimestamp,
	}, nil
}

// typecast converts a stored value to its external form: epoch milliseconds
// become time.Time for date kinds.
func (s *Schema) typecast(name string, stored any) any {
	c := s.constraint(name)
	if c == nil || !c.kind.isDate() {
		return stored
	}
	if ms, ok := stored.(int64); ok {
		return time.UnixMilli(ms)
	}
	return stored
}

// orderKeys lists the keys of values in definition order, followed by
// unknown keys in lexical order.
func (s *Schema) orderKeys(values map[string]any) []string {
	s.mu.RLock()
	keys := make([]string, 0, len(values))
	for _, n := range s.names {
		if _, ok := values[n]; ok {
			keys = append(keys, n)
		}
	}
	var unknown []string
	for k := range values {
		if _, ok := s.constraints[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	s.mu.RUnlock()
	sort.Strings(unknown)
	return append(keys, unknown...)
}
