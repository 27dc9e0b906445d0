// Package schemafile loads schema definitions written in YAML into a
// defender.Registry.
//
// A file holds an ordered list of schemas. Properties keep the order in which
// they are written, which is the order Data applies and reports them in:
//
//	schemas:
//	  - name: address
//	    lock: true
//	    properties:
//	      city: {type: string, min: 1}
//	  - name: user
//	    lock: true
//	    properties:
//	      id:      {type: unique}
//	      name:    {type: string, min: 2, max: 10, pattern: "^[a-z]+$"}
//	      address: {type: map, schema: address, default: null}
//	      born:    {type: datetime, max: "2030-01-01T00:00:00Z"}
//	      updated: {type: modtime, default: now}
//
// Date defaults and bounds are RFC 3339 strings or epoch milliseconds; the
// default "now" is evaluated on every load. A schema reference must name a
// schema that is already registered or defined earlier in the file (or the
// schema itself).
package schemafile

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	defender "github.com/reoring/defender"
	"github.com/reoring/defender/clock"
	"github.com/reoring/defender/i18n"
)

// File is the top-level document.
type File struct {
	Schemas []SchemaDoc `yaml:"schemas"`
}

// SchemaDoc is one schema entry. Properties is kept as a node so the mapping
// order survives decoding.
type SchemaDoc struct {
	Name       string    `yaml:"name"`
	Lock       bool      `yaml:"lock"`
	Properties yaml.Node `yaml:"properties"`
}

// Option configures Load.
type Option func(*config)

type config struct {
	clock  clock.Clock
	logger zerolog.Logger
}

// WithClock sets the time source behind "now" defaults.
func WithClock(c clock.Clock) Option {
	return func(cfg *config) {
		if c != nil {
			cfg.clock = c
		}
	}
}

// WithLogger logs every loaded schema at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

// LoadFile reads path and loads it with Load.
func LoadFile(r *defender.Registry, path string, opts ...Option) ([]*defender.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	schemas, err := Load(r, data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return schemas, nil
}

// Load creates every schema of data in r, in file order, and returns them.
// Loading stops at the first failure; schemas created before it stay
// registered.
func Load(r *defender.Registry, data []byte, opts ...Option) ([]*defender.Schema, error) {
	cfg := config{clock: clock.Real{}, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	out := make([]*defender.Schema, 0, len(f.Schemas))
	for _, doc := range f.Schemas {
		s, err := cfg.build(r, doc)
		if err != nil {
			return out, fmt.Errorf("schema %q: %w", doc.Name, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (cfg *config) build(r *defender.Registry, doc SchemaDoc) (*defender.Schema, error) {
	s, err := r.Create(doc.Name)
	if err != nil {
		return nil, err
	}
	props := &doc.Properties
	switch props.Kind {
	case 0:
		// no properties
	case yaml.MappingNode:
		for i := 0; i+1 < len(props.Content); i += 2 {
			name := props.Content[i].Value
			if _, dup := s.Kind(name); dup {
				// Define owns the duplicate_property issue.
				return nil, s.Define(name, nil)
			}
			spec, err := cfg.property(r, name, props.Content[i+1])
			if err != nil {
				return nil, err
			}
			if err := s.Define(name, spec); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("line %d: properties must be a mapping", props.Line)
	}
	if doc.Lock {
		s.LockSchema()
	}
	cfg.logger.Debug().
		Str("schema", doc.Name).
		Int("properties", len(s.PropertyNames())).
		Bool("locked", s.Locked()).
		Msg("schema loaded")
	return s, nil
}

// property translates one property mapping into a defender.Spec. Value
// problems (bad bounds, defaults, references) are left to Define so they
// carry the usual issue codes.
func (cfg *config) property(r *defender.Registry, name string, n *yaml.Node) (defender.Spec, error) {
	var spec defender.Spec
	if n.Kind != yaml.MappingNode {
		return spec, fmt.Errorf("line %d: property %q must be a mapping", n.Line, name)
	}
	var (
		kindNode, defNode, minNode, maxNode *yaml.Node
		ref, pattern                         string
	)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		switch key.Value {
		case "type":
			kindNode = val
		case "default":
			defNode = val
		case "min":
			minNode = val
		case "max":
			maxNode = val
		case "schema":
			ref = val.Value
		case "pattern":
			pattern = val.Value
		default:
			return spec, fmt.Errorf("line %d: property %q: unknown key %q", key.Line, name, key.Value)
		}
	}

	if kindNode == nil {
		return spec, invalidType(name, nil)
	}
	kind, err := defender.ParseKind(kindNode.Value)
	if err != nil {
		return spec, invalidType(name, kindNode.Value)
	}
	spec.Kind = kind
	date := kind == defender.KindDateTime || kind == defender.KindAutoTimestamp

	if spec.Min, err = scalar(minNode, date); err != nil {
		return spec, err
	}
	if spec.Max, err = scalar(maxNode, date); err != nil {
		return spec, err
	}
	if defNode != nil {
		if spec.Default, err = cfg.defaultOf(defNode, date); err != nil {
			return spec, err
		}
	}
	if ref != "" {
		nested, err := r.Get(ref)
		if err != nil {
			return spec, err
		}
		spec.Schema = nested
	}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			iss := defender.Issues{{
				Path:    "/" + name,
				Code:    defender.CodeInvalidValidator,
				Message: i18n.T(defender.CodeInvalidValidator, map[string]string{"name": name}),
				Cause:   err,
			}}
			return spec, iss
		}
		spec.Validator = func(v any) bool {
			s, ok := v.(string)
			return ok && re.MatchString(s)
		}
	}
	return spec, nil
}

func (cfg *config) defaultOf(n *yaml.Node, date bool) (defender.Default, error) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		return defender.Null(), nil
	}
	if date && n.Kind == yaml.ScalarNode && n.Value == "now" {
		clk := cfg.clock
		return defender.Generate(func() any { return clk.Now() }), nil
	}
	v, err := scalar(n, date)
	if err != nil {
		return defender.Default{}, err
	}
	return defender.Value(v), nil
}

// scalar decodes a bound or default. For date kinds, strings and YAML
// timestamps are parsed as RFC 3339.
func scalar(n *yaml.Node, date bool) (any, error) {
	if n == nil {
		return nil, nil
	}
	if date && n.Kind == yaml.ScalarNode && (n.ShortTag() == "!!str" || n.ShortTag() == "!!timestamp") {
		t, err := time.Parse(time.RFC3339Nano, n.Value)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return t, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	return v, nil
}

func invalidType(name string, value any) defender.Issues {
	data := map[string]string{"name": name, "value": fmt.Sprint(value)}
	if value == nil {
		data["value"] = "null"
	}
	return defender.Issues{{
		Path:    "/" + name,
		Code:    defender.CodeInvalidType,
		Message: i18n.T(defender.CodeInvalidType, data),
		Params:  map[string]any{"name": name, "value": value},
	}}
}
