package videocfg

import (
	"fmt"
	"maps"
)

// OptionSet is a complete assignment of a value to every option in a Schema.
// It is a value-semantics container: Clone before handing it to another owner.
type OptionSet struct {
	schema *Schema
	values map[string]any
}

// NewOptionSet returns a set populated with the compiled defaults of schema.
func NewOptionSet(schema *Schema) *OptionSet {
	set := &OptionSet{
		schema: schema,
		values: make(map[string]any, schema.Len()),
	}
	for _, opt := range schema.Options() {
		set.values[opt.Key] = opt.Default
	}
	return set
}

// Schema returns the registry the set was built from.
func (s *OptionSet) Schema() *Schema {
	return s.schema
}

// Get returns the value stored for key. Aliases are accepted.
func (s *OptionSet) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	canonical, ok := s.schema.Canonical(key)
	if !ok {
		return nil, false
	}
	v, ok := s.values[canonical]
	return v, ok
}

// Bool returns the value of a bool option, or false.
func (s *OptionSet) Bool(key string) bool {
	v, _ := s.Get(key)
	b, _ := v.(bool)
	return b
}

// Int returns the value of an int or enum option, or 0.
func (s *OptionSet) Int(key string) int {
	v, _ := s.Get(key)
	n, _ := v.(int)
	return n
}

// Float returns the value of a float option, or 0.
func (s *OptionSet) Float(key string) float64 {
	v, _ := s.Get(key)
	f, _ := v.(float64)
	return f
}

// StringValue returns the value of a string option, or "".
func (s *OptionSet) StringValue(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// Set stores value for key after coercing it to the option kind.
func (s *OptionSet) Set(key string, value any) error {
	opt, ok := s.schema.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOption, key)
	}
	coerced, err := coerce(opt, value)
	if err != nil {
		return err
	}
	s.values[opt.Key] = coerced
	return nil
}

// Reset restores key to its compiled default.
func (s *OptionSet) Reset(key string) error {
	opt, ok := s.schema.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOption, key)
	}
	s.values[opt.Key] = opt.Default
	return nil
}

// Clone returns an independent copy of the set.
func (s *OptionSet) Clone() *OptionSet {
	if s == nil {
		return nil
	}
	return &OptionSet{
		schema: s.schema,
		values: maps.Clone(s.values),
	}
}

// Equal reports whether both sets hold the same value for every key.
func (s *OptionSet) Equal(other *OptionSet) bool {
	if s == nil || other == nil {
		return s == other
	}
	return maps.EqualFunc(s.values, other.values, equalValues)
}

// Keys returns the schema keys in registration order.
func (s *OptionSet) Keys() []string {
	return s.schema.Keys()
}

// Map returns a copy of the stored values keyed by option key.
func (s *OptionSet) Map() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	return maps.Clone(s.values)
}

// Nested returns the values grouped by section, the shape rule expressions
// see under "options".
func (s *OptionSet) Nested() map[string]any {
	out := map[string]any{}
	if s == nil {
		return out
	}
	for _, opt := range s.schema.Options() {
		section, ok := out[opt.Section()].(map[string]any)
		if !ok {
			section = map[string]any{}
			out[opt.Section()] = section
		}
		section[opt.Name()] = s.values[opt.Key]
	}
	return out
}

// Layer returns a layer holding the current values of keys, or of every key
// when none are named.
func (s *OptionSet) Layer(name string, keys ...string) Layer {
	if len(keys) == 0 {
		keys = s.Keys()
	}
	layer := NewLayer(name, nil)
	for _, key := range keys {
		if v, ok := s.Get(key); ok {
			canonical, _ := s.schema.Canonical(key)
			layer.Set(canonical, v)
		}
	}
	return layer
}
