package videocfg

import (
	"fmt"
	"slices"
	"strings"
)

// ResolveFunc combines the value currently held by an option with an
// override before the override is stored. It receives canonical values and
// must return a value of the same kind.
type ResolveFunc func(current, override any) any

// Option describes one named render setting.
type Option struct {
	// Key is the "Section.Name" identifier of the option.
	Key  string
	Kind Kind
	// Default is the compiled default and must already be of Kind.
	Default any
	// Values holds the labels of a KindEnum option, indexed by value.
	Values []string
	// Sentinel marks a layer value that means "no override" even when present.
	Sentinel any
	// Resolve, when set, post-processes an override against the current value.
	Resolve ResolveFunc
	// Tracked options take part in modification tracking and title saves.
	Tracked bool
	// TitleScoped options are reset to their defaults before a title layer is
	// applied so values from a previous title never leak into the next one.
	TitleScoped bool
	// Aliases lists legacy keys accepted on load and mapped onto Key.
	Aliases []string
	// Warning, when set, is surfaced on global load if the option differs from
	// its default.
	Warning     string
	Description string
}

// Section returns the part of the key before the first dot.
func (o Option) Section() string {
	section, _, _ := strings.Cut(o.Key, ".")
	return section
}

// Name returns the part of the key after the first dot.
func (o Option) Name() string {
	_, name, _ := strings.Cut(o.Key, ".")
	return name
}

// Label returns the enum label for value, or its decimal form.
func (o Option) Label(value any) string {
	if o.Kind == KindEnum {
		if idx, ok := value.(int); ok && idx >= 0 && idx < len(o.Values) {
			return o.Values[idx]
		}
	}
	return fmt.Sprint(value)
}

func (o Option) validate() error {
	section, name, ok := strings.Cut(o.Key, ".")
	if !ok || section == "" || name == "" {
		return fmt.Errorf("%w: key %q must be Section.Name", ErrInvalidOption, o.Key)
	}
	if o.Kind <= KindInvalid || o.Kind > KindEnum {
		return fmt.Errorf("%w: %s has unsupported kind %d", ErrInvalidOption, o.Key, o.Kind)
	}
	if o.Default == nil {
		return fmt.Errorf("%w: %s has no default", ErrInvalidOption, o.Key)
	}
	value, err := coerce(o, o.Default)
	if err != nil {
		return fmt.Errorf("%w: %s default: %v", ErrInvalidOption, o.Key, err)
	}
	if !equalValues(value, o.Default) {
		return fmt.Errorf("%w: %s default must be a canonical %s", ErrInvalidOption, o.Key, o.Kind)
	}
	if o.Sentinel != nil {
		if _, err := coerce(o, o.Sentinel); err != nil {
			return fmt.Errorf("%w: %s sentinel: %v", ErrInvalidOption, o.Key, err)
		}
	}
	return nil
}

// Schema is the registry of every option the system knows about. Options are
// registered up front; a Schema must not be modified once OptionSets have
// been created from it.
type Schema struct {
	options []Option
	index   map[string]int
	aliases map[string]string
}

// NewSchema registers options in order.
func NewSchema(options ...Option) (*Schema, error) {
	s := &Schema{
		index:   map[string]int{},
		aliases: map[string]string{},
	}
	for _, opt := range options {
		if err := s.Register(opt); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustSchema is NewSchema for static tables; it panics on error.
func MustSchema(options ...Option) *Schema {
	s, err := NewSchema(options...)
	if err != nil {
		panic(err)
	}
	return s
}

// Register adds a single option.
func (s *Schema) Register(opt Option) error {
	if err := opt.validate(); err != nil {
		return err
	}
	if s.index == nil {
		s.index = map[string]int{}
		s.aliases = map[string]string{}
	}
	if _, exists := s.index[opt.Key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateOption, opt.Key)
	}
	if _, exists := s.aliases[opt.Key]; exists {
		return fmt.Errorf("%w: %s is already an alias", ErrDuplicateOption, opt.Key)
	}
	for _, alias := range opt.Aliases {
		if _, exists := s.index[alias]; exists {
			return fmt.Errorf("%w: alias %s", ErrDuplicateOption, alias)
		}
		if _, exists := s.aliases[alias]; exists {
			return fmt.Errorf("%w: alias %s", ErrDuplicateOption, alias)
		}
	}

	opt.Values = slices.Clone(opt.Values)
	opt.Aliases = slices.Clone(opt.Aliases)
	s.index[opt.Key] = len(s.options)
	s.options = append(s.options, opt)
	for _, alias := range opt.Aliases {
		s.aliases[alias] = opt.Key
	}
	return nil
}

// Lookup returns the option registered under key or one of its aliases.
func (s *Schema) Lookup(key string) (Option, bool) {
	if s == nil {
		return Option{}, false
	}
	canonical, ok := s.Canonical(key)
	if !ok {
		return Option{}, false
	}
	return s.options[s.index[canonical]], true
}

// Canonical maps key (or a legacy alias) to the registered key.
func (s *Schema) Canonical(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	if _, ok := s.index[key]; ok {
		return key, true
	}
	if canonical, ok := s.aliases[key]; ok {
		return canonical, true
	}
	return "", false
}

// Len reports the number of registered options.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.options)
}

// Options returns the registered options in registration order.
func (s *Schema) Options() []Option {
	if s == nil {
		return nil
	}
	return slices.Clone(s.options)
}

// Keys returns every registered key in registration order.
func (s *Schema) Keys() []string {
	return s.keysWhere(func(Option) bool { return true })
}

// TrackedKeys returns the keys that take part in modification tracking.
func (s *Schema) TrackedKeys() []string {
	return s.keysWhere(func(o Option) bool { return o.Tracked })
}

// TitleScopedKeys returns the keys reset before each title layer.
func (s *Schema) TitleScopedKeys() []string {
	return s.keysWhere(func(o Option) bool { return o.TitleScoped })
}

func (s *Schema) keysWhere(match func(Option) bool) []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.options))
	for _, opt := range s.options {
		if match(opt) {
			keys = append(keys, opt.Key)
		}
	}
	return keys
}

// DefaultLayer returns a layer holding every compiled default.
func (s *Schema) DefaultLayer(name string) Layer {
	layer := NewLayer(name, nil)
	if s == nil {
		return layer
	}
	for _, opt := range s.options {
		layer.Set(opt.Key, opt.Default)
	}
	return layer
}

// FieldDescriptor describes one registered option for tooling.
type FieldDescriptor struct {
	Path    string   `json:"path"`
	Type    string   `json:"type"`
	Default any      `json:"default"`
	Values  []string `json:"values,omitempty"`
	Tracked bool     `json:"tracked,omitempty"`
}

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors represents the flattened field descriptors.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatOpenAPI represents OpenAPI-compatible JSON Schema documents.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument encapsulates a generated schema output alongside its format
// identifier. Document must be JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
}

// SchemaGenerator renders a Schema into a document. Implementations must be
// safe for concurrent use and return an empty document for a nil schema.
type SchemaGenerator interface {
	Generate(schema *Schema) (SchemaDocument, error)
}

// DefaultSchemaGenerator returns the built-in descriptor-based generator.
func DefaultSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

type descriptorGenerator struct{}

func (descriptorGenerator) Generate(schema *Schema) (SchemaDocument, error) {
	descriptors := make([]FieldDescriptor, 0, schema.Len())
	for _, opt := range schema.Options() {
		descriptors = append(descriptors, FieldDescriptor{
			Path:    opt.Key,
			Type:    opt.Kind.String(),
			Default: opt.Default,
			Values:  opt.Values,
			Tracked: opt.Tracked,
		})
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
	}, nil
}
