package videocfg

import (
	"errors"
	"fmt"
	"maps"
	"sort"

	"github.com/goliatone/go-videoconfig/layering"
)

// Scope names a precedence bucket (global, title default, title revision,
// title local). Higher priority values represent stronger layers.
type Scope struct {
	Name     string
	Label    string
	Priority int
	Metadata map[string]any
}

// ScopeOption configures metadata on Scope creation.
type ScopeOption func(*Scope)

// WithScopeLabel sets a human-friendly label on the scope.
func WithScopeLabel(label string) ScopeOption {
	return func(s *Scope) {
		s.Label = label
	}
}

// WithScopeMetadata attaches metadata to the scope. The map is copied.
func WithScopeMetadata(metadata map[string]any) ScopeOption {
	return func(s *Scope) {
		s.Metadata = maps.Clone(metadata)
	}
}

// NewScope builds a Scope. Validation is deferred to Stack construction.
func NewScope(name string, priority int, opts ...ScopeOption) Scope {
	scope := Scope{Name: name, Priority: priority}
	for _, opt := range opts {
		if opt != nil {
			opt(&scope)
		}
	}
	return scope
}

func (s Scope) clone() Scope {
	s.Metadata = maps.Clone(s.Metadata)
	return s
}

// ScopedLayer pairs a scope with the layer captured for it.
type ScopedLayer struct {
	Scope  Scope
	Layer  Layer
	Source layering.Source
}

var (
	// ErrScopeNameRequired indicates a missing scope name.
	ErrScopeNameRequired = errors.New("scope: name must be provided")
	// ErrDuplicateScopeName indicates two layers share a scope name.
	ErrDuplicateScopeName = errors.New("scope: names must be unique")
	// ErrPriorityOrder indicates duplicate priorities.
	ErrPriorityOrder = errors.New("scope: priorities must be strictly ordered")
)

// Stack is an immutable set of scoped layers ordered strongest first.
type Stack struct {
	layers []ScopedLayer
}

// NewStack validates and sorts layers so that the highest priority is first.
// Layers are copied.
func NewStack(layers ...ScopedLayer) (*Stack, error) {
	seen := make(map[string]struct{}, len(layers))
	copied := make([]ScopedLayer, len(layers))
	for i, layer := range layers {
		if layer.Scope.Name == "" {
			return nil, ErrScopeNameRequired
		}
		if _, ok := seen[layer.Scope.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScopeName, layer.Scope.Name)
		}
		seen[layer.Scope.Name] = struct{}{}
		copied[i] = ScopedLayer{
			Scope:  layer.Scope.clone(),
			Layer:  layer.Layer.Clone(),
			Source: layer.Source,
		}
	}

	sort.Slice(copied, func(i, j int) bool {
		if copied[i].Scope.Priority == copied[j].Scope.Priority {
			return copied[i].Scope.Name < copied[j].Scope.Name
		}
		return copied[i].Scope.Priority > copied[j].Scope.Priority
	})
	for i := 1; i < len(copied); i++ {
		if copied[i-1].Scope.Priority <= copied[i].Scope.Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, copied[i].Scope.Priority)
		}
	}
	return &Stack{layers: copied}, nil
}

// Layers returns copies of the stacked layers, strongest first.
func (s *Stack) Layers() []ScopedLayer {
	if s == nil {
		return nil
	}
	out := make([]ScopedLayer, len(s.layers))
	for i, layer := range s.layers {
		out[i] = ScopedLayer{Scope: layer.Scope.clone(), Layer: layer.Layer.Clone(), Source: layer.Source}
	}
	return out
}

// Len returns the number of layers in the stack.
func (s *Stack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.layers)
}

// Merge collapses the stack into one sparse layer.
func (s *Stack) Merge(name string) Layer {
	if s == nil {
		return NewLayer(name, nil)
	}
	layers := make([]Layer, len(s.layers))
	for i, layer := range s.layers {
		layers[i] = layer.Layer
	}
	return MergeLayer(name, layers...)
}

// Trace reports how every scope contributes to key. The effective value is
// the first found entry.
func (s *Stack) Trace(key string) Trace {
	trace := Trace{Key: key}
	if s == nil {
		return trace
	}
	for _, layer := range s.layers {
		value, found := layer.Layer.Get(key)
		trace.Layers = append(trace.Layers, Provenance{
			Scope:  layer.Scope.clone(),
			Source: sourceID(layer.Source),
			Value:  value,
			Found:  found,
		})
		if found && !trace.Resolved {
			trace.Effective = value
			trace.Resolved = true
		}
	}
	return trace
}

func sourceID(source layering.Source) string {
	if !source.Valid() {
		return ""
	}
	return source.Identifier()
}
