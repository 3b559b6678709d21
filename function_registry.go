package videocfg

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Function is a helper callable from rule expressions.
type Function func(args ...any) (any, error)

// FunctionRegistry holds the helpers rule conditions may call. Names are
// matched case-insensitively and reported as registered.
type FunctionRegistry struct {
	mu      sync.RWMutex
	entries map[string]registeredFunction
}

type registeredFunction struct {
	name string
	fn   Function
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{entries: map[string]registeredFunction{}}
}

// Register adds fn under name. Names are unique regardless of case.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.New("videocfg: function name must not be empty")
	case fn == nil:
		return fmt.Errorf("videocfg: function %q is nil", name)
	}
	key := strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = map[string]registeredFunction{}
	}
	if existing, taken := r.entries[key]; taken {
		return fmt.Errorf("videocfg: function %q already registered as %q", name, existing.name)
	}
	r.entries[key] = registeredFunction{name: name, fn: fn}
	return nil
}

// Clone returns an independent registry with the same functions.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &FunctionRegistry{entries: maps.Clone(r.entries)}
}

// Call runs the function registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("videocfg: no functions registered, cannot call %q", name)
	}
	r.mu.RLock()
	entry, ok := r.entries[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("videocfg: function %q not registered", name)
	}
	return entry.fn(args...)
}

// Names lists the registered names in sorted order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		names = append(names, entry.name)
	}
	slices.Sort(names)
	return names
}

// CapabilityFunctions returns helpers for capability checks in rule
// expressions: hasAAMode(caps, n) and clampIndex(value, count).
func CapabilityFunctions() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("hasAAMode", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("hasAAMode expects 2 arguments, got %d", len(args))
		}
		caps, ok := args[0].(map[string]any)
		if !ok {
			return false, nil
		}
		want, ok := integral(args[1])
		if !ok {
			return false, nil
		}
		modes, _ := caps["aa_modes"].([]any)
		for _, mode := range modes {
			if n, ok := integral(mode); ok && n == want {
				return true, nil
			}
		}
		return false, nil
	})
	_ = registry.Register("clampIndex", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("clampIndex expects 2 arguments, got %d", len(args))
		}
		value, okValue := integral(args[0])
		count, okCount := integral(args[1])
		if !okValue || !okCount {
			return nil, fmt.Errorf("clampIndex expects integers")
		}
		if value < 0 || value >= count {
			return 0, nil
		}
		return int(value), nil
	})
	return registry
}
