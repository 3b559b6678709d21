package videocfg

import (
	"fmt"
	"maps"
	"slices"

	"github.com/goliatone/go-videoconfig/layering"
)

// Layer is a sparse mapping from option key to value: the contents of one
// persisted override source. Absent keys mean "no opinion". The zero Layer is
// empty and ready to use.
type Layer struct {
	Name   string
	values map[string]any
}

// NewLayer copies values into a new layer.
func NewLayer(name string, values map[string]any) Layer {
	layer := Layer{Name: name, values: make(map[string]any, len(values))}
	for key, value := range values {
		layer.values[key] = value
	}
	return layer
}

// Get returns the raw value stored for key.
func (l Layer) Get(key string) (any, bool) {
	v, ok := l.values[key]
	return v, ok
}

// Has reports whether the layer expresses an opinion about key.
func (l Layer) Has(key string) bool {
	_, ok := l.values[key]
	return ok
}

// Set stores value under key.
func (l *Layer) Set(key string, value any) {
	if l.values == nil {
		l.values = map[string]any{}
	}
	l.values[key] = value
}

// Delete removes key from the layer.
func (l *Layer) Delete(key string) {
	delete(l.values, key)
}

// Len reports the number of keys present.
func (l Layer) Len() int {
	return len(l.values)
}

// Keys returns the present keys sorted.
func (l Layer) Keys() []string {
	return slices.Sorted(maps.Keys(l.values))
}

// Values returns a copy of the stored entries.
func (l Layer) Values() map[string]any {
	out := make(map[string]any, len(l.values))
	maps.Copy(out, l.values)
	return out
}

// Clone returns a layer that shares no state with l.
func (l Layer) Clone() Layer {
	return NewLayer(l.Name, l.values)
}

// Normalize maps aliases onto canonical keys and coerces every value to its
// option kind. Keys the schema does not know and values that cannot be
// coerced are dropped and reported. A canonical key wins over its alias when
// both are present.
func (l Layer) Normalize(schema *Schema) (Layer, []string) {
	out := NewLayer(l.Name, nil)
	var dropped []string
	for _, key := range l.Keys() {
		opt, ok := schema.Lookup(key)
		if !ok {
			dropped = append(dropped, key)
			continue
		}
		if key != opt.Key && l.Has(opt.Key) {
			continue
		}
		value, err := coerce(opt, l.values[key])
		if err != nil {
			dropped = append(dropped, key)
			continue
		}
		out.Set(opt.Key, value)
	}
	return out, dropped
}

// MergeLayer composes layers ordered strongest to weakest into a single
// layer named name.
func MergeLayer(name string, layers ...Layer) Layer {
	values := make([]map[string]any, len(layers))
	for i, layer := range layers {
		values[i] = layer.values
	}
	return Layer{Name: name, values: layering.Merge(values...)}
}

func (l Layer) String() string {
	return fmt.Sprintf("%s%v", l.Name, l.values)
}
