package videocfg

import (
	"fmt"
	"time"
)

// Notification durations used for override notes and unsaved-change warnings.
const (
	OverrideNoticeDuration  = 7500 * time.Millisecond
	OverrideSummaryDuration = 10 * time.Second
)

// ChangeNotice records one override applied by a layer.
type ChangeNotice struct {
	Key      string
	Layer    string
	Previous any
	Value    any
}

// Message renders the user-facing note for the override.
func (n ChangeNotice) Message() string {
	return fmt.Sprintf("Note: %s is overridden by %s settings.", n.Key, n.Layer)
}

// MergeResult is the detailed outcome of ApplyLayer.
type MergeResult struct {
	Set     *OptionSet
	Notices []ChangeNotice
	// Ignored lists layer keys that were unknown or not coercible.
	Ignored []string
}

// Overrides returns the keys that took a value from the layer.
func (r MergeResult) Overrides() []string {
	keys := make([]string, len(r.Notices))
	for i, notice := range r.Notices {
		keys[i] = notice.Key
	}
	return keys
}

// ApplyLayer overlays layer on base and returns the result with one notice
// per applied override. base is not modified.
func ApplyLayer(base *OptionSet, layer, layerDefaults Layer) (*OptionSet, []ChangeNotice) {
	result := ApplyLayerDetailed(base, layer, layerDefaults)
	return result.Set, result.Notices
}

// ApplyLayerDetailed is ApplyLayer reporting ignored keys as well.
//
// A key present in layer overrides base only when its value is not the
// option's sentinel and differs from the reference default: the layer's own
// recorded default in layerDefaults when present, else the compiled default.
// A layer that repeats its default is treated as expressing no opinion, so a
// global user setting survives it. Options with a Resolve function combine
// the override with the value currently held.
func ApplyLayerDetailed(base *OptionSet, layer, layerDefaults Layer) MergeResult {
	out := base.Clone()
	result := MergeResult{Set: out}
	schema := base.Schema()

	for _, key := range layer.Keys() {
		opt, ok := schema.Lookup(key)
		if !ok {
			result.Ignored = append(result.Ignored, key)
			continue
		}
		if key != opt.Key && layer.Has(opt.Key) {
			continue
		}
		raw, _ := layer.Get(key)
		value, err := coerce(opt, raw)
		if err != nil {
			result.Ignored = append(result.Ignored, key)
			continue
		}
		if opt.Sentinel != nil {
			if sentinel, err := coerce(opt, opt.Sentinel); err == nil && equalValues(value, sentinel) {
				continue
			}
		}
		if equalValues(value, referenceDefault(opt, layerDefaults)) {
			continue
		}

		previous, _ := out.Get(opt.Key)
		next := value
		if opt.Resolve != nil {
			resolved, err := coerce(opt, opt.Resolve(previous, value))
			if err != nil {
				result.Ignored = append(result.Ignored, key)
				continue
			}
			next = resolved
		}
		out.values[opt.Key] = next
		result.Notices = append(result.Notices, ChangeNotice{
			Key:      opt.Key,
			Layer:    layer.Name,
			Previous: previous,
			Value:    next,
		})
	}
	return result
}

func referenceDefault(opt Option, layerDefaults Layer) any {
	for _, key := range append([]string{opt.Key}, opt.Aliases...) {
		raw, ok := layerDefaults.Get(key)
		if !ok {
			continue
		}
		if value, err := coerce(opt, raw); err == nil {
			return value
		}
	}
	return opt.Default
}

// DefaultView builds the set a reset-to-defaults produces for keys: every
// key takes the first explicit value found in defaults (ordered strongest
// first, e.g. revision defaults then title defaults), else its compiled
// default. Keys outside the list also hold compiled defaults. An empty list
// means every schema key.
func DefaultView(schema *Schema, keys []string, defaults ...Layer) *OptionSet {
	scoped := make([]ScopedLayer, 0, len(defaults))
	for i, layer := range defaults {
		normalized, _ := layer.Normalize(schema)
		scoped = append(scoped, ScopedLayer{
			Scope: NewScope(fmt.Sprintf("defaults-%d", i), len(defaults)-i),
			Layer: normalized,
		})
	}
	set := NewOptionSet(schema)
	stack, err := NewStack(scoped...)
	if err != nil {
		return set
	}
	merged := stack.Merge("defaults")
	if len(keys) == 0 {
		keys = schema.Keys()
	}
	for _, key := range keys {
		opt, ok := schema.Lookup(key)
		if !ok {
			continue
		}
		if raw, found := merged.Get(opt.Key); found {
			_ = set.Set(opt.Key, raw)
		}
	}
	return set
}
