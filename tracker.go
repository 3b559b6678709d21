package videocfg

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Baseline is a deep copy of an OptionSet taken at a defined moment: after
// the global layer is loaded, before a title layer is applied, and after
// each save.
type Baseline struct {
	ID         string
	CapturedAt time.Time
	set        *OptionSet
}

// NewBaseline snapshots set.
func NewBaseline(set *OptionSet) Baseline {
	return Baseline{
		ID:         uuid.NewString(),
		CapturedAt: time.Now().UTC(),
		set:        set.Clone(),
	}
}

// IsZero reports whether no snapshot has been captured.
func (b Baseline) IsZero() bool {
	return b.set == nil
}

// Get returns the captured value of key.
func (b Baseline) Get(key string) (any, bool) {
	return b.set.Get(key)
}

// Set returns a copy of the captured set.
func (b Baseline) Set() *OptionSet {
	return b.set.Clone()
}

// Diff lists the keys whose value in current differs from baseline, in
// schema order. A zero baseline reports nothing.
func Diff(current *OptionSet, baseline Baseline, keys ...string) []string {
	if baseline.IsZero() || current == nil {
		return nil
	}
	if len(keys) == 0 {
		keys = current.Keys()
	}
	var changed []string
	for _, key := range keys {
		now, _ := current.Get(key)
		then, _ := baseline.Get(key)
		if !equalValues(now, then) {
			changed = append(changed, key)
		}
	}
	return changed
}

// Tracker detects and reverts edits to a designated subset of keys.
type Tracker struct {
	keys     []string
	baseline Baseline
}

// NewTracker tracks keys, or every schema key when none are given.
func NewTracker(keys ...string) *Tracker {
	return &Tracker{keys: slices.Clone(keys)}
}

// Keys returns the tracked keys; nil means all keys.
func (t *Tracker) Keys() []string {
	return slices.Clone(t.keys)
}

// Capture replaces the baseline with a snapshot of set.
func (t *Tracker) Capture(set *OptionSet) Baseline {
	t.baseline = NewBaseline(set)
	return t.baseline
}

// Accept copies the values of keys from set into the baseline, leaving
// every other captured value alone. Without a baseline the whole set is
// captured.
func (t *Tracker) Accept(set *OptionSet, keys ...string) Baseline {
	if t.baseline.IsZero() {
		return t.Capture(set)
	}
	next := t.baseline.Set()
	for _, key := range keys {
		if value, ok := set.Get(key); ok {
			next.values[key] = value
		}
	}
	t.baseline = NewBaseline(next)
	return t.baseline
}

// Baseline returns the current baseline.
func (t *Tracker) Baseline() Baseline {
	return t.baseline
}

// Diff lists the tracked keys that changed since the baseline.
func (t *Tracker) Diff(set *OptionSet) []string {
	return Diff(set, t.baseline, t.trackedKeys(set)...)
}

// IsModified reports whether any tracked key differs from the baseline.
func (t *Tracker) IsModified(set *OptionSet) bool {
	return len(t.Diff(set)) > 0
}

// Revert replaces every value of set with the baseline and returns set.
// Tracked keys only decide what counts as modified; a revert is always
// baseline-exact.
func (t *Tracker) Revert(set *OptionSet) *OptionSet {
	if t.baseline.IsZero() || set == nil {
		return set
	}
	for _, key := range set.Keys() {
		if value, ok := t.baseline.Get(key); ok {
			set.values[key] = value
		}
	}
	return set
}

func (t *Tracker) trackedKeys(set *OptionSet) []string {
	if len(t.keys) > 0 {
		return t.keys
	}
	if set == nil {
		return nil
	}
	return set.Keys()
}

// SavePlan describes how a set should be persisted into a sparse layer:
// keys that differ from the layer defaults are written, keys that equal
// them are deleted so the layer only records genuine overrides.
type SavePlan struct {
	Writes  Layer
	Deletes []string
}

// Empty reports whether the plan writes nothing.
func (p SavePlan) Empty() bool {
	return p.Writes.Len() == 0
}

// PlanSave compares keys of current against defaults (falling back to the
// compiled default when defaults has no entry) and splits them into writes
// and deletes. An empty keys list means every schema key.
func PlanSave(current *OptionSet, defaults Layer, keys ...string) SavePlan {
	plan := SavePlan{Writes: NewLayer(defaults.Name, nil)}
	if len(keys) == 0 {
		keys = current.Keys()
	}
	schema := current.Schema()
	for _, key := range keys {
		opt, ok := schema.Lookup(key)
		if !ok {
			continue
		}
		value, _ := current.Get(opt.Key)
		if equalValues(value, referenceDefault(opt, defaults)) {
			plan.Deletes = append(plan.Deletes, opt.Key)
			continue
		}
		plan.Writes.Set(opt.Key, value)
	}
	return plan
}
