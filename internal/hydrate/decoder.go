// Package hydrate turns loosely typed reports (capability probes, JSON
// fixtures) into typed structs. Key aliases are folded and rewrite hooks
// run before decoding; finish hooks run after.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Origin names where a report came from. It prefixes every error.
type Origin struct {
	// Source is the producer, e.g. a file path or "backend".
	Source string
	// Kind names the report type, e.g. "capability report".
	Kind string
}

func (o Origin) String() string {
	kind := o.Kind
	if kind == "" {
		kind = "report"
	}
	if o.Source == "" {
		return kind
	}
	return fmt.Sprintf("%s from %q", kind, o.Source)
}

// Option configures a Decoder.
type Option[T any] func(*Decoder[T])

// Aliases folds alternative key spellings onto canonical keys. When both
// spellings are present the canonical value wins.
func Aliases[T any](aliases map[string]string) Option[T] {
	return func(d *Decoder[T]) {
		for alias, canonical := range aliases {
			d.aliases[alias] = canonical
		}
	}
}

// Rewrite edits the report copy before decoding.
func Rewrite[T any](fn func(Origin, map[string]any) error) Option[T] {
	return func(d *Decoder[T]) {
		if fn != nil {
			d.rewrites = append(d.rewrites, fn)
		}
	}
}

// Finish adjusts or checks the decoded value.
func Finish[T any](fn func(Origin, *T) error) Option[T] {
	return func(d *Decoder[T]) {
		if fn != nil {
			d.finishers = append(d.finishers, fn)
		}
	}
}

// Strict rejects keys T does not declare.
func Strict[T any]() Option[T] {
	return func(d *Decoder[T]) { d.strict = true }
}

// Numbers decodes numbers into json.Number where T holds interface values.
func Numbers[T any]() Option[T] {
	return func(d *Decoder[T]) { d.numbers = true }
}

// Decoder converts reports into T. A Decoder is safe for concurrent use
// once built.
type Decoder[T any] struct {
	aliases   map[string]string
	rewrites  []func(Origin, map[string]any) error
	finishers []func(Origin, *T) error
	strict    bool
	numbers   bool
}

// NewDecoder builds a Decoder from opts.
func NewDecoder[T any](opts ...Option[T]) *Decoder[T] {
	d := &Decoder[T]{aliases: map[string]string{}}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// DecodeJSON parses raw as a JSON object and decodes it.
func (d *Decoder[T]) DecodeJSON(origin Origin, raw []byte) (T, error) {
	var report map[string]any
	if err := json.Unmarshal(raw, &report); err != nil {
		var zero T
		return zero, fmt.Errorf("hydrate: parse %s: %w", origin, err)
	}
	return d.Decode(origin, report)
}

// Decode converts report into T. report itself is never modified.
func (d *Decoder[T]) Decode(origin Origin, report map[string]any) (T, error) {
	var out T
	if report == nil {
		return out, fmt.Errorf("hydrate: %s is nil", origin)
	}
	working, err := deepCopy(report)
	if err != nil {
		return out, fmt.Errorf("hydrate: copy %s: %w", origin, err)
	}
	for alias, canonical := range d.aliases {
		value, ok := working[alias]
		if !ok {
			continue
		}
		delete(working, alias)
		if _, taken := working[canonical]; !taken {
			working[canonical] = value
		}
	}
	for _, rewrite := range d.rewrites {
		if err := rewrite(origin, working); err != nil {
			return out, fmt.Errorf("hydrate: rewrite %s: %w", origin, err)
		}
	}

	raw, err := json.Marshal(working)
	if err != nil {
		return out, fmt.Errorf("hydrate: encode %s: %w", origin, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if d.strict {
		dec.DisallowUnknownFields()
	}
	if d.numbers {
		dec.UseNumber()
	}
	if err := dec.Decode(&out); err != nil {
		var zero T
		return zero, fmt.Errorf("hydrate: decode %s: %w", origin, err)
	}

	for _, finish := range d.finishers {
		if err := finish(origin, &out); err != nil {
			var zero T
			return zero, fmt.Errorf("hydrate: check %s: %w", origin, err)
		}
	}
	return out, nil
}

func deepCopy(report map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	return out, json.Unmarshal(raw, &out)
}
