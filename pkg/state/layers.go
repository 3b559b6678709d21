package state

import (
	"context"
	"errors"

	videocfg "github.com/goliatone/go-videoconfig"
)

const conflictRetries = 3

// Layers adapts a Store to videocfg.LayerStore. Writes go through
// Resolver.Mutate and are retried when another writer wins the race.
type Layers struct {
	resolver Resolver
}

var _ videocfg.LayerStore = (*Layers)(nil)

// NewLayers wraps store.
func NewLayers(store Store) *Layers {
	return &Layers{resolver: Resolver{Store: store}}
}

// Resolver returns the resolver the adapter writes through.
func (l *Layers) Resolver() Resolver {
	return l.resolver
}

func (l *Layers) LoadLayer(ctx context.Context, source string) (videocfg.Layer, error) {
	ref, err := ParseRef(source)
	if err != nil {
		return videocfg.Layer{}, err
	}
	values, _, _, err := l.resolver.Store.Load(ctx, ref)
	if err != nil {
		return videocfg.Layer{}, err
	}
	return videocfg.NewLayer(source, values), nil
}

func (l *Layers) SaveLayer(ctx context.Context, source string, layer videocfg.Layer) error {
	return l.mutate(ctx, source, func(values map[string]any) error {
		for key, value := range layer.Values() {
			values[key] = value
		}
		return nil
	})
}

func (l *Layers) DeleteKey(ctx context.Context, source, key string) error {
	return l.mutate(ctx, source, func(values map[string]any) error {
		delete(values, key)
		return nil
	})
}

func (l *Layers) LayerExists(ctx context.Context, source, key string) (bool, error) {
	ref, err := ParseRef(source)
	if err != nil {
		return false, err
	}
	values, _, ok, err := l.resolver.Store.Load(ctx, ref)
	if err != nil || !ok {
		return false, err
	}
	_, exists := values[key]
	return exists, nil
}

func (l *Layers) mutate(ctx context.Context, source string, fn Mutator) error {
	ref, err := ParseRef(source)
	if err != nil {
		return err
	}
	for attempt := 0; ; attempt++ {
		_, _, err = l.resolver.Mutate(ctx, ref, Meta{}, fn)
		if !errors.Is(err, ErrETagMismatch) || attempt == conflictRetries-1 {
			return err
		}
	}
}
