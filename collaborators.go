package videocfg

import (
	"context"
	"time"
)

// LayerStore persists sparse layers keyed by source identifier (see
// layering.Source.Identifier). LoadLayer on a source that was never written
// returns an empty layer and no error.
type LayerStore interface {
	LoadLayer(ctx context.Context, source string) (Layer, error)
	// SaveLayer writes every key of layer into source. Keys not in layer are
	// left untouched.
	SaveLayer(ctx context.Context, source string, layer Layer) error
	// DeleteKey removes key from source. Deleting a missing key is not an error.
	DeleteKey(ctx context.Context, source, key string) error
	// LayerExists reports whether source holds key.
	LayerExists(ctx context.Context, source, key string) (bool, error)
}

// Notifier shows transient on-screen messages.
type Notifier interface {
	Notify(message string, duration time.Duration)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string, duration time.Duration)

// Notify implements Notifier.
func (f NotifierFunc) Notify(message string, duration time.Duration) {
	if f != nil {
		f(message, duration)
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify(string, time.Duration) {}
