// Package activity describes settings lifecycle events (overrides applied,
// layers saved, edits reverted, configurations published) and fans them out
// to audit hooks.
package activity

import (
	"maps"
	"strings"
	"time"
)

// Object identifies what an event is about, e.g. {settings.layer,
// title/GALE01/local}.
type Object struct {
	Type string
	ID   string
}

func (o Object) String() string {
	return o.Type + "/" + o.ID
}

// Event is one settings lifecycle occurrence. Actor and user IDs are plain
// strings; sinks that need UUIDs parse them.
type Event struct {
	Verb       string
	ActorID    string
	UserID     string
	Object     Object
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Complete reports whether the event names a verb and an object.
func (e Event) Complete() bool {
	return e.Verb != "" && e.Object.Type != "" && e.Object.ID != ""
}

// Normalize returns a trimmed copy with its own metadata map and a
// timestamp.
func (e Event) Normalize() Event {
	out := Event{
		Verb:       strings.TrimSpace(e.Verb),
		ActorID:    strings.TrimSpace(e.ActorID),
		UserID:     strings.TrimSpace(e.UserID),
		Object:     Object{Type: strings.TrimSpace(e.Object.Type), ID: strings.TrimSpace(e.Object.ID)},
		Channel:    strings.TrimSpace(e.Channel),
		OccurredAt: e.OccurredAt,
	}
	if len(e.Metadata) > 0 {
		out.Metadata = maps.Clone(e.Metadata)
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now()
	}
	return out
}
