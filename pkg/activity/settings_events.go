package activity

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// Event verbs.
const (
	VerbOverrideApplied = "settings.override.applied"
	VerbLayerApplied    = "settings.layer.applied"
	VerbLayerSaved      = "settings.layer.saved"
	VerbReverted        = "settings.reverted"
	VerbReset           = "settings.reset"
	VerbPublished       = "settings.published"
)

// Object types.
const (
	ObjectOption = "settings.option"
	ObjectLayer  = "settings.layer"
	ObjectEdit   = "settings.edit"
	ObjectActive = "settings.active"
)

// SettingsEventInput holds the fields shared by settings lifecycle events.
type SettingsEventInput struct {
	ActorID  string
	UserID   string
	ObjectID string
	Channel  string
	// Title and Revision identify the title whose layer is involved.
	Title    string
	Revision string
	// Source is the layer source identifier, e.g. "title/GALE01/local".
	Source string
	// Key is the option a single-key event refers to.
	Key      string
	OldValue any
	NewValue any
	// Keys lists the options a multi-key event touched.
	Keys       []string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildOverrideAppliedEvent reports one option taking a value from a layer.
func BuildOverrideAppliedEvent(input SettingsEventInput) Event {
	return buildSettingsEvent(VerbOverrideApplied, ObjectOption, input)
}

// BuildLayerAppliedEvent reports a title layer being applied.
func BuildLayerAppliedEvent(input SettingsEventInput) Event {
	return buildSettingsEvent(VerbLayerApplied, ObjectLayer, input)
}

// BuildLayerSavedEvent reports a sparse layer being persisted.
func BuildLayerSavedEvent(input SettingsEventInput) Event {
	return buildSettingsEvent(VerbLayerSaved, ObjectLayer, input)
}

// BuildRevertedEvent reports tracked edits being discarded.
func BuildRevertedEvent(input SettingsEventInput) Event {
	return buildSettingsEvent(VerbReverted, ObjectEdit, input)
}

// BuildResetEvent reports tracked keys being reset to the title defaults.
func BuildResetEvent(input SettingsEventInput) Event {
	return buildSettingsEvent(VerbReset, ObjectEdit, input)
}

// BuildPublishedEvent reports a new active configuration.
func BuildPublishedEvent(input SettingsEventInput) Event {
	return buildSettingsEvent(VerbPublished, ObjectActive, input)
}

func buildSettingsEvent(verb, objectType string, input SettingsEventInput) Event {
	var metadata map[string]any
	if len(input.Metadata) > 0 {
		metadata = maps.Clone(input.Metadata)
	}
	put := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}
	for key, value := range map[string]string{"title": input.Title, "revision": input.Revision, "source": input.Source, "key": input.Key} {
		if value != "" {
			put(key, value)
		}
	}
	if input.OldValue != nil {
		put("old_value", input.OldValue)
	}
	if input.NewValue != nil {
		put("new_value", input.NewValue)
	}
	if len(input.Keys) > 0 {
		put("keys", slices.Clone(input.Keys))
	}

	// The object falls back from the explicit ID to the most specific
	// identifier the input carries.
	id := objectType
	for _, candidate := range []string{input.Title, input.Source, input.Key, input.ObjectID} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			id = candidate
		}
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		Object:     Object{Type: objectType, ID: id},
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}
