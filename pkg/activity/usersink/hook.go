// Package usersink forwards settings activity to a go-users ActivitySink so
// configuration changes land in the same audit trail as account activity.
package usersink

import (
	"context"
	"maps"
	"slices"

	"github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"

	"github.com/goliatone/go-videoconfig/pkg/activity"
)

// Hook is an activity.Hook writing go-users activity records.
type Hook struct {
	Sink types.ActivitySink
}

var _ activity.Hook = Hook{}

// Notify converts event into an ActivityRecord. Incomplete events are
// skipped.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	event = event.Normalize()
	if !event.Complete() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, Record(event))
}

// Record maps a normalized event onto an ActivityRecord. Actor and user
// IDs that are not UUIDs map to uuid.Nil.
func Record(event activity.Event) types.ActivityRecord {
	record := types.ActivityRecord{
		ActorID:    userID(event.ActorID),
		UserID:     userID(event.UserID),
		Verb:       event.Verb,
		ObjectType: event.Object.Type,
		ObjectID:   event.Object.ID,
		Channel:    event.Channel,
		OccurredAt: event.OccurredAt,
	}
	if len(event.Metadata) > 0 {
		record.Data = maps.Clone(event.Metadata)
		if keys, ok := record.Data["keys"].([]string); ok {
			record.Data["keys"] = slices.Clone(keys)
		}
	}
	return record
}

func userID(raw string) uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
