// Package usersink records settings activity through a go-users ActivitySink.
package usersink

import (
	"context"
	"time"

	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"

	"github.com/goliatone/go-settings/pkg/activity"
)

// Hook is an activity.Hook writing one go-users ActivityRecord per event.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify forwards Record(event) to the sink. Incomplete events are skipped.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil || !event.Complete() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, Record(event))
}

// Record maps event onto an ActivityRecord whose object is the option group.
// Identifiers that are not UUIDs stay readable in the record data under
// actor, user and tenant.
func Record(event activity.Event) usertypes.ActivityRecord {
	event = event.Normalize(time.Now())
	data := event.Data()
	set := func(key string, value any) {
		if data == nil {
			data = map[string]any{}
		}
		data[key] = value
	}

	record := usertypes.ActivityRecord{
		Verb:       event.Verb,
		ObjectType: activity.ObjectType,
		ObjectID:   event.Group,
		Channel:    event.Channel,
		OccurredAt: event.OccurredAt,
	}
	for _, id := range []struct {
		name  string
		raw   string
		field *uuid.UUID
	}{
		{"actor", event.ActorID, &record.ActorID},
		{"user", event.UserID, &record.UserID},
		{"tenant", event.TenantID, &record.TenantID},
	} {
		if id.raw == "" {
			continue
		}
		parsed, err := uuid.Parse(id.raw)
		if err != nil {
			set(id.name, id.raw)
			continue
		}
		*id.field = parsed
	}
	set("option_group", event.Group)
	if len(event.Keys) > 0 {
		set("keys", event.Keys)
	}
	record.Data = data
	return record
}
