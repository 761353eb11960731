// Package audit writes settings activity records to the log.
package audit

import (
	"context"

	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-settings/pkg/activity"
	"github.com/goliatone/go-settings/pkg/activity/usersink"
)

// LogSink is a go-users ActivitySink that logs every record at info level.
type LogSink struct {
	Entry *logrus.Entry
}

// Log implements usertypes.ActivitySink.
func (s LogSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	entry := s.Entry
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	fields := logrus.Fields{
		"verb":        record.Verb,
		"object_type": record.ObjectType,
		"object_id":   record.ObjectID,
		"channel":     record.Channel,
		"occurred_at": record.OccurredAt,
	}
	if record.ActorID != uuid.Nil {
		fields["actor_id"] = record.ActorID.String()
	}
	for key, value := range record.Data {
		fields["data."+key] = value
	}
	entry.WithFields(fields).Info("Settings activity")
	return nil
}

// Hooks returns the activity hooks of the server: the go-users adapter around
// a LogSink.
func Hooks(entry *logrus.Entry) activity.Hooks {
	return activity.Hooks{usersink.Hook{Sink: LogSink{Entry: entry}}}
}
