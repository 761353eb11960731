// Package activity reports option group changes to audit hooks.
package activity

import (
	"sort"
	"strings"
	"time"
)

// Verbs of the events a registry emits.
const (
	VerbSettingsSaved    = "settings.saved"
	VerbSettingsImported = "settings.imported"
	VerbSettingsExported = "settings.exported"
	VerbSettingsDeleted  = "settings.deleted"
)

// ObjectType is the audit object type of every event; the object id is the
// option group.
const ObjectType = "settings.option_group"

// DefaultChannel tags events emitted without an explicit channel.
const DefaultChannel = "settings"

// Event is one change to, or read of, an option group.
type Event struct {
	Verb       string
	Group      string
	ActorID    string
	UserID     string
	TenantID   string
	Channel    string
	Keys       []string
	SnapshotID string
	Source     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// OptionName is the persisted record name of the event's group.
func (e Event) OptionName() string {
	if e.Group == "" {
		return ""
	}
	return e.Group + "_settings"
}

// Complete reports whether the event names a verb and a group.
func (e Event) Complete() bool {
	return strings.TrimSpace(e.Verb) != "" && strings.TrimSpace(e.Group) != ""
}

// Data flattens the event details for sinks that store a free form map:
// metadata plus option_name, snapshot_id, source and key_count when set.
func (e Event) Data() map[string]any {
	data := make(map[string]any, len(e.Metadata)+4)
	for key, value := range e.Metadata {
		data[key] = value
	}
	if name := e.OptionName(); name != "" {
		data["option_name"] = name
	}
	if e.SnapshotID != "" {
		data["snapshot_id"] = e.SnapshotID
	}
	if e.Source != "" {
		data["source"] = e.Source
	}
	if len(e.Keys) > 0 {
		data["key_count"] = len(e.Keys)
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

// Normalize trims identifiers, sorts a private copy of the keys, copies the
// metadata and stamps OccurredAt with now when unset.
func (e Event) Normalize(now time.Time) Event {
	out := e
	out.Verb = strings.TrimSpace(e.Verb)
	out.Group = strings.TrimSpace(e.Group)
	out.ActorID = strings.TrimSpace(e.ActorID)
	out.UserID = strings.TrimSpace(e.UserID)
	out.TenantID = strings.TrimSpace(e.TenantID)
	out.Channel = strings.TrimSpace(e.Channel)
	out.Keys = nil
	if len(e.Keys) > 0 {
		out.Keys = append([]string(nil), e.Keys...)
		sort.Strings(out.Keys)
	}
	out.Metadata = nil
	if len(e.Metadata) > 0 {
		out.Metadata = make(map[string]any, len(e.Metadata))
		for key, value := range e.Metadata {
			out.Metadata[key] = value
		}
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = now
	}
	return out
}
