package state

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// ErrETagMismatch is returned by Mutate when the caller's ETag is stale.
var ErrETagMismatch = errors.New("state: etag mismatch")

// Meta is the store-owned metadata of a record. SnapshotID changes on every
// save and doubles as the ETag unless a store sets one.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Clone returns a copy of m that does not share Extra.
func (m Meta) Clone() Meta {
	m.Extra = maps.Clone(m.Extra)
	return m
}

// Stamp fills what a store owns on save: a fresh snapshot id, the ETag and
// the update time. Fields already set are kept.
func Stamp(meta Meta, now time.Time) Meta {
	out := meta.Clone()
	if out.SnapshotID == "" {
		out.SnapshotID = uuid.NewString()
	}
	if out.ETag == "" {
		out.ETag = out.SnapshotID
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = now.UTC()
	}
	return out
}

// Store loads, saves and deletes whole option records. Merging, validation
// and defaults belong to the caller.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
	Delete(ctx context.Context, ref Ref) error
}

// Mutator edits a loaded snapshot in place.
type Mutator[T any] func(*T) error

// Mutate is a read-modify-write of one record. A missing record starts from
// the zero value. When want.ETag is set and the record has one, they must
// match. want.UpdatedAt and want.Extra are passed to Save; identity fields
// are left for the store to stamp. Nothing is saved when fn fails.
func Mutate[T any](ctx context.Context, store Store[T], ref Ref, want Meta, fn Mutator[T]) (T, Meta, error) {
	var zero T
	switch {
	case store == nil:
		return zero, Meta{}, fmt.Errorf("state: store is required")
	case fn == nil:
		return zero, Meta{}, fmt.Errorf("state: mutator is required")
	}

	snapshot, current, found, err := store.Load(ctx, ref)
	if err != nil {
		return zero, Meta{}, fmt.Errorf("state: load %q: %w", ref.Group, err)
	}
	if !found {
		snapshot, current = zero, Meta{}
	}
	if want.ETag != "" && current.ETag != "" && want.ETag != current.ETag {
		return zero, current, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, want.ETag, current.ETag)
	}
	if err := fn(&snapshot); err != nil {
		return zero, current, err
	}

	next := Meta{UpdatedAt: want.UpdatedAt, Extra: current.Extra}
	if want.Extra != nil {
		next.Extra = want.Extra
	}
	saved, err := store.Save(ctx, ref, snapshot, next.Clone())
	if err != nil {
		return zero, current, fmt.Errorf("state: save %q: %w", ref.Group, err)
	}
	return snapshot, saved, nil
}
