// Package gormstore persists option group records in a relational table
// through gorm.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/goliatone/go-settings/pkg/state"
)

// OptionRecord corresponds to the option_records table.
type OptionRecord struct {
	ID          uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	OptionName  string            `gorm:"type:varchar(191);not null;unique" json:"option_name"`
	OptionValue datatypes.JSON    `gorm:"type:json;not null" json:"option_value"`
	SnapshotID  string            `gorm:"type:varchar(36)" json:"snapshot_id"`
	ETag        string            `gorm:"column:etag;type:varchar(64)" json:"etag"`
	Extra       datatypes.JSONMap `gorm:"type:json" json:"extra"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TableName implements gorm's tabler interface.
func (OptionRecord) TableName() string {
	return "option_records"
}

// Store is a state.Store backed by the option_records table.
type Store[T any] struct {
	db  *gorm.DB
	now func() time.Time
}

// New returns a Store using db. Call Migrate once before first use.
func New[T any](db *gorm.DB) *Store[T] {
	return &Store[T]{db: db, now: time.Now}
}

// Migrate creates or updates the option_records table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&OptionRecord{}); err != nil {
		return fmt.Errorf("gormstore: migrate option_records: %w", err)
	}
	return nil
}

func (s *Store[T]) Load(ctx context.Context, ref state.Ref) (T, state.Meta, bool, error) {
	var zero T
	name, err := ref.Identifier()
	if err != nil {
		return zero, state.Meta{}, false, err
	}

	var record OptionRecord
	err = s.db.WithContext(ctx).Where("option_name = ?", name).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return zero, state.Meta{}, false, nil
	}
	if err != nil {
		return zero, state.Meta{}, false, fmt.Errorf("gormstore: load %q: %w", name, err)
	}

	var snapshot T
	if err := json.Unmarshal(record.OptionValue, &snapshot); err != nil {
		return zero, state.Meta{}, false, fmt.Errorf("gormstore: decode %q: %w", name, err)
	}
	return snapshot, recordMeta(record), true, nil
}

func (s *Store[T]) Save(ctx context.Context, ref state.Ref, snapshot T, meta state.Meta) (state.Meta, error) {
	name, err := ref.Identifier()
	if err != nil {
		return state.Meta{}, err
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return state.Meta{}, fmt.Errorf("gormstore: encode %q: %w", name, err)
	}

	stamped := state.Stamp(meta, s.now())
	record := OptionRecord{
		OptionName:  name,
		OptionValue: datatypes.JSON(payload),
		SnapshotID:  stamped.SnapshotID,
		ETag:        stamped.ETag,
		Extra:       extraToJSONMap(stamped.Extra),
		UpdatedAt:   stamped.UpdatedAt,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "option_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"option_value", "snapshot_id", "etag", "extra", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return state.Meta{}, fmt.Errorf("gormstore: save %q: %w", name, err)
	}
	return stamped, nil
}

func (s *Store[T]) Delete(ctx context.Context, ref state.Ref) error {
	name, err := ref.Identifier()
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("option_name = ?", name).Delete(&OptionRecord{}).Error; err != nil {
		return fmt.Errorf("gormstore: delete %q: %w", name, err)
	}
	return nil
}

func recordMeta(record OptionRecord) state.Meta {
	meta := state.Meta{
		SnapshotID: record.SnapshotID,
		ETag:       record.ETag,
		UpdatedAt:  record.UpdatedAt,
	}
	if len(record.Extra) > 0 {
		meta.Extra = make(map[string]string, len(record.Extra))
		for key, value := range record.Extra {
			meta.Extra[key] = fmt.Sprint(value)
		}
	}
	return meta
}

func extraToJSONMap(extra map[string]string) datatypes.JSONMap {
	if len(extra) == 0 {
		return nil
	}
	out := make(datatypes.JSONMap, len(extra))
	for key, value := range extra {
		out[key] = value
	}
	return out
}
