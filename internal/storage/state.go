package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("state key not found")

// ClientState is one row of the client_state key/value table.
type ClientState struct {
	Key       string `gorm:"column:state_key;primaryKey;size:128"`
	Value     string `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time
}

// TableName implements gorm's tabler.
func (ClientState) TableName() string {
	return "client_state"
}

// StateRepository reads and writes client_state rows.
type StateRepository struct {
	db *gorm.DB
}

// NewStateRepository creates a new state repository.
func NewStateRepository(db *DB) *StateRepository {
	return &StateRepository{db: db.GORM}
}

// Get returns the value stored under key.
func (r *StateRepository) Get(ctx context.Context, key string) (string, error) {
	var row ClientState
	err := r.db.WithContext(ctx).Where("state_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return row.Value, nil
}

// Put upserts the value under key.
func (r *StateRepository) Put(ctx context.Context, key, value string) error {
	row := ClientState{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *StateRepository) Delete(ctx context.Context, key string) error {
	err := r.db.WithContext(ctx).Where("state_key = ?", key).Delete(&ClientState{}).Error
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
