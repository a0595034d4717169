package model

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

const (
	KeyValueScopeContracts = "contracts"

	KeyValueKeyAddresses = "addresses"
)

// KeyValue stores small JSON documents the server needs to remember between
// restarts, namespaced by Scope
type KeyValue struct {
	CreatedAt int `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt int `gorm:"autoUpdateTime" json:"updated_at"`

	Scope string         `gorm:"primaryKey" json:"scope"`
	Key   string         `gorm:"primaryKey" json:"key"`
	Value datatypes.JSON `json:"value"`
}

// KeyValueStore is a scoped JSON key-value store
type KeyValueStore interface {
	// Get retrieves the value for a (scope, key). Returns (nil, nil) if not found.
	Get(ctx context.Context, scope, key string) (*KeyValue, error)
	// Set stores or replaces the value for a (scope, key)
	Set(ctx context.Context, scope, key string, value datatypes.JSON) error
	// SetIfChanged stores v as JSON unless the stored value is equal and
	// returns the time of the last change
	SetIfChanged(ctx context.Context, scope, key string, v any) (time.Time, error)
}
