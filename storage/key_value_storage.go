package storage

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/WhitehatD/Student-Identity-Consent/storage/model"
)

// KeyValueStorage implements model.KeyValueStore using GORM.
type KeyValueStorage struct {
	db *gorm.DB
}

// KeyValue provides an accessor for scoped key-value storage.
func (s *Storage) KeyValue() *KeyValueStorage {
	return &KeyValueStorage{db: s.db}
}

// Get returns the entry for a (scope, key). If not found, returns nil, nil.
func (s *KeyValueStorage) Get(ctx context.Context, scope, key string) (*model.KeyValue, error) {
	var kv model.KeyValue
	err := s.db.WithContext(ctx).
		Where(
			map[string]any{
				"scope": scope,
				"key":   key,
			},
		).
		First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}
	return &kv, nil
}

// Set upserts the JSON value for a (scope, key).
func (s *KeyValueStorage) Set(ctx context.Context, scope, key string, value datatypes.JSON) error {
	kv := model.KeyValue{
		Scope: scope,
		Key:   key,
		Value: value,
	}
	return errors.WithStack(
		s.db.WithContext(ctx).Clauses(
			clause.OnConflict{
				Columns: []clause.Column{
					{Name: "scope"},
					{Name: "key"},
				},
				DoUpdates: clause.AssignmentColumns(
					[]string{
						"value",
						"updated_at",
					},
				),
			},
		).Create(&kv).Error,
	)
}

// SetAny marshals v to JSON and stores it at (scope, key).
func (s *KeyValueStorage) SetAny(ctx context.Context, scope, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.WithStack(err)
	}
	return s.Set(ctx, scope, key, datatypes.JSON(b))
}

// SetIfChanged stores v at (scope, key) unless the stored value is already
// equal, and returns the time the value last changed
func (s *KeyValueStorage) SetIfChanged(ctx context.Context, scope, key string, v any) (time.Time, error) {
	kv, err := s.Get(ctx, scope, key)
	if err != nil {
		return time.Time{}, err
	}
	if kv != nil {
		b, err := json.Marshal(v)
		if err != nil {
			return time.Time{}, errors.WithStack(err)
		}
		if jsonEqual(kv.Value, b) {
			return time.Unix(int64(kv.UpdatedAt), 0), nil
		}
	}
	if err = s.SetAny(ctx, scope, key, v); err != nil {
		return time.Time{}, err
	}
	kv, err = s.Get(ctx, scope, key)
	if err != nil || kv == nil {
		return time.Now(), err
	}
	return time.Unix(int64(kv.UpdatedAt), 0), nil
}

func jsonEqual(a, b []byte) bool {
	var va, vb any
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}
