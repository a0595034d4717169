package storage

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/WhitehatD/Student-Identity-Consent/storage/model"
)

// Storage is a GORM-based storage implementation
type Storage struct {
	db *gorm.DB
}

var models = []any{
	&model.Wallet{},
	&model.Course{},
	&model.Grade{},
	&model.Certificate{},
	&model.KeyValue{},
}

// NewStorage connects to the configured database and migrates the schema
func NewStorage(config Config) (*Storage, error) {
	db, err := Connect(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	return newMigratedStorage(db)
}

func newMigratedStorage(db *gorm.DB) (*Storage, error) {
	if err := db.AutoMigrate(models...); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return &Storage{db: db}, nil
}

// Backends returns the storage backends grouped in a model.Backends
func (s *Storage) Backends() model.Backends {
	return model.Backends{
		Wallets: s.Wallets(),
		Records: s.Records(),
		KV:      s.KeyValue(),
	}
}

// Wallets returns the WalletStorage
func (s *Storage) Wallets() *WalletStorage {
	return &WalletStorage{db: s.db}
}

// Records returns the RecordStorage
func (s *Storage) Records() *RecordStorage {
	return &RecordStorage{db: s.db}
}

// Ping checks the database connection
func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(sqlDB.PingContext(ctx))
}

// Close closes the underlying database connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(sqlDB.Close())
}
