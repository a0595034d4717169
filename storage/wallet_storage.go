package storage

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/WhitehatD/Student-Identity-Consent/internal/ids"
	"github.com/WhitehatD/Student-Identity-Consent/storage/model"
)

// WalletStorage implements model.WalletStore using GORM
type WalletStorage struct {
	db *gorm.DB
}

// Register creates the Wallet for address with a fresh cid. Registering an
// address twice returns the existing Wallet with created set to false; this
// also holds when a concurrent registration wins the insert.
func (s *WalletStorage) Register(ctx context.Context, address, displayName string) (
	*model.Wallet, bool, error,
) {
	existing, err := s.ByAddress(ctx, address)
	if err == nil {
		return existing, false, nil
	}
	var notFound model.NotFoundError
	if !errors.As(err, &notFound) {
		return nil, false, err
	}

	w := &model.Wallet{
		WalletAddress: address,
		CID:           ids.NewCID(),
		DisplayName:   displayName,
	}
	if err = s.db.WithContext(ctx).Create(w).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, errors.Wrap(err, "could not create wallet")
		}
		existing, lookupErr := s.ByAddress(ctx, address)
		if lookupErr != nil {
			return nil, false, model.AlreadyExistsErrorFmt("wallet '%s' conflicts with an existing record", address)
		}
		return existing, false, nil
	}
	log.WithFields(
		log.Fields{
			"wallet": address,
			"cid":    w.CID,
		},
	).Info("Created wallet record")
	return w, true, nil
}

// ByCID returns the Wallet with the given cid
func (s *WalletStorage) ByCID(ctx context.Context, cid string) (*model.Wallet, error) {
	var w model.Wallet
	if err := s.db.WithContext(ctx).Where("cid = ?", cid).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.NotFoundErrorFmt("no wallet with cid '%s'", cid)
		}
		return nil, errors.Wrap(err, "could not look up wallet")
	}
	return &w, nil
}

// ByAddress returns the Wallet of the given address
func (s *WalletStorage) ByAddress(ctx context.Context, address string) (*model.Wallet, error) {
	var w model.Wallet
	if err := s.db.WithContext(ctx).Where("wallet_address = ?", address).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.NotFoundErrorFmt("no wallet with address '%s'", address)
		}
		return nil, errors.Wrap(err, "could not look up wallet")
	}
	return &w, nil
}
