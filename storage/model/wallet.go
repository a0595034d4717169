package model

import (
	"context"
	"time"
)

// Wallet links a wallet address to the content identifier under which the
// off-chain records of its owner are stored. A Wallet is created once, before
// the on-chain registration; its CID never changes.
type Wallet struct {
	WalletAddress string    `gorm:"primaryKey;column:wallet_address;size:42" json:"wallet_address"`
	CID           string    `gorm:"column:cid;uniqueIndex;not null;size:64" json:"cid"`
	DisplayName   string    `gorm:"column:display_name;not null" json:"display_name"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName implements the gorm.Tabler interface
func (Wallet) TableName() string {
	return "wallet"
}

// WalletStore is the wallet registration ledger
type WalletStore interface {
	// Register creates the Wallet for address. If the address is already
	// registered the existing Wallet is returned and created is false.
	Register(ctx context.Context, address, displayName string) (wallet *Wallet, created bool, err error)
	// ByCID returns the Wallet with the given cid or a NotFoundError
	ByCID(ctx context.Context, cid string) (*Wallet, error)
	// ByAddress returns the Wallet of the given address or a NotFoundError
	ByAddress(ctx context.Context, address string) (*Wallet, error)
}
