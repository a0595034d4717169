package model

// Backends groups the storage interfaces used by the application
type Backends struct {
	Wallets WalletStore
	Records RecordStore
	KV      KeyValueStore
}
