// internal/repository/wallet_repo.go
package repository

import (
	"context"

	"chainlend-ledger/internal/domain"
)

// WalletRepository defines the interface for wallet data operations.
type WalletRepository interface {
	// CreateWallet inserts the wallet unless its payment key hash is already known.
	// It reports whether a row was inserted.
	CreateWallet(ctx context.Context, q DBExecutor, wallet *domain.Wallet) (bool, error)
	// GetWalletByPaymentKeyHash retrieves a wallet by its natural key.
	GetWalletByPaymentKeyHash(ctx context.Context, q DBExecutor, paymentKeyHash string) (*domain.Wallet, error)
	// GetWalletByID retrieves a wallet by its ID.
	GetWalletByID(ctx context.Context, q DBExecutor, id string) (*domain.Wallet, error)
	// UpdateWalletAddress replaces the display address.
	UpdateWalletAddress(ctx context.Context, q DBExecutor, id, walletAddress string) error
}
