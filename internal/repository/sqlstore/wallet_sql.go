// internal/repository/sqlstore/wallet_sql.go
package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"chainlend-ledger/internal/domain"
	"chainlend-ledger/internal/repository"
	"chainlend-ledger/internal/util"
)

const walletColumns = `id, wallet_address, payment_key_hash, created_at, updated_at`

// WalletRepository implements repository.WalletRepository with sqlx.
type WalletRepository struct{}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository() repository.WalletRepository {
	return &WalletRepository{}
}

// CreateWallet inserts a wallet; an existing payment key hash leaves the table unchanged.
func (r *WalletRepository) CreateWallet(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet) (bool, error) {
	query := q.Rebind(`INSERT INTO wallets (` + walletColumns + `)
              VALUES (?, ?, ?, ?, ?)
              ON CONFLICT (payment_key_hash) DO NOTHING`)
	result, err := q.ExecContext(ctx, query,
		wallet.ID, wallet.WalletAddress, wallet.PaymentKeyHash, wallet.CreatedAt, wallet.UpdatedAt)
	if err != nil {
		return false, util.Storage("create wallet", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, util.Storage("create wallet rows affected", err)
	}
	return rows > 0, nil
}

// GetWalletByPaymentKeyHash retrieves a wallet by its payment key hash.
func (r *WalletRepository) GetWalletByPaymentKeyHash(ctx context.Context, q repository.DBExecutor, paymentKeyHash string) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := q.Rebind(`SELECT ` + walletColumns + ` FROM wallets WHERE payment_key_hash = ?`)
	if err := q.GetContext(ctx, &wallet, query, paymentKeyHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.NotFound("wallet", paymentKeyHash)
		}
		return nil, util.Storage("get wallet by payment key hash", err)
	}
	return &wallet, nil
}

// GetWalletByID retrieves a wallet by its ID.
func (r *WalletRepository) GetWalletByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := q.Rebind(`SELECT ` + walletColumns + ` FROM wallets WHERE id = ?`)
	if err := q.GetContext(ctx, &wallet, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.NotFound("wallet", id)
		}
		return nil, util.Storage("get wallet by id", err)
	}
	return &wallet, nil
}

// UpdateWalletAddress sets the display address of a wallet.
func (r *WalletRepository) UpdateWalletAddress(ctx context.Context, q repository.DBExecutor, id, walletAddress string) error {
	query := q.Rebind(`UPDATE wallets SET wallet_address = ?, updated_at = ? WHERE id = ?`)
	result, err := q.ExecContext(ctx, query, walletAddress, nowMillis(), id)
	if err != nil {
		return util.Storage("update wallet address", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return util.Storage("update wallet address rows affected", err)
	}
	if rows == 0 {
		return util.NotFound("wallet", id)
	}
	return nil
}
