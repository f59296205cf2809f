// internal/domain/wallet.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is the identity record of a borrower or lender. PaymentKeyHash is the natural key
// used for every lookup; only the display address may change after creation.
type Wallet struct {
	ID             string `db:"id" json:"id"`
	WalletAddress  string `db:"wallet_address" json:"walletAddress"`
	PaymentKeyHash string `db:"payment_key_hash" json:"paymentKeyHash"`
	CreatedAt      int64  `db:"created_at" json:"createdAt"` // epoch milliseconds
	UpdatedAt      int64  `db:"updated_at" json:"updatedAt"`
}

// NewWallet creates a new Wallet. An empty address is replaced by a placeholder derived
// from the payment key hash.
func NewWallet(paymentKeyHash, walletAddress string) *Wallet {
	if walletAddress == "" {
		walletAddress = PlaceholderAddress(paymentKeyHash)
	}
	now := time.Now().UTC().UnixMilli()
	return &Wallet{
		ID:             uuid.NewString(),
		WalletAddress:  walletAddress,
		PaymentKeyHash: paymentKeyHash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// PlaceholderAddress is the display address used until a real one is observed.
func PlaceholderAddress(paymentKeyHash string) string {
	short := paymentKeyHash
	if len(short) > 16 {
		short = short[:16]
	}
	return "addr_pkh_" + short
}
