// Package wallets stores custodial wallets: one per user, created at signup,
// address immutable thereafter. The encrypted key bundle is read-only from
// every component's perspective except provisioning.
package wallets

import (
	"errors"
	"time"

	"github.com/polyterm/polyterm/internal/vault"
)

var (
	// ErrNotFound means the user has no custodial wallet.
	ErrNotFound = errors.New("wallets: wallet not found")

	// ErrAlreadyExists means the user already has a wallet; a second
	// provisioning attempt is a caller bug, never an overwrite.
	ErrAlreadyExists = errors.New("wallets: wallet already exists for user")
)

// CustodialWallet is one user's service-held blockchain account. Address is
// derived from the private key at creation time and never recomputed.
type CustodialWallet struct {
	UserID       string
	Address      string
	EncryptedKey *vault.Bundle
	CreatedAt    time.Time
}
