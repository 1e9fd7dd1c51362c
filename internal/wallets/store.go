package wallets

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/polyterm/polyterm/internal/vault"
)

// Store persists custodial wallets in SQLite. Rows are insert-only; there is
// no update path (key rotation would replace the whole bundle via a separate
// migration, not this store).
type Store struct {
	db *sql.DB
}

// NewStore wires a Store and runs its migration.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS custodial_wallets (
  user_id TEXT PRIMARY KEY,
  address TEXT NOT NULL,
  key_ciphertext TEXT NOT NULL,
  key_iv TEXT NOT NULL,
  key_auth_tag TEXT NOT NULL,
  key_salt TEXT NOT NULL,
  created_at TEXT NOT NULL
);`)
	if err != nil {
		return fmt.Errorf("migrate custodial_wallets: %w", err)
	}
	return nil
}

// Insert creates the wallet row. Fails with ErrAlreadyExists on a second
// insert for the same user.
func (s *Store) Insert(ctx context.Context, w *CustodialWallet) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM custodial_wallets WHERE user_id=?`, w.UserID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return ErrAlreadyExists
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO custodial_wallets (user_id,address,key_ciphertext,key_iv,key_auth_tag,key_salt,created_at)
VALUES (?,?,?,?,?,?,?)
`,
		w.UserID,
		w.Address,
		hex.EncodeToString(w.EncryptedKey.Ciphertext),
		hex.EncodeToString(w.EncryptedKey.IV),
		hex.EncodeToString(w.EncryptedKey.AuthTag),
		hex.EncodeToString(w.EncryptedKey.Salt),
		w.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// GetByUser loads the user's wallet, ErrNotFound when absent.
func (s *Store) GetByUser(ctx context.Context, userID string) (*CustodialWallet, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT user_id,address,key_ciphertext,key_iv,key_auth_tag,key_salt,created_at
FROM custodial_wallets WHERE user_id=?
`, userID)

	var w CustodialWallet
	var ct, iv, tag, salt, created string
	if err := row.Scan(&w.UserID, &w.Address, &ct, &iv, &tag, &salt, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	bundle, err := decodeBundle(ct, iv, tag, salt)
	if err != nil {
		return nil, fmt.Errorf("wallet row for user %s is corrupt: %w", userID, err)
	}
	w.EncryptedKey = bundle
	w.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &w, nil
}

// Count returns the number of provisioned wallets (used to pick the next HD
// derivation index).
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM custodial_wallets`).Scan(&n)
	return n, err
}

func decodeBundle(ct, iv, tag, salt string) (*vault.Bundle, error) {
	b := &vault.Bundle{}
	var err error
	if b.Ciphertext, err = hex.DecodeString(ct); err != nil {
		return nil, err
	}
	if b.IV, err = hex.DecodeString(iv); err != nil {
		return nil, err
	}
	if b.AuthTag, err = hex.DecodeString(tag); err != nil {
		return nil, err
	}
	if b.Salt, err = hex.DecodeString(salt); err != nil {
		return nil, err
	}
	return b, nil
}
