package wallets

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/polyterm/polyterm/internal/vault"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "wallets.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewStore(db)
	require.NoError(t, err)
	return s
}

func newTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.New(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)
	return v
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	v := newTestVault(t)
	ctx := context.Background()

	bundle, err := v.Encrypt([]byte("deadbeef"), "0xabc0000000000000000000000000000000000001")
	require.NoError(t, err)

	w := &CustodialWallet{
		UserID:       "user-1",
		Address:      "0xabc0000000000000000000000000000000000001",
		EncryptedKey: bundle,
	}
	require.NoError(t, s.Insert(ctx, w))

	got, err := s.GetByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, w.Address, got.Address)
	assert.Equal(t, bundle.Ciphertext, got.EncryptedKey.Ciphertext)
	assert.Equal(t, bundle.IV, got.EncryptedKey.IV)
	assert.Equal(t, bundle.AuthTag, got.EncryptedKey.AuthTag)
	assert.Equal(t, bundle.Salt, got.EncryptedKey.Salt)

	plain, err := v.Decrypt(got.EncryptedKey, got.Address)
	require.NoError(t, err)
	assert.Equal(t, []byte("deadbeef"), plain)
}

func TestStoreNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetByUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreRejectsSecondWallet(t *testing.T) {
	s := newTestStore(t)
	v := newTestVault(t)
	ctx := context.Background()

	bundle, err := v.Encrypt([]byte("k1"), "0x01")
	require.NoError(t, err)
	w := &CustodialWallet{UserID: "user-1", Address: "0x01", EncryptedKey: bundle}
	require.NoError(t, s.Insert(ctx, w))

	err = s.Insert(ctx, w)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestProvisionRandomKey(t *testing.T) {
	s := newTestStore(t)
	v := newTestVault(t)
	ctx := context.Background()

	p := NewProvisioner(s, v, "")
	w, err := p.Provision(ctx, "user-7")
	require.NoError(t, err)
	require.NotEmpty(t, w.Address)

	// Stored bundle decrypts to a key whose derived address matches.
	got, err := s.GetByUser(ctx, "user-7")
	require.NoError(t, err)

	privHex, err := v.Decrypt(got.EncryptedKey, got.Address)
	require.NoError(t, err)
	key, err := crypto.HexToECDSA(string(privHex))
	require.NoError(t, err)
	derived := crypto.PubkeyToAddress(key.PublicKey)
	assert.True(t, strings.EqualFold(got.Address, derived.Hex()))
}
