package wallets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"

	"github.com/polyterm/polyterm/internal/vault"
)

// Provisioner creates custodial wallets at account signup. When a service
// mnemonic is configured, keys are HD-derived (one path per wallet); without
// one, a fresh random secp256k1 key is generated.
type Provisioner struct {
	store    *Store
	vault    *vault.Vault
	mnemonic string
}

// NewProvisioner wires a Provisioner. mnemonic may be empty.
func NewProvisioner(store *Store, v *vault.Vault, mnemonic string) *Provisioner {
	return &Provisioner{
		store:    store,
		vault:    v,
		mnemonic: strings.TrimSpace(mnemonic),
	}
}

// Provision creates and persists a wallet for the user. The raw private key
// exists only inside this call: derived, encrypted, wiped.
func (p *Provisioner) Provision(ctx context.Context, userID string) (*CustodialWallet, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("wallets: user id is required")
	}

	privHex, address, err := p.newKey(ctx)
	if err != nil {
		return nil, err
	}

	keyBytes := []byte(privHex)
	bundle, err := p.vault.Encrypt(keyBytes, address)
	vault.Zero(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("encrypt wallet key: %w", err)
	}

	w := &CustodialWallet{
		UserID:       userID,
		Address:      address,
		EncryptedKey: bundle,
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.store.Insert(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (p *Provisioner) newKey(ctx context.Context) (privHex, address string, err error) {
	if p.mnemonic == "" {
		key, err := crypto.GenerateKey()
		if err != nil {
			return "", "", fmt.Errorf("generate key: %w", err)
		}
		privHex = fmt.Sprintf("%x", crypto.FromECDSA(key))
		address = strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
		return privHex, address, nil
	}

	index, err := p.store.Count(ctx)
	if err != nil {
		return "", "", fmt.Errorf("next derivation index: %w", err)
	}

	w, err := hdwallet.NewFromMnemonic(p.mnemonic)
	if err != nil {
		return "", "", fmt.Errorf("invalid mnemonic: %w", err)
	}
	path, err := hdwallet.ParseDerivationPath(fmt.Sprintf("m/44'/60'/0'/0/%d", index))
	if err != nil {
		return "", "", fmt.Errorf("invalid derivation path: %w", err)
	}
	acct, err := w.Derive(path, false)
	if err != nil {
		return "", "", fmt.Errorf("derive failed: %w", err)
	}
	privHex, err = w.PrivateKeyHex(acct)
	if err != nil {
		return "", "", fmt.Errorf("private key failed: %w", err)
	}
	return privHex, strings.ToLower(acct.Address.Hex()), nil
}
