// Package vault encrypts custodial wallet private keys at rest.
//
// Each key is sealed with AES-256-GCM under a per-user key derived from the
// process-wide master secret via PBKDF2-SHA512. The derivation salt is mixed
// with a domain separator bound to the lowercase wallet address, so a leaked
// derived key cannot decrypt any other user's bundle.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// MinMasterSecretLen is the minimum accepted master secret length.
	MinMasterSecretLen = 32

	// Iterations is the PBKDF2 iteration count. Slow on purpose.
	Iterations = 100_000

	saltLen = 32
	ivLen   = 16
	keyLen  = 32
	tagLen  = 16
)

var (
	// ErrMasterSecret means the vault was constructed with a short or missing
	// master secret. Configuration problem, never retried.
	ErrMasterSecret = errors.New("vault: master secret must be at least 32 bytes")

	// ErrAuthFailed is the single failure signal for decryption. Wrong master
	// secret and corrupted ciphertext are deliberately indistinguishable.
	ErrAuthFailed = errors.New("vault: authentication failed")

	errBadBundle = errors.New("vault: malformed bundle")
)

// Bundle is the encrypted-at-rest form of a private key. Each field is stored
// independently; none of them is secret on its own.
type Bundle struct {
	Ciphertext []byte
	IV         []byte
	AuthTag    []byte
	Salt       []byte
}

// separatorVariant tags a domain-separator scheme. Decrypt tries Current
// first and falls back to Legacy exactly once, for bundles written under the
// historical naming. Encrypt only ever uses Current.
type separatorVariant int

const (
	variantCurrent separatorVariant = iota
	variantLegacy
)

var decryptVariants = [...]separatorVariant{variantCurrent, variantLegacy}

func domainSeparator(v separatorVariant, walletAddress string) []byte {
	addr := strings.ToLower(strings.TrimSpace(walletAddress))
	switch v {
	case variantLegacy:
		return []byte("wallet-encryption:" + addr)
	default:
		return []byte("polyterm:wallet:v1:" + addr)
	}
}

// Vault seals and opens private key bundles. It performs no I/O and keeps no
// per-call state; a single instance is safe for concurrent use.
type Vault struct {
	masterSecret []byte
}

// New builds a Vault around an immutable master secret. The secret is
// injected here once at startup; nothing else in the process reads it.
func New(masterSecret []byte) (*Vault, error) {
	if len(masterSecret) < MinMasterSecretLen {
		return nil, ErrMasterSecret
	}
	ms := make([]byte, len(masterSecret))
	copy(ms, masterSecret)
	return &Vault{masterSecret: ms}, nil
}

func (v *Vault) deriveKey(salt []byte, walletAddress string, variant separatorVariant) []byte {
	mixed := make([]byte, 0, len(salt)+64)
	mixed = append(mixed, salt...)
	mixed = append(mixed, domainSeparator(variant, walletAddress)...)
	return pbkdf2.Key(v.masterSecret, mixed, Iterations, keyLen, sha512.New)
}

// Encrypt seals a private key for the given wallet address. Salt and IV are
// freshly random for every call; reuse across encryptions is forbidden.
func (v *Vault) Encrypt(privateKey []byte, walletAddress string) (*Bundle, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	iv := make([]byte, ivLen)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}

	key := v.deriveKey(salt, walletAddress, variantCurrent)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivLen)
	if err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, iv, privateKey, nil)
	// Seal appends the tag to the ciphertext; store them separately.
	ct := sealed[:len(sealed)-tagLen]
	tag := sealed[len(sealed)-tagLen:]

	return &Bundle{
		Ciphertext: ct,
		IV:         iv,
		AuthTag:    tag,
		Salt:       salt,
	}, nil
}

// Decrypt opens a bundle for the given wallet address. Any tag failure
// surfaces as ErrAuthFailed after the legacy separator has been tried once.
func (v *Vault) Decrypt(bundle *Bundle, walletAddress string) ([]byte, error) {
	if bundle == nil || len(bundle.IV) != ivLen || len(bundle.AuthTag) != tagLen || len(bundle.Salt) == 0 {
		return nil, errBadBundle
	}

	sealed := make([]byte, 0, len(bundle.Ciphertext)+tagLen)
	sealed = append(sealed, bundle.Ciphertext...)
	sealed = append(sealed, bundle.AuthTag...)

	for _, variant := range decryptVariants {
		key := v.deriveKey(bundle.Salt, walletAddress, variant)
		block, err := aes.NewCipher(key)
		if err != nil {
			zero(key)
			return nil, err
		}
		gcm, err := cipher.NewGCMWithNonceSize(block, ivLen)
		if err != nil {
			zero(key)
			return nil, err
		}
		plaintext, err := gcm.Open(nil, bundle.IV, sealed, nil)
		zero(key)
		if err == nil {
			return plaintext, nil
		}
	}

	return nil, ErrAuthFailed
}

// Zero wipes a byte slice holding key material. Callers must invoke it on
// every decrypted private key as soon as the signing call returns.
func Zero(b []byte) { zero(b) }

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
