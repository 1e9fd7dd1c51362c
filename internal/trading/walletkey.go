package trading

import (
	"crypto/ecdsa"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/polyterm/polyterm/internal/vault"
	"github.com/polyterm/polyterm/internal/wallets"
)

// walletKey is a transiently-decrypted private key. destroy() must be called
// as soon as the single signing/transfer call returns.
type walletKey struct {
	priv *ecdsa.PrivateKey
}

func (k *walletKey) destroy() {
	if k.priv != nil {
		// Clear the scalar; the struct itself is garbage after this.
		k.priv.D.SetInt64(0)
		k.priv = nil
	}
}

// openWalletKey decrypts a wallet's key via the vault and verifies the
// derived address against the stored one. Failures are logged with user id
// and wallet address only; never with key-adjacent detail.
func openWalletKey(v *vault.Vault, w *wallets.CustodialWallet, userID string, log *logrus.Entry) (*walletKey, error) {
	keyBytes, err := v.Decrypt(w.EncryptedKey, w.Address)
	if err != nil {
		log.WithFields(logrus.Fields{
			"user_id": userID,
			"wallet":  w.Address,
		}).Error("wallet key decryption failed")
		if errors.Is(err, vault.ErrAuthFailed) {
			return nil, newErr(CodeWalletIntegrity, "wallet key cannot be decrypted")
		}
		return nil, wrapErr(CodeConfiguration, "vault failure", err)
	}

	privHex := strings.TrimPrefix(strings.TrimSpace(string(keyBytes)), "0x")
	priv, err := crypto.HexToECDSA(privHex)
	vault.Zero(keyBytes)
	if err != nil {
		log.WithFields(logrus.Fields{
			"user_id": userID,
			"wallet":  w.Address,
		}).Error("decrypted wallet key is not a valid private key")
		return nil, newErr(CodeWalletIntegrity, "wallet key is corrupt")
	}

	derived := crypto.PubkeyToAddress(priv.PublicKey)
	if !strings.EqualFold(derived.Hex(), w.Address) {
		priv.D.SetInt64(0)
		log.WithFields(logrus.Fields{
			"user_id": userID,
			"wallet":  w.Address,
		}).Error("derived address does not match stored wallet address")
		return nil, newErr(CodeWalletIntegrity, "wallet address mismatch")
	}

	return &walletKey{priv: priv}, nil
}
