// Package credstore persists per-user exchange API credentials in an
// encrypted-at-rest Badger store.
// Note: encryption is provided by Badger options (value log + key registry),
// not by this wrapper; wallet private keys never pass through here.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	clobtypes "github.com/polyterm/polyterm/clob/types"
)

// ErrNotFound means the user has no stored exchange credentials.
var ErrNotFound = errors.New("credstore: credentials not found")

// Store keeps one ApiKeyCreds record per user id.
type Store struct {
	db *badger.DB
}

type OpenOptions struct {
	Path          string
	EncryptionKey []byte // 32 bytes; if nil, DB is opened without encryption (not recommended)
	ReadOnly      bool
}

func Open(opts OpenOptions) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("credstore: path is required")
	}
	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithReadOnly(opts.ReadOnly)
	if len(opts.EncryptionKey) > 0 {
		// Badger requires index cache for encrypted workloads
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(100 << 20) // 100MB
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func credKey(userID string) ([]byte, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("credstore: user id is empty")
	}
	return []byte("creds:" + userID), nil
}

// Put stores the user's credentials, replacing any previous record.
func (s *Store) Put(userID string, creds *clobtypes.ApiKeyCreds) error {
	if s == nil || s.db == nil {
		return errors.New("credstore: not opened")
	}
	if creds == nil || creds.Key == "" || creds.Secret == "" || creds.Passphrase == "" {
		return errors.New("credstore: incomplete credentials")
	}
	k, err := credKey(userID)
	if err != nil {
		return err
	}
	v, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, v)
	})
}

// Get loads the user's credentials.
func (s *Store) Get(userID string) (*clobtypes.ApiKeyCreds, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("credstore: not opened")
	}
	k, err := credKey(userID)
	if err != nil {
		return nil, err
	}
	var creds clobtypes.ApiKeyCreds
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &creds)
		})
	})
	if err != nil {
		return nil, err
	}
	return &creds, nil
}

// Delete removes the user's credentials. Deleting a missing record is not an
// error.
func (s *Store) Delete(userID string) error {
	if s == nil || s.db == nil {
		return errors.New("credstore: not opened")
	}
	k, err := credKey(userID)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

// NormalizeCreateResponse maps the exchange's create-api-key response body to
// ApiKeyCreds. The endpoint has shipped both "apiKey" and "key" field names;
// anything else is a parse error, never a guess.
func NormalizeCreateResponse(body []byte) (*clobtypes.ApiKeyCreds, error) {
	var raw struct {
		APIKey     string `json:"apiKey"`
		Key        string `json:"key"`
		Secret     string `json:"secret"`
		Passphrase string `json:"passphrase"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("credstore: parse create-api-key response: %w", err)
	}
	key := raw.APIKey
	if key == "" {
		key = raw.Key
	}
	if key == "" || raw.Secret == "" || raw.Passphrase == "" {
		return nil, errors.New("credstore: create-api-key response is missing required fields")
	}
	return &clobtypes.ApiKeyCreds{
		Key:        key,
		Secret:     raw.Secret,
		Passphrase: raw.Passphrase,
	}, nil
}
