package credstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clobtypes "github.com/polyterm/polyterm/clob/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(OpenOptions{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	in := &clobtypes.ApiKeyCreds{Key: "k-1", Secret: "c2VjcmV0", Passphrase: "pass"}
	require.NoError(t, s.Put("u-1", in))

	out, err := s.Get("u-1")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestGetMissingUser(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get("ghost")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPutRejectsIncomplete(t *testing.T) {
	s := openTestStore(t)

	assert.Error(t, s.Put("u-1", nil))
	assert.Error(t, s.Put("u-1", &clobtypes.ApiKeyCreds{Key: "k"}))
	assert.Error(t, s.Put("", &clobtypes.ApiKeyCreds{Key: "k", Secret: "s", Passphrase: "p"}))
}

func TestPutOverwrites(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("u-1", &clobtypes.ApiKeyCreds{Key: "old", Secret: "s", Passphrase: "p"}))
	require.NoError(t, s.Put("u-1", &clobtypes.ApiKeyCreds{Key: "new", Secret: "s2", Passphrase: "p2"}))

	out, err := s.Get("u-1")
	require.NoError(t, err)
	assert.Equal(t, "new", out.Key)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("u-1", &clobtypes.ApiKeyCreds{Key: "k", Secret: "s", Passphrase: "p"}))
	require.NoError(t, s.Delete("u-1"))
	require.NoError(t, s.Delete("u-1"))

	_, err := s.Get("u-1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestNormalizeCreateResponse(t *testing.T) {
	creds, err := NormalizeCreateResponse([]byte(`{"apiKey":"a","secret":"s","passphrase":"p"}`))
	require.NoError(t, err)
	assert.Equal(t, "a", creds.Key)

	creds, err = NormalizeCreateResponse([]byte(`{"key":"b","secret":"s","passphrase":"p"}`))
	require.NoError(t, err)
	assert.Equal(t, "b", creds.Key)

	_, err = NormalizeCreateResponse([]byte(`{"secret":"s","passphrase":"p"}`))
	assert.Error(t, err)

	_, err = NormalizeCreateResponse([]byte(`not json`))
	assert.Error(t, err)
}
