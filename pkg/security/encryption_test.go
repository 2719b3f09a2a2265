package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealRoundTrip(t *testing.T) {
	key, err := KeyFromPassphrase("lab bench 4")
	require.NoError(t, err)
	s, err := NewAESSealer(key)
	require.NoError(t, err)

	sealed, err := s.Seal([]byte(`{"token":"abc"}`))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "abc")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, `{"token":"abc"}`, string(plain))
}

func TestOpenWithWrongKey(t *testing.T) {
	k1, _ := KeyFromPassphrase("one")
	k2, _ := KeyFromPassphrase("two")
	s1, err := NewAESSealer(k1)
	require.NoError(t, err)
	s2, err := NewAESSealer(k2)
	require.NoError(t, err)

	sealed, err := s1.Seal([]byte("secret"))
	require.NoError(t, err)
	_, err = s2.Open(sealed)
	assert.ErrorIs(t, err, ErrDecryption)

	_, err = s1.Open([]byte("short"))
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestKeyFromPassphraseIsDeterministic(t *testing.T) {
	a, _ := KeyFromPassphrase("same")
	b, _ := KeyFromPassphrase("same")
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)

	_, err := NewAESSealer([]byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}
