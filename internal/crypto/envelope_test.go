package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	plaintext := []byte("signed facility agreement, draft 3")

	env, err := Seal("deployment-secret", plaintext)
	require.NoError(t, err)

	got, err := Open("deployment-secret", env)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestOpenWrongSecret(t *testing.T) {
	env, err := Seal("deployment-secret", []byte("valuation report"))
	require.NoError(t, err)

	_, err = Open("other-secret", env)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestOpenTamperedCiphertext(t *testing.T) {
	env, err := Seal("deployment-secret", []byte("valuation report"))
	require.NoError(t, err)

	env.Ciphertext[0] ^= 0x01
	_, err = Open("deployment-secret", env)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestOpenMalformedEnvelope(t *testing.T) {
	env, err := Seal("deployment-secret", []byte("valuation report"))
	require.NoError(t, err)

	env.Nonce = env.Nonce[:4]
	_, err = Open("deployment-secret", env)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestSealUsesFreshSaltAndNonce(t *testing.T) {
	a, err := Seal("deployment-secret", []byte("same payload"))
	require.NoError(t, err)
	b, err := Seal("deployment-secret", []byte("same payload"))
	require.NoError(t, err)

	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Nonce, b.Nonce)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}
