package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, expires, err := signer.Generate("req-1", "proofs/bukti_1.pdf")
	require.NoError(t, err)
	require.True(t, expires.After(time.Now()))

	id, path, _, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "req-1", id)
	require.Equal(t, "proofs/bukti_1.pdf", path)
}

func TestSignedURLRejectsTamperedToken(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, _, err := signer.Generate("req-1", "proofs/bukti_1.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token+"x", false)
	require.Error(t, err)
}

func TestSignedURLRejectsExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	signer.ttl = -time.Minute

	token, _, err := signer.Generate("req-1", "proofs/bukti_1.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	_, _, _, err = signer.Parse(token, true)
	require.NoError(t, err)
}

func TestSignedURLRequiresSecret(t *testing.T) {
	signer := NewSignedURLSigner("", time.Minute)

	_, _, err := signer.Generate("req-1", "proofs/bukti_1.pdf")
	require.Error(t, err)
}
