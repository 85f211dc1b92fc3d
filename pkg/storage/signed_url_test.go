package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Minute)

	token, expiresAt, err := signer.Generate("att-1", "abc123")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	attachmentID, blobHash, parsedExp, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "att-1", attachmentID)
	assert.Equal(t, "abc123", blobHash)
	assert.Equal(t, expiresAt.Unix(), parsedExp.Unix())
}

func TestSignedURLTamperedToken(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Minute)

	token, _, err := signer.Generate("att-1", "abc123")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "att-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	assert.Error(t, err)
}

func TestSignedURLWrongSecret(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Minute)
	other := NewSignedURLSigner("other-secret", time.Minute)

	token, _, err := signer.Generate("att-1", "abc123")
	require.NoError(t, err)

	_, _, _, err = other.Parse(token, false)
	assert.Error(t, err)
}

func TestSignedURLExpired(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", -time.Minute)
	// negative TTL falls back to the default, so force a stale window
	signer.ttl = -time.Minute

	token, _, err := signer.Generate("att-1", "abc123")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token, false)
	assert.Error(t, err)

	attachmentID, _, _, err := signer.Parse(token, true)
	require.NoError(t, err, "expired tokens parse when explicitly allowed")
	assert.Equal(t, "att-1", attachmentID)
}

func TestSignedURLMalformed(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Minute)

	_, _, _, err := signer.Parse("nonsense", false)
	assert.Error(t, err)

	_, _, _, err = signer.Parse("a.b.c", false)
	assert.Error(t, err)
}

func TestSignedURLEmptyInputs(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Minute)

	_, _, err := signer.Generate("", "abc123")
	assert.Error(t, err)

	_, _, err = signer.Generate("att-1", "")
	assert.Error(t, err)
}
