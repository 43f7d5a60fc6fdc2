package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBox(t *testing.T) *SecretBox {
	t.Helper()
	box, err := NewSecretBox([]byte("12345678901234567890123456789012"))
	require.NoError(t, err)
	return box
}

func TestNewSecretBox_RejectsShortKey(t *testing.T) {
	_, err := NewSecretBox([]byte("tooshort"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestSecretBox_RoundTrip(t *testing.T) {
	box := testBox(t)

	sealed, err := box.Seal("wJalrXUtnFEMI/K7MDENG")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "wJalrXUtnFEMI")

	plain, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "wJalrXUtnFEMI/K7MDENG", plain)
}

func TestSecretBox_SealIsRandomized(t *testing.T) {
	box := testBox(t)

	a, err := box.Seal("same")
	require.NoError(t, err)
	b, err := box.Seal("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSecretBox_OpenRejectsGarbage(t *testing.T) {
	box := testBox(t)

	_, err := box.Open("not base64!!")
	assert.Error(t, err)

	_, err = box.Open("YWJj")
	assert.ErrorIs(t, err, ErrMalformedCiphertext)

	other, err := NewSecretBox([]byte("abcdefghijklmnopqrstuvwxyz012345"))
	require.NoError(t, err)
	sealed, err := other.Seal("secret")
	require.NoError(t, err)
	_, err = box.Open(sealed)
	assert.Error(t, err)
}

func TestLoadOrCreateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "secret.key")

	key, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	assert.Len(t, key, SecretKeySize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	assert.Equal(t, key, again)
}

func TestLoadOrCreateKey_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.key")
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))

	_, err := LoadOrCreateKey(path)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestAuthService_LoginAndValidate(t *testing.T) {
	svc := NewAuthService("hunter2", testBox(t))
	assert.True(t, svc.Enabled())

	_, err := svc.Login("wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)

	token, err := svc.Login("hunter2")
	require.NoError(t, err)
	assert.NoError(t, svc.Validate(token))
	assert.Error(t, svc.Validate("invalid-token"))
}

func TestAuthService_ExpiredSession(t *testing.T) {
	svc := NewAuthService("hunter2", testBox(t))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	token, err := svc.Login("hunter2")
	require.NoError(t, err)

	svc.now = func() time.Time { return start.Add(SessionTTL + time.Second) }
	assert.ErrorIs(t, svc.Validate(token), ErrSessionExpired)
}

func TestAuthService_DisabledWithoutPassword(t *testing.T) {
	svc := NewAuthService("", testBox(t))
	assert.False(t, svc.Enabled())
}
