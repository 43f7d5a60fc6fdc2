package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/damacus/s3-manager/internal/models"
	"github.com/damacus/s3-manager/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*FileStore, string, *services.SecretBox) {
	t.Helper()
	box, err := services.NewSecretBox([]byte("12345678901234567890123456789012"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "configs.json")
	s, err := Open(path, box)
	require.NoError(t, err)
	return s, path, box
}

func sampleConfig(name string) models.StorageConfig {
	return models.StorageConfig{
		Name:            name,
		Bucket:          "b",
		Region:          "auto",
		AccessKeyID:     "AKIA" + name,
		SecretAccessKey: "secret-" + name,
		Endpoint:        "https://e",
	}
}

func TestFileStore_AddGeneratesID(t *testing.T) {
	s, _, _ := newTestStore(t)

	cfg := sampleConfig("one")
	cfg.ID = "caller-chosen"
	added, err := s.Add(cfg)
	require.NoError(t, err)

	assert.NotEmpty(t, added.ID)
	assert.NotEqual(t, "caller-chosen", added.ID)

	got, err := s.Get(added.ID)
	require.NoError(t, err)
	assert.Equal(t, added, got)
}

func TestFileStore_AddValidates(t *testing.T) {
	s, _, _ := newTestStore(t)

	_, err := s.Add(models.StorageConfig{Bucket: "b"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = s.Add(models.StorageConfig{Name: "n"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFileStore_PersistsWithSealedSecrets(t *testing.T) {
	s, path, box := newTestStore(t)

	added, err := s.Add(sampleConfig("one"))
	require.NoError(t, err)
	require.NoError(t, s.SetActive(added.ID))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "secret-one"), "secret must not be stored in plain text")
	assert.Contains(t, string(raw), added.ID)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := Open(path, box)
	require.NoError(t, err)
	active, ok, err := reopened.Active()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, added, active)
}

func TestFileStore_UpdateKeepsIDAndSecret(t *testing.T) {
	s, _, _ := newTestStore(t)
	added, err := s.Add(sampleConfig("one"))
	require.NoError(t, err)

	updated, err := s.Update(added.ID, models.StorageConfig{
		ID:       "ignored",
		Name:     "renamed",
		Bucket:   "other",
		Endpoint: "https://f",
	})
	require.NoError(t, err)

	assert.Equal(t, added.ID, updated.ID)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, "other", updated.Bucket)
	assert.Equal(t, "auto", updated.Region)
	assert.Equal(t, "secret-one", updated.SecretAccessKey)
	assert.Equal(t, "https://f", updated.Endpoint)

	_, err = s.Update("missing", models.StorageConfig{Name: "x"})
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestFileStore_DeleteActiveClearsActive(t *testing.T) {
	s, _, _ := newTestStore(t)
	a, err := s.Add(sampleConfig("a"))
	require.NoError(t, err)
	b, err := s.Add(sampleConfig("b"))
	require.NoError(t, err)

	require.NoError(t, s.SetActive(a.ID))
	require.NoError(t, s.Delete(a.ID))

	assert.Equal(t, "", s.ActiveID())
	_, ok, err := s.Active()
	require.NoError(t, err)
	assert.False(t, ok)

	configs, err := s.List()
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, b.ID, configs[0].ID)
}

func TestFileStore_DeleteOtherKeepsActive(t *testing.T) {
	s, _, _ := newTestStore(t)
	a, err := s.Add(sampleConfig("a"))
	require.NoError(t, err)
	b, err := s.Add(sampleConfig("b"))
	require.NoError(t, err)

	require.NoError(t, s.SetActive(a.ID))
	require.NoError(t, s.Delete(b.ID))

	assert.Equal(t, a.ID, s.ActiveID())
	assert.ErrorIs(t, s.Delete(b.ID), ErrConfigNotFound)
}

func TestFileStore_SetActive(t *testing.T) {
	s, _, _ := newTestStore(t)
	a, err := s.Add(sampleConfig("a"))
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetActive("missing"), ErrConfigNotFound)
	assert.Equal(t, "", s.ActiveID())

	require.NoError(t, s.SetActive(a.ID))
	assert.Equal(t, a.ID, s.ActiveID())

	require.NoError(t, s.SetActive(""))
	assert.Equal(t, "", s.ActiveID())
}

func TestOpen_DropsDanglingActiveID(t *testing.T) {
	box, err := services.NewSecretBox([]byte("12345678901234567890123456789012"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "configs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"configs":[],"activeConfigId":"gone"}`), 0o600))

	s, err := Open(path, box)
	require.NoError(t, err)
	assert.Equal(t, "", s.ActiveID())
}

func TestOpen_RejectsCorruptFile(t *testing.T) {
	box, err := services.NewSecretBox([]byte("12345678901234567890123456789012"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "configs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err = Open(path, box)
	assert.Error(t, err)
}
