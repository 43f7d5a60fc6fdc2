// Package store persists storage configurations and the active selection.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/damacus/s3-manager/internal/models"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Sealer encrypts secrets before they are written to disk
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// ConfigStore holds named connection profiles and the active profile id.
// The active id is either empty or names an existing profile.
type ConfigStore interface {
	List() ([]models.StorageConfig, error)
	Get(id string) (models.StorageConfig, error)
	Add(cfg models.StorageConfig) (models.StorageConfig, error)
	Update(id string, changes models.StorageConfig) (models.StorageConfig, error)
	Delete(id string) error
	SetActive(id string) error
	Active() (models.StorageConfig, bool, error)
	ActiveID() string
}

// record is the on-disk form of a StorageConfig; the secret stays sealed.
type record struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Bucket       string `json:"bucket"`
	Region       string `json:"region"`
	AccessKeyID  string `json:"accessKeyId"`
	SealedSecret string `json:"secretAccessKey"`
	Endpoint     string `json:"endpoint,omitempty"`
}

type document struct {
	Configs        []record `json:"configs"`
	ActiveConfigID string   `json:"activeConfigId,omitempty"`
}

// FileStore is a ConfigStore backed by a JSON file
type FileStore struct {
	mu     sync.Mutex
	path   string
	sealer Sealer
	doc    document
}

// Open loads the store at path, starting empty when the file is missing
func Open(path string, sealer Sealer) (*FileStore, error) {
	s := &FileStore{path: path, sealer: sealer}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if s.doc.ActiveConfigID != "" && s.indexOf(s.doc.ActiveConfigID) < 0 {
		s.doc.ActiveConfigID = ""
	}
	return s, nil
}

func (s *FileStore) indexOf(id string) int {
	for i, r := range s.doc.Configs {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// save writes the document atomically; caller holds s.mu
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".configs-*.json")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStore) open(r record) (models.StorageConfig, error) {
	secret := ""
	if r.SealedSecret != "" {
		var err error
		secret, err = s.sealer.Open(r.SealedSecret)
		if err != nil {
			return models.StorageConfig{}, fmt.Errorf("open secret for %s: %w", r.ID, err)
		}
	}
	return models.StorageConfig{
		ID:              r.ID,
		Name:            r.Name,
		Bucket:          r.Bucket,
		Region:          r.Region,
		AccessKeyID:     r.AccessKeyID,
		SecretAccessKey: secret,
		Endpoint:        r.Endpoint,
	}, nil
}

func (s *FileStore) seal(cfg models.StorageConfig) (record, error) {
	sealed := ""
	if cfg.SecretAccessKey != "" {
		var err error
		sealed, err = s.sealer.Seal(cfg.SecretAccessKey)
		if err != nil {
			return record{}, err
		}
	}
	return record{
		ID:           cfg.ID,
		Name:         cfg.Name,
		Bucket:       cfg.Bucket,
		Region:       cfg.Region,
		AccessKeyID:  cfg.AccessKeyID,
		SealedSecret: sealed,
		Endpoint:     cfg.Endpoint,
	}, nil
}

// Validate checks the fields a profile cannot work without
func Validate(cfg models.StorageConfig) error {
	switch {
	case cfg.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	case cfg.Bucket == "":
		return fmt.Errorf("%w: bucket is required", ErrInvalidConfig)
	}
	return nil
}

// List returns all profiles in insertion order
func (s *FileStore) List() ([]models.StorageConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs := make([]models.StorageConfig, 0, len(s.doc.Configs))
	for _, r := range s.doc.Configs {
		cfg, err := s.open(r)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func (s *FileStore) Get(id string) (models.StorageConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.StorageConfig{}, ErrConfigNotFound
	}
	return s.open(s.doc.Configs[i])
}

// Add stores cfg under a freshly generated id, ignoring any id it carries
func (s *FileStore) Add(cfg models.StorageConfig) (models.StorageConfig, error) {
	if err := Validate(cfg); err != nil {
		return models.StorageConfig{}, err
	}
	cfg.ID = uuid.NewString()

	r, err := s.seal(cfg)
	if err != nil {
		return models.StorageConfig{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Configs = append(s.doc.Configs, r)
	if err := s.save(); err != nil {
		s.doc.Configs = s.doc.Configs[:len(s.doc.Configs)-1]
		return models.StorageConfig{}, err
	}
	return cfg, nil
}

// Update merges the non-empty fields of changes into the profile. The id
// never changes, and an empty secret keeps the stored one. Endpoint is the
// exception: it is always replaced, so a blank endpoint switches to AWS.
func (s *FileStore) Update(id string, changes models.StorageConfig) (models.StorageConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.StorageConfig{}, ErrConfigNotFound
	}
	cfg, err := s.open(s.doc.Configs[i])
	if err != nil {
		return models.StorageConfig{}, err
	}

	if changes.Name != "" {
		cfg.Name = changes.Name
	}
	if changes.Bucket != "" {
		cfg.Bucket = changes.Bucket
	}
	if changes.Region != "" {
		cfg.Region = changes.Region
	}
	if changes.AccessKeyID != "" {
		cfg.AccessKeyID = changes.AccessKeyID
	}
	if changes.SecretAccessKey != "" {
		cfg.SecretAccessKey = changes.SecretAccessKey
	}
	cfg.Endpoint = changes.Endpoint

	r, err := s.seal(cfg)
	if err != nil {
		return models.StorageConfig{}, err
	}

	prev := s.doc.Configs[i]
	s.doc.Configs[i] = r
	if err := s.save(); err != nil {
		s.doc.Configs[i] = prev
		return models.StorageConfig{}, err
	}
	return cfg, nil
}

// Delete removes the profile; if it was active the active id is cleared
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrConfigNotFound
	}

	prev := s.doc
	configs := make([]record, 0, len(s.doc.Configs)-1)
	configs = append(configs, s.doc.Configs[:i]...)
	configs = append(configs, s.doc.Configs[i+1:]...)
	s.doc.Configs = configs
	if s.doc.ActiveConfigID == id {
		s.doc.ActiveConfigID = ""
	}

	if err := s.save(); err != nil {
		s.doc = prev
		return err
	}
	return nil
}

// SetActive selects the active profile; an empty id clears the selection
func (s *FileStore) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" && s.indexOf(id) < 0 {
		return ErrConfigNotFound
	}
	if s.doc.ActiveConfigID == id {
		return nil
	}

	prev := s.doc.ActiveConfigID
	s.doc.ActiveConfigID = id
	if err := s.save(); err != nil {
		s.doc.ActiveConfigID = prev
		return err
	}
	return nil
}

// ActiveID returns the active profile id or ""
func (s *FileStore) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.ActiveConfigID
}

// Active returns the active profile, ok is false when none is selected
func (s *FileStore) Active() (models.StorageConfig, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.ActiveConfigID == "" {
		return models.StorageConfig{}, false, nil
	}
	i := s.indexOf(s.doc.ActiveConfigID)
	if i < 0 {
		return models.StorageConfig{}, false, nil
	}
	cfg, err := s.open(s.doc.Configs[i])
	if err != nil {
		return models.StorageConfig{}, false, err
	}
	return cfg, true, nil
}
