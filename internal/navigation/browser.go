package navigation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/damacus/s3-manager/internal/models"
	"github.com/damacus/s3-manager/internal/services"
	"github.com/damacus/s3-manager/internal/store"
)

// Browser ties the configuration store, the storage client and the session
// together. A failed listing is taken to mean the configuration is broken:
// it is deactivated and the message is kept for the error banner. Upload,
// download and delete failures only go back to the caller.
//
// mu pairs every change of the session's configuration with the matching
// change of the store's active id, so the two never disagree.
type Browser struct {
	mu      sync.Mutex
	store   store.ConfigStore
	factory services.StorageClientFactory
	session *Session
	logger  *slog.Logger
}

func NewBrowser(configs store.ConfigStore, factory services.StorageClientFactory, logger *slog.Logger) *Browser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Browser{
		store:   configs,
		factory: factory,
		session: NewSession(),
		logger:  logger,
	}
}

// Snapshot returns the current session state
func (b *Browser) Snapshot() Snapshot {
	return b.session.Snapshot()
}

// Configs returns the store backing the browser
func (b *Browser) Configs() store.ConfigStore {
	return b.store
}

// Sync brings the session in line with the store's active configuration,
// e.g. after a restart or an edit.
func (b *Browser) Sync(ctx context.Context) error {
	cfg, ok, err := b.store.Active()
	if err != nil {
		return err
	}
	if !ok {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.session.State() == ConfigActive {
			b.session.Deactivate()
		}
		return nil
	}
	if b.session.ConfigID() == cfg.ID {
		return nil
	}
	return b.activate(ctx, cfg)
}

// Select makes id the active configuration and lists its root
func (b *Browser) Select(ctx context.Context, id string) error {
	cfg, err := b.store.Get(id)
	if err != nil {
		return err
	}
	return b.activate(ctx, cfg)
}

// Deselect clears the active configuration
func (b *Browser) Deselect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.store.SetActive(""); err != nil {
		return err
	}
	b.session.Deactivate()
	return nil
}

func (b *Browser) activate(ctx context.Context, cfg models.StorageConfig) error {
	client, err := b.factory.NewClient(cfg)
	if err != nil {
		b.logger.Error("failed to create storage client", "config", cfg.ID, "error", err)
		err = &services.ListError{Err: err}
		b.mu.Lock()
		defer b.mu.Unlock()
		b.session.Deactivate()
		b.session.SetError(services.DescribeError(err))
		if serr := b.store.SetActive(""); serr != nil {
			b.logger.Error("failed to deactivate configuration", "config", cfg.ID, "error", serr)
		}
		return err
	}

	b.mu.Lock()
	if err := b.store.SetActive(cfg.ID); err != nil {
		b.mu.Unlock()
		return err
	}
	epoch := b.session.Begin(cfg.ID, client)
	b.mu.Unlock()

	b.logger.Info("activating configuration", "config", cfg.ID, "bucket", cfg.Bucket)
	return b.check(epoch, cfg.ID, b.session.Enter(ctx, epoch))
}

// check applies the listing failure policy to err, provided the activation
// identified by epoch is still the current one.
func (b *Browser) check(epoch uint64, configID string, err error) error {
	if err == nil || errors.Is(err, ErrStaleListing) || errors.Is(err, ErrNoConfig) || errors.Is(err, ErrAtRoot) {
		return err
	}
	b.logger.Error("failed to load files", "config", configID, "error", err)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session.Epoch() != epoch || !b.session.Fail(configID, services.DescribeError(err)) {
		return err
	}
	if serr := b.store.SetActive(""); serr != nil {
		b.logger.Error("failed to deactivate configuration", "config", configID, "error", serr)
	}
	return err
}

// visit lists path and applies the failure policy to the activation the
// listing actually ran in.
func (b *Browser) visit(ctx context.Context, path string) error {
	configID := b.session.ConfigID()
	epoch, err := b.session.Visit(ctx, path)
	return b.check(epoch, configID, err)
}

// Navigate lists path within the active configuration. A malformed path
// is rejected before any request is made and does not count as a failure.
func (b *Browser) Navigate(ctx context.Context, path string) error {
	if !services.ValidPrefix(path) {
		return services.ErrInvalidPrefix
	}
	return b.visit(ctx, path)
}

// Up navigates to the parent prefix
func (b *Browser) Up(ctx context.Context) error {
	if b.session.State() == NoConfig {
		return ErrNoConfig
	}
	parent, ok := ParentPath(b.session.CurrentPath())
	if !ok {
		return ErrAtRoot
	}
	return b.visit(ctx, parent)
}

// Refresh lists the current path again
func (b *Browser) Refresh(ctx context.Context) error {
	return b.visit(ctx, b.session.CurrentPath())
}

// target returns the client and path of the active configuration, taken
// together from the session.
func (b *Browser) target() (services.ObjectStore, string, error) {
	t, err := b.session.Target()
	if err != nil {
		return nil, "", err
	}
	client, ok := t.Lister.(services.ObjectStore)
	if !ok {
		return nil, "", ErrNoConfig
	}
	return client, t.Path, nil
}

// Upload stores reader as name inside the current path and refreshes the listing
func (b *Browser) Upload(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (string, error) {
	client, path, err := b.target()
	if err != nil {
		return "", err
	}
	key := path + name
	if err := client.Upload(ctx, key, reader, size, contentType); err != nil {
		return key, err
	}
	return key, b.Refresh(ctx)
}

// Download returns the object body for key
func (b *Browser) Download(ctx context.Context, key string) ([]byte, error) {
	client, _, err := b.target()
	if err != nil {
		return nil, err
	}
	return client.Download(ctx, key)
}

// Delete removes key and refreshes the listing
func (b *Browser) Delete(ctx context.Context, key string) error {
	client, _, err := b.target()
	if err != nil {
		return err
	}
	if err := client.Delete(ctx, key); err != nil {
		return err
	}
	return b.Refresh(ctx)
}

// AddConfig stores a new configuration
func (b *Browser) AddConfig(cfg models.StorageConfig) (models.StorageConfig, error) {
	return b.store.Add(cfg)
}

// UpdateConfig edits a configuration. Editing the active one reconnects
// with the new settings, starting again from the root.
func (b *Browser) UpdateConfig(ctx context.Context, id string, changes models.StorageConfig) (models.StorageConfig, error) {
	cfg, err := b.store.Update(id, changes)
	if err != nil {
		return cfg, err
	}
	if b.store.ActiveID() == id {
		return cfg, b.activate(ctx, cfg)
	}
	return cfg, nil
}

// DeleteConfig removes a configuration, ending the session if it was active
func (b *Browser) DeleteConfig(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.store.Delete(id); err != nil {
		return err
	}
	if b.session.ConfigID() == id {
		b.session.Deactivate()
	}
	return nil
}
