package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/damacus/s3-manager/internal/models"
	"github.com/damacus/s3-manager/internal/navigation"
	"github.com/damacus/s3-manager/internal/store"
	"github.com/labstack/echo/v4"
)

type ConfigsHandler struct {
	browser *navigation.Browser
	logger  *slog.Logger
}

func NewConfigsHandler(browser *navigation.Browser, logger *slog.Logger) *ConfigsHandler {
	return &ConfigsHandler{browser: browser, logger: logger}
}

func configFromForm(c echo.Context) models.StorageConfig {
	return models.StorageConfig{
		Name:            strings.TrimSpace(c.FormValue("name")),
		Bucket:          strings.TrimSpace(c.FormValue("bucket")),
		Region:          strings.TrimSpace(c.FormValue("region")),
		AccessKeyID:     strings.TrimSpace(c.FormValue("accessKeyId")),
		SecretAccessKey: c.FormValue("secretAccessKey"),
		Endpoint:        strings.TrimSpace(c.FormValue("endpoint")),
	}
}

func (h *ConfigsHandler) renderForm(c echo.Context, status int, action, title string, cfg models.StorageConfig, editing bool, message string) error {
	// Never echo the secret back into the page
	cfg.SecretAccessKey = ""
	return c.Render(status, "config_form", map[string]interface{}{
		"CSRF":    CSRFToken(c),
		"Action":  action,
		"Title":   title,
		"Config":  cfg,
		"Editing": editing,
		"Error":   message,
	})
}

// CreateModal renders the empty configuration form
func (h *ConfigsHandler) CreateModal(c echo.Context) error {
	return h.renderForm(c, http.StatusOK, "/configs/create", "Add configuration", models.StorageConfig{}, false, "")
}

// Create stores a new configuration
func (h *ConfigsHandler) Create(c echo.Context) error {
	cfg := configFromForm(c)
	saved, err := h.browser.AddConfig(cfg)
	if errors.Is(err, store.ErrInvalidConfig) {
		return h.renderForm(c, http.StatusBadRequest, "/configs/create", "Add configuration", cfg, false, "Name and bucket are required")
	}
	if err != nil {
		h.logger.Error("failed to save configuration", "error", err)
		return h.renderForm(c, http.StatusInternalServerError, "/configs/create", "Add configuration", cfg, false, "Failed to save configuration")
	}

	h.logger.Info("configuration added", "config", saved.ID, "name", saved.Name)
	return HTMXRedirect(c, "/")
}

// EditModal renders the form for an existing configuration
func (h *ConfigsHandler) EditModal(c echo.Context) error {
	id := c.Param("id")
	cfg, err := h.browser.Configs().Get(id)
	if errors.Is(err, store.ErrConfigNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Configuration not found")
	}
	if err != nil {
		return err
	}
	return h.renderForm(c, http.StatusOK, "/configs/"+id+"/edit", "Edit configuration", cfg, true, "")
}

// Edit saves changes to a configuration. Blank fields keep their value.
func (h *ConfigsHandler) Edit(c echo.Context) error {
	id := c.Param("id")
	_, err := h.browser.UpdateConfig(c.Request().Context(), id, configFromForm(c))
	switch {
	case errors.Is(err, store.ErrConfigNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Configuration not found")
	case err != nil:
		// Saved; reconnecting failed and the banner says why
		h.logger.Warn("configuration saved but reconnect failed", "config", id, "error", err)
	}
	return HTMXRedirect(c, "/")
}

// Delete removes a configuration
func (h *ConfigsHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	err := h.browser.DeleteConfig(id)
	if errors.Is(err, store.ErrConfigNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Configuration not found")
	}
	if err != nil {
		return err
	}
	h.logger.Info("configuration deleted", "config", id)
	return HTMXRedirect(c, "/")
}

// Select activates a configuration and lists its root
func (h *ConfigsHandler) Select(c echo.Context) error {
	id := c.Param("id")
	err := h.browser.Select(c.Request().Context(), id)
	if errors.Is(err, store.ErrConfigNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Configuration not found")
	}
	if err != nil {
		h.logger.Warn("failed to activate configuration", "config", id, "error", err)
	}
	return HTMXRedirect(c, "/")
}

// Deselect closes the active configuration
func (h *ConfigsHandler) Deselect(c echo.Context) error {
	if err := h.browser.Deselect(); err != nil {
		return err
	}
	return HTMXRedirect(c, "/")
}
