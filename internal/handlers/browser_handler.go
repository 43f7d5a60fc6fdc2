package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/damacus/s3-manager/internal/models"
	"github.com/damacus/s3-manager/internal/navigation"
	"github.com/damacus/s3-manager/internal/services"
	"github.com/damacus/s3-manager/internal/utils"
	"github.com/labstack/echo/v4"
)

type BrowserHandler struct {
	browser     *navigation.Browser
	authEnabled bool
	logger      *slog.Logger
	now         func() time.Time
}

func NewBrowserHandler(browser *navigation.Browser, authEnabled bool, logger *slog.Logger) *BrowserHandler {
	return &BrowserHandler{
		browser:     browser,
		authEnabled: authEnabled,
		logger:      logger,
		now:         time.Now,
	}
}

// viewData builds the template data for the page and the workspace partial
func (h *BrowserHandler) viewData(c echo.Context, notice string) (map[string]interface{}, error) {
	snap := h.browser.Snapshot()
	configs, err := h.browser.Configs().List()
	if err != nil {
		return nil, err
	}

	bucket := ""
	for _, cfg := range configs {
		if cfg.ID == snap.ConfigID {
			bucket = cfg.Bucket
		}
	}

	now := h.now()
	entries := make([]models.EntryView, 0, len(snap.Entries))
	for _, entry := range snap.Entries {
		view := models.EntryView{
			ObjectEntry: entry,
			DisplayName: navigation.DisplayName(entry.Key),
		}
		if !entry.IsDirectory {
			view.FormattedSize = utils.FormatFileSize(entry.Size)
			view.Modified = utils.FormatModified(entry.LastModified, now)
		}
		entries = append(entries, view)
	}

	return map[string]interface{}{
		"CSRF":        CSRFToken(c),
		"AuthEnabled": h.authEnabled,
		"Configs":     configs,
		"ActiveID":    snap.ConfigID,
		"Active":      snap.State == navigation.ConfigActive,
		"Bucket":      bucket,
		"CurrentPath": snap.CurrentPath,
		"Breadcrumbs": navigation.Breadcrumbs(snap.CurrentPath),
		"Entries":     entries,
		"CanGoUp":     snap.CanGoUp(),
		"Error":       snap.Error,
		"Notice":      notice,
	}, nil
}

// render sends the whole page, or only the workspace to htmx
func (h *BrowserHandler) render(c echo.Context, status int, notice string) error {
	data, err := h.viewData(c, notice)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load configurations")
	}
	if IsHTMX(c) {
		return c.Render(status, "workspace", data)
	}
	return c.Render(status, "browser", data)
}

// respond maps the outcome of a browser call onto the rendered workspace.
// Listing failures are already reflected in the session as the error banner.
func (h *BrowserHandler) respond(c echo.Context, err error) error {
	var opErr *services.OperationError
	var listErr *services.ListError
	switch {
	case err == nil,
		errors.Is(err, navigation.ErrStaleListing),
		errors.Is(err, navigation.ErrAtRoot),
		errors.As(err, &listErr):
		return h.render(c, http.StatusOK, "")
	case errors.Is(err, navigation.ErrNoConfig):
		return h.render(c, http.StatusConflict, "Select a configuration first")
	case errors.Is(err, services.ErrInvalidPrefix):
		return h.render(c, http.StatusBadRequest, "Invalid path")
	case errors.As(err, &opErr):
		h.logger.Error("storage operation failed", "op", opErr.Op, "key", opErr.Key, "error", opErr.Err)
		return h.render(c, http.StatusBadGateway, opErr.Notice())
	default:
		return err
	}
}

// Index renders the main page
func (h *BrowserHandler) Index(c echo.Context) error {
	if err := h.browser.Sync(c.Request().Context()); err != nil {
		h.logger.Warn("failed to restore active configuration", "error", err)
	}
	return h.render(c, http.StatusOK, "")
}

// Browse lists the prefix given in the query string
func (h *BrowserHandler) Browse(c echo.Context) error {
	return h.respond(c, h.browser.Navigate(c.Request().Context(), c.QueryParam("prefix")))
}

// Up lists the parent of the current path
func (h *BrowserHandler) Up(c echo.Context) error {
	return h.respond(c, h.browser.Up(c.Request().Context()))
}

// Upload stores the posted file in the current path
func (h *BrowserHandler) Upload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No file uploaded")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	key, err := h.browser.Upload(c.Request().Context(), file.Filename, src, file.Size, file.Header.Get("Content-Type"))
	if err == nil {
		h.logger.Info("uploaded object", "key", key, "size", file.Size)
	}
	return h.respond(c, err)
}

// Download sends an object as an attachment
func (h *BrowserHandler) Download(c echo.Context) error {
	key := c.QueryParam("key")
	if key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Object key is required")
	}

	// download links are plain navigations, so failures get the whole page
	data, err := h.browser.Download(c.Request().Context(), key)
	if err != nil {
		return h.respond(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", navigation.DisplayName(key)))
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, data)
}

// Delete removes the object named in the query string
func (h *BrowserHandler) Delete(c echo.Context) error {
	key := c.QueryParam("key")
	if key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Object key is required")
	}

	err := h.browser.Delete(c.Request().Context(), key)
	if err == nil {
		h.logger.Info("deleted object", "key", key)
	}
	return h.respond(c, err)
}
