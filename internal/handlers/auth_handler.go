package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	customMiddleware "github.com/damacus/s3-manager/internal/middleware"
	"github.com/damacus/s3-manager/internal/services"
	"github.com/damacus/s3-manager/internal/utils"
	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	authService *services.AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService *services.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// LoginPage renders the login view
func (h *AuthHandler) LoginPage(c echo.Context) error {
	if !h.authService.Enabled() {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	// Already signed in
	if cookie, err := c.Cookie(utils.CookieName); err == nil {
		if h.authService.Validate(cookie.Value) == nil {
			return c.Redirect(http.StatusSeeOther, "/")
		}
	}
	return c.Render(http.StatusOK, "login", map[string]interface{}{
		"CSRF": CSRFToken(c),
	})
}

// Login checks the password and issues the session cookie
func (h *AuthHandler) Login(c echo.Context) error {
	if !h.authService.Enabled() {
		return HTMXRedirect(c, "/")
	}
	token, err := h.authService.Login(c.FormValue("password"))
	if errors.Is(err, services.ErrWrongPassword) {
		h.logger.Warn("failed login attempt", "remote", c.RealIP())
		return c.Render(http.StatusOK, "login_error", "Invalid password")
	}
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		return c.HTML(http.StatusInternalServerError, "Failed to create session")
	}

	cookie := new(http.Cookie)
	cookie.Name = utils.CookieName
	cookie.Value = token
	cookie.Expires = time.Now().Add(services.SessionTTL)
	cookie.Path = "/"
	cookie.HttpOnly = true
	cookie.SameSite = http.SameSiteStrictMode
	cookie.Secure = customMiddleware.IsSecureRequest(c)
	c.SetCookie(cookie)

	return HTMXRedirect(c, "/")
}

// Logout clears the session
func (h *AuthHandler) Logout(c echo.Context) error {
	cookie := new(http.Cookie)
	cookie.Name = utils.CookieName
	cookie.Value = ""
	cookie.Expires = time.Now().Add(-1 * time.Hour)
	cookie.MaxAge = -1
	cookie.Path = "/"
	cookie.HttpOnly = true
	cookie.SameSite = http.SameSiteStrictMode
	cookie.Secure = customMiddleware.IsSecureRequest(c)
	c.SetCookie(cookie)
	return c.Redirect(http.StatusSeeOther, "/login")
}
