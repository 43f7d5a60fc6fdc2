package middleware

import (
	"net/http"

	"github.com/damacus/s3-manager/internal/services"
	"github.com/damacus/s3-manager/internal/utils"
	"github.com/labstack/echo/v4"
)

var publicPaths = map[string]bool{
	"/login":   true,
	"/logout":  true,
	"/health":  true,
	"/metrics": true,
}

// PasswordGate requires a valid session cookie when a password is
// configured. Without one every request passes.
func PasswordGate(authService *services.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !authService.Enabled() || publicPaths[c.Request().URL.Path] {
				return next(c)
			}

			cookie, err := c.Cookie(utils.CookieName)
			if err != nil {
				return redirectToLogin(c)
			}

			if err := authService.Validate(cookie.Value); err != nil {
				// Clear it to prevent a redirect loop
				cookie.MaxAge = -1
				cookie.Path = "/"
				c.SetCookie(cookie)
				return redirectToLogin(c)
			}

			return next(c)
		}
	}
}

func redirectToLogin(c echo.Context) error {
	if c.Request().Header.Get("HX-Request") == "true" {
		c.Response().Header().Set("HX-Redirect", "/login")
		return c.NoContent(http.StatusUnauthorized)
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}
