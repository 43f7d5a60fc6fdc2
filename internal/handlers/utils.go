package handlers

import (
	"net/http"

	customMiddleware "github.com/damacus/s3-manager/internal/middleware"
	"github.com/labstack/echo/v4"
)

// HTMXRedirect sets the HX-Redirect header and returns a 200 OK response.
// This is used for HTMX requests that should trigger a client-side redirect.
func HTMXRedirect(c echo.Context, url string) error {
	c.Response().Header().Set("HX-Redirect", url)
	return c.NoContent(http.StatusOK)
}

// IsHTMX reports whether the request was issued by htmx
func IsHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

// CSRFToken returns the token the CSRF middleware stored for templates
func CSRFToken(c echo.Context) string {
	token, _ := c.Get(customMiddleware.CSRFContextKey).(string)
	return token
}
