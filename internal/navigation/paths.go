package navigation

import (
	"strings"

	"github.com/damacus/s3-manager/internal/models"
)

const delimiter = "/"

// ParentPath drops the last non-empty segment of p. ok is false at the root,
// where there is nothing to go up to.
func ParentPath(p string) (parent string, ok bool) {
	trimmed := strings.TrimRight(p, delimiter)
	if trimmed == "" {
		return "", false
	}
	i := strings.LastIndex(trimmed, delimiter)
	if i < 0 {
		return "", true
	}
	return trimmed[:i+1], true
}

// DisplayName is the last non-empty segment of key
func DisplayName(key string) string {
	trimmed := strings.TrimRight(key, delimiter)
	if trimmed == "" {
		return key
	}
	return trimmed[strings.LastIndex(trimmed, delimiter)+1:]
}

// Breadcrumbs splits prefix into cumulative paths for the path bar
func Breadcrumbs(prefix string) []models.Breadcrumb {
	var breadcrumbs []models.Breadcrumb
	path := ""
	for _, part := range strings.Split(prefix, delimiter) {
		if part == "" {
			continue
		}
		path += part + delimiter
		breadcrumbs = append(breadcrumbs, models.Breadcrumb{
			Name: part,
			Path: path,
		})
	}
	return breadcrumbs
}
