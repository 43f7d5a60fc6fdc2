// Package utils provides shared utility functions
package utils

import (
	"time"

	"github.com/dustin/go-humanize"
)

// FormatFileSize converts a file size to IEC units (e.g., "1.5 KiB")
func FormatFileSize(size int64) string {
	if size < 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(size))
}

// FormatModified renders t relative to now ("3 minutes ago")
func FormatModified(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
