// Package utils provides shared utility functions and constants
package utils

// CookieName is the name of the session cookie
const CookieName = "S3Manager"
