// Package models contains data structures used across handlers
package models

import "time"

// StorageConfig is a named connection profile for one bucket
type StorageConfig struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	Endpoint        string `json:"endpoint,omitempty"`
}

// ObjectEntry is one row of a listing. Directory keys are common prefixes
// ending in "/" and do not name stored objects.
type ObjectEntry struct {
	Key          string
	Size         int64
	LastModified time.Time
	IsDirectory  bool
}

// EntryView is an ObjectEntry with display metadata
type EntryView struct {
	ObjectEntry
	DisplayName   string
	FormattedSize string
	Modified      string
}

// Breadcrumb for navigation
type Breadcrumb struct {
	Name string
	Path string
}
