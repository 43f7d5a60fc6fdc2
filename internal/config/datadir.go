package config

import (
	"os"
	"path/filepath"
)

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "s3-manager")
	}
	return ".s3-manager"
}
