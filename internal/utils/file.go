package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// IsWritableFormat reports whether format can be used for saved outputs
func IsWritableFormat(format string) bool {
	switch strings.ToLower(format) {
	case "png", "jpg", "jpeg", "webp":
		return true
	}
	return false
}

// OutputPath builds <dir>/<prefix><stage><suffix>.<format> for one pipeline
// stage. An empty format defaults to png.
func OutputPath(dir, prefix, stage, suffix, format string) string {
	if format == "" {
		format = "png"
	}
	name := fmt.Sprintf("%s%s%s.%s", prefix, stage, suffix, strings.ToLower(format))
	return filepath.Join(dir, name)
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// FormatFileSize formats file size in human-readable format
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
