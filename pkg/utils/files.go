package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MakeDir creates a directory with all parent directories
func MakeDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// MoveFile moves or renames a file
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move file from %s to %s: %w", src, dst, err)
	}
	return nil
}

// TempPath returns a unique path in dir for an uploaded file. Only the base
// name of the client-supplied name is kept.
func TempPath(dir, prefix, name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), base))
}
