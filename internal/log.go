package internal

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Prefix creates a consistent prefix for all commands that work on a named blob.
func Prefix(command, name string) string {
	return fmt.Sprintf(`[%s] "%s" - `, command, TruncateRightWithSuffix(filepath.Base(name), 30, "..."))
}

// NewLogger creates a new logger to stderr using Prefix.
func NewLogger(command, name string) *log.Logger {
	return log.New(os.Stderr, Prefix(command, name), 0)
}

// TruncateRightWithSuffix keeps the first n runes of text and only appends the suffix if truncation happens.
func TruncateRightWithSuffix(text string, n int, suffix string) string {
	rs := []rune(text)
	if len(rs) <= n {
		return text
	}

	return string(rs[:max(0, n)]) + suffix
}
