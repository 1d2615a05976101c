package utils

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName prepares a user supplied name for use as a single path
// element. It trims spaces and converts to NFC, so a product typed on macOS
// (NFD) and on Windows (NFC) lands in the same directory.
func NormalizeName(s string) (string, error) {
	name := norm.NFC.String(strings.TrimSpace(s))
	if name == "" {
		return "", fmt.Errorf("name is empty")
	}
	if name == "." || name == ".." {
		return "", fmt.Errorf("name %q is not allowed", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("name %q must not contain path separators", name)
	}
	if strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("name must not contain NUL")
	}
	return name, nil
}
