package safety

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SanitizeFilename reduces a server-supplied filename (for example from a
// Content-Disposition header) to a single safe path element.
func SanitizeFilename(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return "", fmt.Errorf("filename is empty")
	}
	base := filepath.Base(filepath.FromSlash(name))
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("filename %q does not name a file", name)
	}
	if strings.ContainsAny(base, "\x00") {
		return "", fmt.Errorf("filename %q contains a NUL byte", name)
	}
	return base, nil
}

// SafeJoinUnder joins a sanitized filename under root and verifies
// the final path remains inside root.
func SafeJoinUnder(root, name string) (string, error) {
	clean, err := SanitizeFilename(name)
	if err != nil {
		return "", err
	}
	return EnsureUnderRoot(root, filepath.Join(root, clean))
}

// EnsureUnderRoot verifies candidate resolves under root and returns
// an absolute normalized path.
func EnsureUnderRoot(root, candidate string) (string, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	candAbs, err := filepath.Abs(candidate)
	if err != nil {
		return "", fmt.Errorf("resolve candidate: %w", err)
	}

	rel, err := filepath.Rel(rootAbs, candAbs)
	if err != nil {
		return "", fmt.Errorf("compare paths: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root: %q", candidate)
	}
	return candAbs, nil
}
