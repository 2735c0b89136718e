// Package address parses the compact "path:key" secret addresses used by
// vaultcache and composes them with the connection's base path.
package address

import (
	"strings"

	dserrors "github.com/systmms/vaultcache/internal/errors"
)

// Separator divides the relative path from the key.
const Separator = ":"

// Parse splits address into its relative path and key. The address must
// contain exactly one separator and both halves must be non-empty after
// trimming surrounding whitespace.
func Parse(address string) (path, key string, err error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return "", "", dserrors.AddressError{Address: address, Reason: "address is empty"}
	}

	if n := strings.Count(trimmed, Separator); n != 1 {
		reason := "missing ':' separator"
		if n > 1 {
			reason = "more than one ':' separator"
		}
		return "", "", dserrors.AddressError{Address: address, Reason: reason}
	}

	path, key, _ = strings.Cut(trimmed, Separator)
	path = strings.TrimSpace(path)
	key = strings.TrimSpace(key)

	if path == "" {
		return "", "", dserrors.AddressError{Address: address, Reason: "path is empty"}
	}
	if key == "" {
		return "", "", dserrors.AddressError{Address: address, Reason: "key is empty"}
	}
	return path, key, nil
}

// Format joins path and key into an address without validating them.
func Format(path, key string) string {
	return path + Separator + key
}

// Canonical parses address and re-formats it from its trimmed halves, so
// that equivalent spellings share one cache entry.
func Canonical(address string) (canonical, path, key string, err error) {
	path, key, err = Parse(address)
	if err != nil {
		return "", "", "", err
	}
	return Format(path, key), path, key, nil
}

// FullPath prefixes relativePath with basePath when one is configured.
func FullPath(basePath, relativePath string) string {
	if basePath == "" {
		return relativePath
	}
	return basePath + "/" + relativePath
}

// NormalizeBasePath strips whitespace and surrounding slashes so FullPath
// never produces doubled separators.
func NormalizeBasePath(basePath string) string {
	return strings.Trim(strings.TrimSpace(basePath), "/")
}
