package utils

import (
	"os"
	"strings"
)

// SliceToSet converts a slice of any comparable type to a set represented by a map[T]struct{}.
func SliceToSet[T comparable](slice []T) map[T]struct{} {
	set := make(map[T]struct{}, len(slice))
	for _, item := range slice {
		set[item] = struct{}{}
	}
	return set
}

// ConfigPath returns the configuration path from REPORTER_CONFIG, falling
// back to def.
func ConfigPath(def string) string {
	if p := strings.TrimSpace(os.Getenv("REPORTER_CONFIG")); p != "" {
		return p
	}
	return def
}
