// Package util provides utility functions for content hashing and URL origins.
package util

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

func ContentHashString(content string) string {
	return ContentHash([]byte(content))
}

// Origin reduces a URL to its lowercased scheme://host form, with any
// trailing slash removed. Returns "" when the input has no usable
// scheme and host.
func Origin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}
