// Package cryptox derives content-addressed keys for attachment blobs.
package cryptox

import (
	"encoding/hex"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ContentKey returns the hex encoded BLAKE2b-256 digest of data.
func ContentKey(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ObjectKey builds a storage key for an attachment: a two level fan-out
// prefix, the content digest and the lower-cased extension of name.
// Uploading the same bytes twice yields the same key.
func ObjectKey(prefix string, data []byte, name string) string {
	file := FileName(data, name)

	parts := make([]string, 0, 3)
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, file[:2], file)
	return strings.Join(parts, "/")
}

// FileName is the flat form of ObjectKey: digest plus extension.
func FileName(data []byte, name string) string {
	return ContentKey(data) + strings.ToLower(filepath.Ext(name))
}
