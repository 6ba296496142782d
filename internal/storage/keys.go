package storage

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const (
	blockPrefix = "b"
	entryPrefix = "e"
	ConfigKey   = "-cfg"
	RevisionKey = "-rev"
)

// EntryKey identifies one stored version of one path.
type EntryKey struct {
	Path    string
	Version int
}

func BlockKey(hash string) string { return blockPrefix + hash }

func EntryStorageKey(path string, version int) string {
	return entryPrefix + strconv.Itoa(version) + "," + path
}

// ParseBlockKey reports the hash of a block key.
func ParseBlockKey(key string) (string, bool) {
	if !strings.HasPrefix(key, blockPrefix) || len(key) == len(blockPrefix) {
		return "", false
	}
	return key[len(blockPrefix):], true
}

// ParseEntryKey splits an entry key into path and version.
func ParseEntryKey(key string) (EntryKey, error) {
	if !strings.HasPrefix(key, entryPrefix) {
		return EntryKey{}, fmt.Errorf("%w: %q is not an entry key", ErrInvalidKey, key)
	}
	v, path, ok := strings.Cut(key[len(entryPrefix):], ",")
	if !ok || path == "" {
		return EntryKey{}, fmt.Errorf("%w: %q has no path", ErrInvalidKey, key)
	}
	version, err := strconv.Atoi(v)
	if err != nil || version < 1 {
		return EntryKey{}, fmt.Errorf("%w: %q has bad version %q", ErrInvalidKey, key, v)
	}
	return EntryKey{Path: path, Version: version}, nil
}

// EncodeName maps an arbitrary key to a name safe for file systems, FTP
// servers and object stores (URL-safe base64).
func EncodeName(key string) string {
	return base64.URLEncoding.EncodeToString([]byte(key))
}

func DecodeName(name string) (string, error) {
	b, err := base64.URLEncoding.DecodeString(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidKey, name, err)
	}
	return string(b), nil
}
