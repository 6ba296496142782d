// Package hashing maps the hash function names recorded in a repository's
// configuration to digest implementations. Block hashes are lower-case hex
// strings of the digest. Only collision resistant functions are registered,
// since a block address collision silently corrupts every file sharing it.
package hashing

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
)

// Default is the hash function written into new repositories.
const Default = "blake3"

var ErrUnknownHash = errors.New("unknown hash function")

// Func computes a fixed-length digest.
type Func func(data []byte) []byte

var funcs = map[string]Func{
	"md5": func(data []byte) []byte {
		s := md5.Sum(data)
		return s[:]
	},
	"sha1": func(data []byte) []byte {
		s := sha1.Sum(data)
		return s[:]
	},
	"sha256": func(data []byte) []byte {
		s := sha256.Sum256(data)
		return s[:]
	},
	"blake3": func(data []byte) []byte {
		s := blake3.Sum256(data)
		return s[:]
	},
}

// Checksum is a fast non-cryptographic digest for detecting accidental
// damage to local records. It must never address blocks.
func Checksum(data []byte) uint64 {
	return xxh3.Hash(data)
}

// Hasher produces hex block addresses with a named function.
type Hasher struct {
	name string
	fn   Func
}

// New returns the Hasher registered under name (case-insensitive).
func New(name string) (*Hasher, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	fn, ok := funcs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHash, name)
	}
	return &Hasher{name: key, fn: fn}, nil
}

func (h *Hasher) Name() string { return h.name }

// Sum returns the hex-encoded digest of data.
func (h *Hasher) Sum(data []byte) string {
	return hex.EncodeToString(h.fn(data))
}

// Names lists the supported hash function names.
func Names() []string {
	out := make([]string, 0, len(funcs))
	for n := range funcs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
