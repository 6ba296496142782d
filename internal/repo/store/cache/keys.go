package cache

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/keshon/bvault/internal/hashing"
)

// Key namespace:
//
//	"b:" hash                     refcount, uint64 big endian
//	"i:" path                     known versions, msgpack []int
//	"v:" path "\x00" version      entry, xxh3 checksum then storage entry encoding
//	"rev"                         revision token
const (
	prefixBlock    = "b:"
	prefixIndex    = "i:"
	prefixVersion  = "v:"
	keyRevision    = "rev"
	versionSep     = "\x00"
	manifestMarker = "MANIFEST"
)

func keyBlock(hash string) []byte { return []byte(prefixBlock + hash) }
func keyIndex(path string) []byte { return []byte(prefixIndex + path) }

func keyVersion(path string, version int) []byte {
	return []byte(prefixVersion + path + versionSep + strconv.Itoa(version))
}

func encodeCount(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

func decodeCount(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func sealEntry(data []byte) []byte {
	out := make([]byte, 8, 8+len(data))
	binary.BigEndian.PutUint64(out, hashing.Checksum(data))
	return append(out, data...)
}

// openEntry strips and checks the checksum written by sealEntry.
func openEntry(val []byte) ([]byte, error) {
	if len(val) < 8 {
		return nil, fmt.Errorf("%w: %d byte record", ErrCorruptEntry, len(val))
	}
	data := val[8:]
	if binary.BigEndian.Uint64(val[:8]) != hashing.Checksum(data) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptEntry)
	}
	return data, nil
}
