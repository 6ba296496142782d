// Package codec holds the block compression codecs. Every codec has a
// stable one-byte identifier that is stored in front of each block payload,
// so identifiers must never be reassigned.
package codec

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownCodec = errors.New("unknown codec")
	ErrInvalidLevel = errors.New("invalid compression level")
)

// Codec is a named reversible compression transform. A level of 0 selects
// the codec's default.
type Codec interface {
	Name() string
	ID() byte
	// ValidLevel reports whether Compress accepts level.
	ValidLevel(level int) error
	Compress(data []byte, level int) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// None is the identity codec; it is always registered.
var None Codec = noneCodec{}

var (
	byName = map[string]Codec{}
	byID   = map[byte]Codec{}
)

func init() {
	for _, c := range []Codec{None, deflateCodec{}, zstdCodec{}, lz4Codec{}, s2Codec{}, bzip2Codec{}} {
		Register(c)
	}
}

// Register adds c to the registry, replacing any codec with the same name.
// It panics if the identifier is already taken by a different name.
func Register(c Codec) {
	if prev, ok := byID[c.ID()]; ok && prev.Name() != c.Name() {
		panic(fmt.Sprintf("codec: id %q already registered by %s", c.ID(), prev.Name()))
	}
	byName[c.Name()] = c
	byID[c.ID()] = c
}

// ByName looks a codec up by its configured name.
func ByName(name string) (Codec, error) {
	c, ok := byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	return c, nil
}

// ByID looks a codec up by the identifier stored with a block.
func ByID(id byte) (Codec, error) {
	c, ok := byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %q", ErrUnknownCodec, id)
	}
	return c, nil
}

// Names lists the registered codec names, sorted.
func Names() []string {
	out := make([]string, 0, len(byName))
	for name := range byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func levelInRange(name string, level, max int) error {
	if level < 0 || level > max {
		return fmt.Errorf("%s: %w %d (0-%d)", name, ErrInvalidLevel, level, max)
	}
	return nil
}

type noneCodec struct{}

func (noneCodec) Name() string { return "none" }
func (noneCodec) ID() byte     { return '-' }

func (noneCodec) ValidLevel(int) error { return nil }

func (noneCodec) Compress(data []byte, _ int) ([]byte, error) { return data, nil }
func (noneCodec) Decompress(data []byte) ([]byte, error)      { return data, nil }
