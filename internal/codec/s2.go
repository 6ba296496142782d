package codec

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// s2Codec trades ratio for speed. Level 2 selects the "better" encoder and
// level 3 the "best" one.
type s2Codec struct{}

func (s2Codec) Name() string { return "s2" }
func (s2Codec) ID() byte     { return 's' }

func (s2Codec) ValidLevel(level int) error {
	return levelInRange("s2", level, 3)
}

func (c s2Codec) Compress(data []byte, level int) ([]byte, error) {
	if err := c.ValidLevel(level); err != nil {
		return nil, err
	}
	switch {
	case level >= 3:
		return s2.EncodeBest(nil, data), nil
	case level == 2:
		return s2.EncodeBetter(nil, data), nil
	default:
		return s2.Encode(nil, data), nil
	}
}

func (s2Codec) Decompress(data []byte) ([]byte, error) {
	out, err := s2.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("s2 decompress: %w", err)
	}
	return out, nil
}
