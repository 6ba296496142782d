package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// deflateCodec writes zlib-framed deflate streams.
type deflateCodec struct{}

func (deflateCodec) Name() string { return "deflate" }
func (deflateCodec) ID() byte     { return 'd' }

func (deflateCodec) ValidLevel(level int) error {
	return levelInRange("deflate", level, zlib.BestCompression)
}

func (c deflateCodec) Compress(data []byte, level int) ([]byte, error) {
	if err := c.ValidLevel(level); err != nil {
		return nil, err
	}
	if level == 0 {
		level = zlib.DefaultCompression
	}
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("deflate level %d: %w", level, err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	return buf.Bytes(), nil
}

func (deflateCodec) Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	return out, nil
}
