package codec

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

type zstdCodec struct{}

func (zstdCodec) Name() string { return "zstd" }
func (zstdCodec) ID() byte     { return 'z' }

// Encoders are expensive to build and safe for concurrent EncodeAll calls,
// so one is kept per level.
var (
	zstdEncoders sync.Map // zstd.EncoderLevel -> *zstd.Encoder
	zstdDecoder  *zstd.Decoder
)

func init() {
	var err error
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("codec: zstd decoder initialization failed: " + err.Error())
	}
}

func zstdEncoder(level int) (*zstd.Encoder, error) {
	el := zstd.SpeedDefault
	if level != 0 {
		el = zstd.EncoderLevelFromZstd(level)
	}
	if enc, ok := zstdEncoders.Load(el); ok {
		return enc.(*zstd.Encoder), nil
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(el))
	if err != nil {
		return nil, err
	}
	actual, _ := zstdEncoders.LoadOrStore(el, enc)
	return actual.(*zstd.Encoder), nil
}

// zstdMaxLevel is the highest level the zstd format defines.
const zstdMaxLevel = 22

func (zstdCodec) ValidLevel(level int) error {
	return levelInRange("zstd", level, zstdMaxLevel)
}

func (c zstdCodec) Compress(data []byte, level int) ([]byte, error) {
	if err := c.ValidLevel(level); err != nil {
		return nil, err
	}
	enc, err := zstdEncoder(level)
	if err != nil {
		return nil, fmt.Errorf("zstd level %d: %w", level, err)
	}
	return enc.EncodeAll(data, nil), nil
}

func (zstdCodec) Decompress(data []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}
