package codec

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	text := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)
	random := make([]byte, 4096)
	_, err := rand.Read(random)
	require.NoError(t, err)

	for _, name := range Names() {
		c, err := ByName(name)
		require.NoError(t, err)
		for _, level := range []int{0, 1, 3} {
			for label, data := range map[string][]byte{"text": text, "random": random, "empty": {}} {
				t.Run(fmt.Sprintf("%s/%d/%s", name, level, label), func(t *testing.T) {
					enc, err := c.Compress(data, level)
					require.NoError(t, err)
					id, err := ByID(c.ID())
					require.NoError(t, err)
					dec, err := id.Decompress(enc)
					require.NoError(t, err)
					assert.True(t, bytes.Equal(data, dec), "round trip mismatch")
				})
			}
		}
	}
}

func TestCompressibleDataShrinks(t *testing.T) {
	text := bytes.Repeat([]byte("AAAABBBB"), 1024)
	for _, name := range []string{"deflate", "zstd", "lz4", "s2", "bzip2"} {
		c, err := ByName(name)
		require.NoError(t, err)
		enc, err := c.Compress(text, 0)
		require.NoError(t, err)
		assert.Less(t, len(enc), len(text), name)
	}
}

func TestRegistryLookups(t *testing.T) {
	ids := map[string]byte{"none": '-', "deflate": 'd', "zstd": 'z', "lz4": 'l', "s2": 's', "bzip2": 'b'}
	for name, id := range ids {
		byN, err := ByName(name)
		require.NoError(t, err)
		assert.Equal(t, id, byN.ID())

		byI, err := ByID(id)
		require.NoError(t, err)
		assert.Equal(t, name, byI.Name())
	}

	_, err := ByName("brotli")
	require.ErrorIs(t, err, ErrUnknownCodec)
	_, err = ByID('?')
	require.ErrorIs(t, err, ErrUnknownCodec)

	assert.Equal(t, []string{"bzip2", "deflate", "lz4", "none", "s2", "zstd"}, Names())
}

func TestLevelRanges(t *testing.T) {
	tops := map[string]int{"deflate": 9, "lz4": 9, "bzip2": 9, "s2": 3, "zstd": 22}
	for name, top := range tops {
		t.Run(name, func(t *testing.T) {
			c, err := ByName(name)
			require.NoError(t, err)
			assert.NoError(t, c.ValidLevel(0))
			assert.NoError(t, c.ValidLevel(top))
			assert.ErrorIs(t, c.ValidLevel(top+1), ErrInvalidLevel)
			assert.ErrorIs(t, c.ValidLevel(-1), ErrInvalidLevel)

			_, err = c.Compress([]byte("data"), top+1)
			assert.ErrorIs(t, err, ErrInvalidLevel)
		})
	}
	assert.NoError(t, None.ValidLevel(12))
}

func TestBzip2DecodesExistingBlocks(t *testing.T) {
	c, err := ByName("bzip2")
	require.NoError(t, err)

	// "hello" compressed with bzip2 -9
	legacy := []byte{
		0x42, 0x5a, 0x68, 0x39, 0x31, 0x41, 0x59, 0x26, 0x53, 0x59, 0x19, 0x31,
		0x65, 0x3d, 0x00, 0x00, 0x00, 0x81, 0x00, 0x02, 0x44, 0xa0, 0x00, 0x21,
		0x9a, 0x68, 0x33, 0x4d, 0x07, 0x33, 0x8b, 0xb9, 0x22, 0x9c, 0x28, 0x48,
		0x0c, 0x98, 0xb2, 0x9e, 0x80,
	}
	out, err := c.Decompress(legacy)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestNoneIsIdentity(t *testing.T) {
	data := []byte("raw")
	enc, err := None.Compress(data, 9)
	require.NoError(t, err)
	assert.Equal(t, data, enc)
}
