package block

import (
	"context"
	"errors"

	"github.com/keshon/bvault/internal/codec"
	"github.com/keshon/bvault/internal/storage"
)

// BlockRead is the outcome of fetching and decoding one block. Reading
// never gives up on data: when the codec is unknown or decoding fails, Data
// holds the raw payload.
type BlockRead struct {
	Hash    string
	Data    []byte
	CodecID byte

	Found      bool
	KnownCodec bool
	Decoded    bool
	HashOK     bool

	// FetchErr is set when the block could not be fetched, DecodeErr when
	// decompression failed.
	FetchErr  error
	DecodeErr error
	// Actual is the hash of Data when it differs from Hash.
	Actual string
}

// Status summarizes the first problem found.
func (r *BlockRead) Status() BlockStatus {
	switch {
	case !r.Found:
		return Missing
	case !r.KnownCodec:
		return UnknownCodec
	case !r.Decoded:
		return Undecodable
	case !r.HashOK:
		return Damaged
	default:
		return OK
	}
}

// ReadBlock fetches, decodes and rehashes the block hash.
func (bc *BlockContext) ReadBlock(ctx context.Context, hash string) *BlockRead {
	r := &BlockRead{Hash: hash}
	id, payload, err := bc.Repo.GetBlock(ctx, hash)
	if err != nil {
		r.FetchErr = err
		return r
	}
	r.Found = true
	r.CodecID = id

	c, err := codec.ByID(id)
	if err != nil {
		c = codec.None
	} else {
		r.KnownCodec = true
	}

	data, err := c.Decompress(payload)
	if err != nil {
		r.DecodeErr = err
		data = payload
	} else {
		r.Decoded = true
	}
	r.Data = data

	if actual := bc.Hash(data); actual == hash {
		r.HashOK = true
	} else {
		r.Actual = actual
	}
	return r
}

// IsNotFound reports whether the read failed because the block is absent.
func (r *BlockRead) IsNotFound() bool {
	return errors.Is(r.FetchErr, storage.ErrNotFound)
}
