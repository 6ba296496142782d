package block

import (
	"github.com/keshon/bvault/internal/hashing"
	"github.com/keshon/bvault/internal/repo/store/cache"
	"github.com/keshon/bvault/internal/storage"
)

// BlockStatus indicates the state of a block in the repository.
type BlockStatus int

const (
	OK BlockStatus = iota
	Missing
	Damaged
	UnknownCodec
	Undecodable
)

func (s BlockStatus) String() string {
	switch s {
	case OK:
		return "ok"
	case Missing:
		return "missing"
	case Damaged:
		return "damaged"
	case UnknownCodec:
		return "unknown codec"
	case Undecodable:
		return "undecodable"
	default:
		return "unknown"
	}
}

// BlockCheck contains the verification result of a single block.
type BlockCheck struct {
	Hash   string
	Status BlockStatus
	Err    error
	Paths  []string
}

// BlockContext stores and reads content-addressed blocks. The cache decides
// dedup hits; the repository holds the payloads.
type BlockContext struct {
	Cache  *cache.Cache
	Repo   *storage.Repository
	Hasher *hashing.Hasher
}

// NewBlockContext creates a BlockContext hashing with the repository's
// configured function.
func NewBlockContext(c *cache.Cache, repo *storage.Repository) *BlockContext {
	return &BlockContext{Cache: c, Repo: repo, Hasher: repo.Hasher()}
}

// Hash returns the content address of data.
func (bc *BlockContext) Hash(data []byte) string {
	return bc.Hasher.Sum(data)
}
