package repo

import (
	"github.com/keshon/bvault/internal/storage"
	"github.com/keshon/bvault/internal/util"
)

// FileHistory is every cached version of one path, oldest first.
type FileHistory struct {
	Path     string
	Versions []*storage.Entry
}

// Latest returns the newest version.
func (h FileHistory) Latest() *storage.Entry {
	if len(h.Versions) == 0 {
		return nil
	}
	return h.Versions[len(h.Versions)-1]
}

// BlockInfo describes a known block.
type BlockInfo struct {
	Hash  string
	Refs  uint64
	Paths []string
}

// ListFiles returns the history of every cached path sorted by path. It
// reads the local index only and works offline.
func (r *Repository) ListFiles() ([]FileHistory, error) {
	paths, err := r.cache.ListEntries()
	if err != nil {
		return nil, err
	}
	out := make([]FileHistory, 0, len(paths))
	for _, p := range paths {
		h, err := r.History(p)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// History returns the cached versions of path.
func (r *Repository) History(path string) (FileHistory, error) {
	h := FileHistory{Path: path}
	versions, err := r.cache.ListVersions(path)
	if err != nil {
		return h, err
	}
	for _, v := range versions {
		e, err := r.cache.GetEntry(path, v)
		if err != nil {
			return h, err
		}
		h.Versions = append(h.Versions, e)
	}
	return h, nil
}

// ListBlocks returns every known block with its reference count and the
// paths referencing it.
func (r *Repository) ListBlocks() ([]BlockInfo, error) {
	hashes, err := r.cache.Blocks()
	if err != nil {
		return nil, err
	}
	refs, err := r.blockPaths()
	if err != nil {
		return nil, err
	}
	out := make([]BlockInfo, 0, len(hashes))
	for _, h := range hashes {
		n, err := r.cache.RefCount(h)
		if err != nil {
			return nil, err
		}
		out = append(out, BlockInfo{Hash: h, Refs: n, Paths: util.SortedKeys(refs[h])})
	}
	return out, nil
}
