package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/keshon/bvault/internal/config"
	"github.com/keshon/bvault/internal/logger"
)

// ScanStats counts what a scan did.
type ScanStats struct {
	Dirs      int
	Files     int
	Skipped   int
	Unchanged int
	Hot       int
	Recent    int
	Touched   int
	Stored    int
	Errors    int
}

func (s *ScanStats) add(o Outcome) {
	switch o {
	case Skipped:
		s.Skipped++
	case Unchanged:
		s.Unchanged++
	case Hot:
		s.Hot++
	case Recent:
		s.Recent++
	case Touched:
		s.Touched++
	case Stored:
		s.Stored++
	}
}

// Scan walks root depth-first in name order and considers every regular
// file. Paths the rules skip are pruned along with everything below them.
// Entries that cannot be read are logged and counted; only repository and
// cache failures stop the walk.
func (fc *FileContext) Scan(ctx context.Context, root string) (ScanStats, error) {
	var stats ScanStats
	root = filepath.Clean(root)

	info, err := fc.FS.Lstat(root)
	if err != nil {
		return stats, fmt.Errorf("scan %q: %w", root, err)
	}
	if info.IsDir() {
		err = fc.walk(ctx, root, &stats)
	} else {
		err = fc.visit(ctx, root, info, fc.Rules.Apply(root), &stats)
	}
	return stats, err
}

func (fc *FileContext) walk(ctx context.Context, dir string, stats *ScanStats) error {
	stats.Dirs++
	entries, err := fc.FS.ReadDir(dir)
	if err != nil {
		logger.Warn("cannot list directory", logger.KeyPath, dir, logger.KeyError, err)
		stats.Errors++
		return nil
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		full := filepath.Join(dir, e.Name())
		policy := fc.Rules.Apply(full)
		if policy.Skip {
			logger.Debug("skipped by rule", logger.KeyPath, full)
			stats.Skipped++
			continue
		}

		info, err := e.Info()
		if err != nil {
			logger.Warn("cannot stat", logger.KeyPath, full, logger.KeyError, err)
			stats.Errors++
			continue
		}
		if info.IsDir() {
			if err := fc.walk(ctx, full, stats); err != nil {
				return err
			}
			continue
		}
		if err := fc.visit(ctx, full, info, policy, stats); err != nil {
			return err
		}
	}
	return nil
}

// visit considers a non-directory entry. Symbolic links are followed to
// regular files only; special files are ignored.
func (fc *FileContext) visit(ctx context.Context, path string, info os.FileInfo, policy config.Policy, stats *ScanStats) error {
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := fc.FS.Stat(path)
		if err != nil {
			logger.Warn("dangling symlink", logger.KeyPath, path, logger.KeyError, err)
			stats.Errors++
			return nil
		}
		if !target.Mode().IsRegular() {
			logger.Debug("symlink to non-regular file; ignoring", logger.KeyPath, path)
			return nil
		}
	} else if !info.Mode().IsRegular() {
		logger.Debug("not a regular file; ignoring", logger.KeyPath, path)
		return nil
	}

	stats.Files++
	outcome, err := fc.ConsiderFile(ctx, path, policy)
	if fc.OnFile != nil {
		fc.OnFile(path, outcome, err)
	}
	var rerr *ReadError
	if errors.As(err, &rerr) {
		logger.Warn("cannot back up file", logger.KeyPath, path, logger.KeyError, rerr.Err)
		stats.Errors++
		return nil
	}
	if err != nil {
		return fmt.Errorf("scan %q: %w", path, err)
	}
	stats.add(outcome)
	return nil
}
