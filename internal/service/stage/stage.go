package stage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/opengateware/pocket-release/internal/config"
)

// Prepare removes any leftovers of a previous run and recreates the stage
// and release folders empty. Removing a folder that does not exist is fine,
// so a run that crashed mid-write can always be restarted from scratch.
func Prepare(stageDir, releaseDir string) error {
	for _, dir := range []string{stageDir, releaseDir} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}

		if err := os.MkdirAll(dir, config.DefaultDirMode); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	return nil
}

// Merge copies everything under srcDir into dstDir, creating dstDir if
// needed. Directories are union-merged: destination content absent from
// the source is left alone. Existing files are overwritten and keep the
// source file's modification time.
func Merge(srcDir, dstDir string) error {
	if err := os.MkdirAll(dstDir, config.DefaultDirMode); err != nil {
		return fmt.Errorf("create %s: %w", dstDir, err)
	}

	return filepath.WalkDir(srcDir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walk %s: %w", path, walkErr)
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return fmt.Errorf("relative path of %s: %w", path, err)
		}

		if rel == "." {
			return nil
		}

		target := filepath.Join(dstDir, rel)

		if entry.IsDir() {
			if err = os.MkdirAll(target, config.DefaultDirMode); err != nil {
				return fmt.Errorf("create %s: %w", target, err)
			}

			return nil
		}

		if err = copyFile(path, target); err != nil {
			return err
		}

		return nil
	})
}

// Cleanup deletes every file under rootDir whose base name matches one of
// the glob patterns. Matching is recursive through all subdirectories;
// directories themselves are never removed. Running Cleanup on an already
// clean tree is a no-op.
func Cleanup(rootDir string, patterns []string) ([]string, error) {
	// Reject malformed globs before anything is deleted.
	for _, pattern := range patterns {
		if _, err := filepath.Match(pattern, "probe"); err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
	}

	var removed []string

	err := filepath.WalkDir(rootDir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walk %s: %w", path, walkErr)
		}

		if entry.IsDir() {
			return nil
		}

		for _, pattern := range patterns {
			matched, _ := filepath.Match(pattern, entry.Name())
			if !matched {
				continue
			}

			if err := os.Remove(path); err != nil {
				return fmt.Errorf("remove %s: %w", path, err)
			}

			removed = append(removed, path)

			break
		}

		return nil
	})
	if err != nil {
		return removed, err
	}

	return removed, nil
}

// copyFile copies src to dst, overwriting dst and preserving the source
// modification time so repeated merges are stable.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(filepath.Clean(dst), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", dst, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}

	if err = os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("preserve mtime of %s: %w", dst, err)
	}

	return nil
}
