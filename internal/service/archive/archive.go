package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// BuildZip walks srcDir and writes every regular file into a
// deflate-compressed zip at outPath. Entry names are the forward-slash
// relative paths below srcDir; directory entries are not written, so the
// member set is identical on every platform. A missing or empty srcDir
// produces a valid archive with no entries.
func BuildZip(srcDir, outPath string) (err error) {
	zipFile, err := os.Create(filepath.Clean(outPath))
	if err != nil {
		return fmt.Errorf("create archive %s: %w", outPath, err)
	}

	defer func() {
		if closeErr := zipFile.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	zipWriter := zip.NewWriter(zipFile)

	defer func() {
		if closeErr := zipWriter.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return walkFiles(srcDir, func(path, relName string, info fs.FileInfo) error {
		header, headerErr := zip.FileInfoHeader(info)
		if headerErr != nil {
			return fmt.Errorf("header for %s: %w", relName, headerErr)
		}

		header.Name = relName
		header.Method = zip.Deflate

		writer, entryErr := zipWriter.CreateHeader(header)
		if entryErr != nil {
			return fmt.Errorf("create entry %s: %w", relName, entryErr)
		}

		return copyInto(writer, path)
	})
}

// BuildTarGz is BuildZip's twin producing a gzip-compressed tar stream.
// The traversal and relative-naming rules are identical.
func BuildTarGz(srcDir, outPath string) (err error) {
	tarFile, err := os.Create(filepath.Clean(outPath))
	if err != nil {
		return fmt.Errorf("create archive %s: %w", outPath, err)
	}

	defer func() {
		if closeErr := tarFile.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	gzipWriter := gzip.NewWriter(tarFile)

	defer func() {
		if closeErr := gzipWriter.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	tarWriter := tar.NewWriter(gzipWriter)

	defer func() {
		if closeErr := tarWriter.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return walkFiles(srcDir, func(path, relName string, info fs.FileInfo) error {
		header, headerErr := tar.FileInfoHeader(info, "")
		if headerErr != nil {
			return fmt.Errorf("header for %s: %w", relName, headerErr)
		}

		header.Name = relName

		if writeErr := tarWriter.WriteHeader(header); writeErr != nil {
			return fmt.Errorf("write header %s: %w", relName, writeErr)
		}

		return copyInto(tarWriter, path)
	})
}

// walkFiles visits every regular file under srcDir in lexical order and
// calls add with the file path, its slash-separated relative name, and
// its FileInfo. A srcDir that does not exist yields no files, so the
// archive builders still produce a valid empty archive for it.
func walkFiles(srcDir string, add func(path, relName string, info fs.FileInfo) error) error {
	return filepath.WalkDir(srcDir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == srcDir && errors.Is(walkErr, fs.ErrNotExist) {
				return fs.SkipAll
			}

			return fmt.Errorf("walk %s: %w", path, walkErr)
		}

		if entry.IsDir() {
			return nil
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			return fmt.Errorf("stat %s: %w", path, infoErr)
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		rel, relErr := filepath.Rel(srcDir, path)
		if relErr != nil {
			return fmt.Errorf("relative path of %s: %w", path, relErr)
		}

		return add(path, filepath.ToSlash(rel), info)
	})
}

// copyInto streams the file at path into the archive writer.
func copyInto(w io.Writer, path string) error {
	in, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	defer func() {
		_ = in.Close()
	}()

	if _, err = io.Copy(w, in); err != nil {
		return fmt.Errorf("copy %s: %w", path, err)
	}

	return nil
}
