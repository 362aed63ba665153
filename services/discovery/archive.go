package discovery

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

const (
	resultsDirName  = "best_result"
	archiveFileName = "results.tar.gz"
)

// archiveResults compresses <outputDir>/best_result into
// <outputDir>/results.tar.gz and removes the source directory. The returned
// path is the archive location on disk.
func archiveResults(outputDir string) (string, error) {
	resultsDir := filepath.Join(outputDir, resultsDirName)

	info, err := os.Stat(resultsDir)
	if err != nil {
		return "", fmt.Errorf("stat results dir: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("results path %q is not a directory", resultsDir)
	}

	archivePath := filepath.Join(outputDir, archiveFileName)
	if err := writeArchive(archivePath, resultsDir); err != nil {
		os.Remove(archivePath)
		return "", err
	}

	if err := os.RemoveAll(resultsDir); err != nil {
		return "", fmt.Errorf("remove results dir: %w", err)
	}

	return archivePath, nil
}

func writeArchive(archivePath, resultsDir string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(resultsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(resultsDir, path)
		if err != nil {
			return fmt.Errorf("relative path for %q: %w", path, err)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		header := &tar.Header{
			Name:     filepath.ToSlash(rel),
			Mode:     int64(info.Mode().Perm()),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("write header for %q: %w", rel, err)
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, file)
		file.Close()
		if err != nil {
			return fmt.Errorf("copy %q: %w", rel, err)
		}
		return nil
	})

	return errors.Join(walkErr, tw.Close(), gz.Close())
}
