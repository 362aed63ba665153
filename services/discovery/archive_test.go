package discovery

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func TestArchiveResults(t *testing.T) {
	outputDir := t.TempDir()
	resultsDir := filepath.Join(outputDir, "best_result")
	require.NoError(t, os.MkdirAll(filepath.Join(resultsDir, "simulation"), 0o755))

	files := map[string]string{
		"model.bpmn":                "<definitions/>",
		"parameters.json":           `{"arrival_rate": 1}`,
		"simulation/statistics.csv": "metric,value\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(resultsDir, name), []byte(content), 0o644))
	}

	archivePath, err := archiveResults(outputDir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(outputDir, "results.tar.gz"), archivePath)

	// source directory is reclaimed once archived
	_, err = os.Stat(resultsDir)
	require.True(t, os.IsNotExist(err))

	require.Equal(t, files, readArchive(t, archivePath))
}

func TestArchiveResultsMissingDir(t *testing.T) {
	_, err := archiveResults(t.TempDir())
	require.Error(t, err)
}

func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	entries := map[string]string{}
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[header.Name] = string(content)
	}
	return entries
}

func TestArchiveEntryNamesAreRelative(t *testing.T) {
	outputDir := t.TempDir()
	resultsDir := filepath.Join(outputDir, "best_result")
	require.NoError(t, os.MkdirAll(resultsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(resultsDir, "model.bpmn"), []byte("x"), 0o644))

	archivePath, err := archiveResults(outputDir)
	require.NoError(t, err)

	names := make([]string, 0, 1)
	for name := range readArchive(t, archivePath) {
		names = append(names, name)
	}
	sort.Strings(names)
	require.Equal(t, []string{"model.bpmn"}, names)
}
