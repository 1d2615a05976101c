package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/thumbkit/errors"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func readZip(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	out := make(map[string]string, len(r.File))
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = string(data)
	}
	return out
}

func TestCreate(t *testing.T) {
	root := t.TempDir()
	product := filepath.Join(root, "水杯")
	writeTree(t, product, map[string]string{
		"450x800/a_450x800.png":     "a-small",
		"720x1280/a_720x1280.png":   "a-mid",
		"1080x1920/b_1080x1920.jpg": "b-large",
	})
	zipPath := filepath.Join(root, "水杯_上架图.zip")

	res, err := Create(product, zipPath)
	require.NoError(t, err)
	assert.Equal(t, zipPath, res.Path)
	assert.Equal(t, 3, res.Files)
	assert.Equal(t, 6, res.Entries)
	assert.Greater(t, res.Size, int64(0))

	entries := readZip(t, zipPath)
	assert.Equal(t, map[string]string{
		"1080x1920/":                "",
		"1080x1920/b_1080x1920.jpg": "b-large",
		"450x800/":                  "",
		"450x800/a_450x800.png":     "a-small",
		"720x1280/":                 "",
		"720x1280/a_720x1280.png":   "a-mid",
	}, entries)
}

func TestCreateLexicalOrder(t *testing.T) {
	root := t.TempDir()
	product := filepath.Join(root, "p")
	writeTree(t, product, map[string]string{"b/2.png": "2", "a/1.png": "1", "a/0.png": "0"})
	zipPath := filepath.Join(root, "p.zip")

	_, err := Create(product, zipPath)
	require.NoError(t, err)

	r, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer r.Close()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a/", "a/0.png", "a/1.png", "b/", "b/2.png"}, names)
}

func TestCreateReplacesExisting(t *testing.T) {
	root := t.TempDir()
	product := filepath.Join(root, "p")
	writeTree(t, product, map[string]string{"x.png": "old"})
	zipPath := filepath.Join(root, "p.zip")

	_, err := Create(product, zipPath)
	require.NoError(t, err)

	writeTree(t, product, map[string]string{"x.png": "new"})
	_, err = Create(product, zipPath)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"x.png": "new"}, readZip(t, zipPath))

	leftovers, err := filepath.Glob(filepath.Join(root, ".p.zip.*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestCreateReproducible(t *testing.T) {
	root := t.TempDir()
	product := filepath.Join(root, "p")
	writeTree(t, product, map[string]string{"a/1.png": "1", "b/2.png": "2"})

	first := filepath.Join(root, "first.zip")
	_, err := Create(product, first)
	require.NoError(t, err)

	later := time.Now().Add(72 * time.Hour)
	for _, name := range []string{"a", "a/1.png", "b", "b/2.png"} {
		require.NoError(t, os.Chtimes(filepath.Join(product, filepath.FromSlash(name)), later, later))
	}
	second := filepath.Join(root, "second.zip")
	_, err = Create(product, second)
	require.NoError(t, err)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	r, err := zip.OpenReader(second)
	require.NoError(t, err)
	defer r.Close()
	for _, f := range r.File {
		assert.True(t, f.Modified.Equal(entryTime), f.Name)
	}
}

func TestCreateEmptyDir(t *testing.T) {
	root := t.TempDir()
	product := filepath.Join(root, "empty")
	require.NoError(t, os.MkdirAll(product, 0o755))

	res, err := Create(product, filepath.Join(root, "empty.zip"))
	require.NoError(t, err)
	assert.Zero(t, res.Entries)
	assert.Empty(t, readZip(t, res.Path))
}

func TestCreateErrors(t *testing.T) {
	root := t.TempDir()

	_, err := Create(filepath.Join(root, "missing"), filepath.Join(root, "m.zip"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeArchive))

	product := filepath.Join(root, "p")
	writeTree(t, product, map[string]string{"x.png": "x"})
	_, err = Create(product, filepath.Join(product, "p.zip"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeArchive))
}

func TestInside(t *testing.T) {
	assert.True(t, inside("/out/p", "/out/p/p.zip"))
	assert.True(t, inside("/out/p", "/out/p/sub/p.zip"))
	assert.False(t, inside("/out/p", "/out/p.zip"))
	assert.False(t, inside("/out/p", "/out/p2/p.zip"))
}
