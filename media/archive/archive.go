// Package archive bundles a product output tree into a single zip file.
package archive

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leeforge/thumbkit/errors"
)

// entryTime is stamped on every entry so equal trees produce equal archives.
var entryTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Result describes a written archive.
type Result struct {
	Path    string `json:"path"`
	Entries int    `json:"entries"`
	Files   int    `json:"files"`
	Size    int64  `json:"size"`
}

// Create zips every directory and file below srcDir into zipPath. Entry names
// are slash separated and relative to srcDir, visited in lexical order.
// zipPath must not live inside srcDir. An existing archive is replaced.
func Create(srcDir, zipPath string) (*Result, error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return nil, errors.NewArchive(err).WithDetail("src", srcDir)
	}
	if !info.IsDir() {
		return nil, errors.NewArchive(nil).WithMessage("archive source is not a directory").WithDetail("src", srcDir)
	}
	if inside(srcDir, zipPath) {
		return nil, errors.NewArchive(nil).WithMessage("archive must be written outside its source directory").
			WithDetail("src", srcDir).WithDetail("zip", zipPath)
	}

	if err := os.MkdirAll(filepath.Dir(zipPath), 0o755); err != nil {
		return nil, errors.NewIO(filepath.Dir(zipPath), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(zipPath), "."+filepath.Base(zipPath)+".*.tmp")
	if err != nil {
		return nil, errors.NewIO(zipPath, err)
	}
	tmpName := tmp.Name()
	fail := func(err error) (*Result, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return nil, errors.NewArchive(err).WithDetail("zip", zipPath)
	}

	res := &Result{Path: zipPath}
	zw := zip.NewWriter(tmp)
	// WalkDir visits entries in lexical order, so the archive layout is stable.
	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)
		if d.IsDir() {
			name += "/"
		} else if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = name
		header.Modified = entryTime
		if d.IsDir() {
			header.Method = zip.Store
		} else {
			header.Method = zip.Deflate
		}

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		res.Entries++
		if d.IsDir() {
			return nil
		}
		res.Files++
		return copyFile(w, path)
	})
	if walkErr != nil {
		return fail(walkErr)
	}
	if err := zw.Close(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return nil, errors.NewArchive(err).WithDetail("zip", zipPath)
	}
	if err := os.Rename(tmpName, zipPath); err != nil {
		_ = os.Remove(tmpName)
		return nil, errors.NewIO(zipPath, err)
	}

	if st, err := os.Stat(zipPath); err == nil {
		res.Size = st.Size()
	}
	return res, nil
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// inside reports whether p is located below dir.
func inside(dir, p string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absP, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absP)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
