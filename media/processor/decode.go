package processor

import (
	"bufio"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	apperrors "github.com/leeforge/thumbkit/errors"
)

// supportedExtensions are the lower-cased extensions of formats with a
// registered decoder.
var supportedExtensions = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".jpe":  "jpeg",
	".jfif": "jpeg",
	".png":  "png",
	".gif":  "gif",
	".bmp":  "bmp",
	".tif":  "tiff",
	".tiff": "tiff",
	".webp": "webp",
}

// IsSupported reports whether name has a decodable image extension, ignoring case.
func IsSupported(name string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// SupportedExtensions returns the known extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// DecodeFile opens and decodes an image. The file is closed before returning.
func DecodeFile(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", apperrors.NewIO(path, err)
	}
	defer f.Close()

	img, format, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, "", apperrors.NewDecode(filepath.Base(path), err)
	}
	return img, format, nil
}
