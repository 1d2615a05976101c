package processor

import (
	"bytes"
	"image"
	"io"

	"github.com/disintegration/imaging"

	apperrors "github.com/leeforge/thumbkit/errors"
)

const (
	StartQuality = 95
	QualityStep  = 5
	MinQuality   = 10
)

// EncodeFunc writes img to w at the given JPEG quality.
type EncodeFunc func(w io.Writer, img image.Image, quality int) error

// EncodeJPEG is the default EncodeFunc.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}

// Compressor searches for the highest JPEG quality whose output fits a byte
// budget, starting at StartQuality and stepping down by QualityStep. At
// MinQuality it stops and keeps the result whatever its size.
type Compressor struct {
	encode EncodeFunc
	// OnAttempt, when set, is called after every encode.
	OnAttempt func(a Attempt)
}

// NewCompressor returns a Compressor using encode, or EncodeJPEG when nil.
func NewCompressor(encode EncodeFunc) *Compressor {
	if encode == nil {
		encode = EncodeJPEG
	}
	return &Compressor{encode: encode}
}

// Compress encodes img until it fits maxBytes or quality reaches MinQuality.
// Every attempt is a fresh, full encode.
func (c *Compressor) Compress(img image.Image, maxBytes int) (*ProcessedImage, error) {
	var buf bytes.Buffer
	var attempts []Attempt

	quality := StartQuality
	for {
		buf.Reset()
		if err := c.encode(&buf, img, quality); err != nil {
			return nil, apperrors.NewEncode(err).WithDetail("quality", quality)
		}

		a := Attempt{Quality: quality, Size: buf.Len()}
		attempts = append(attempts, a)
		if c.OnAttempt != nil {
			c.OnAttempt(a)
		}

		if buf.Len() <= maxBytes || quality <= MinQuality {
			break
		}
		quality = max(quality-QualityStep, MinQuality)
	}

	b := img.Bounds()
	return &ProcessedImage{
		Data:     bytes.Clone(buf.Bytes()),
		Quality:  quality,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Attempts: attempts,
	}, nil
}
