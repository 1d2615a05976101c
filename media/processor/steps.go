package processor

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	apperrors "github.com/leeforge/thumbkit/errors"
)

// Step is one image transformation of the pipeline.
type Step interface {
	Name() string
	Apply(img image.Image) (image.Image, error)
}

// Pipeline runs steps in order, feeding each step the previous result.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a pipeline from steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// NewTransformPipeline builds normalize -> crop status bar -> cover resize ->
// top-center crop for one profile.
func NewTransformPipeline(opts TransformOptions) *Pipeline {
	return NewPipeline(
		Normalize{},
		CropTop{Rows: opts.StatusBarHeight},
		CoverResize{Width: opts.Profile.Width, Height: opts.Profile.Height},
		AnchorCrop{Width: opts.Profile.Width, Height: opts.Profile.Height},
	)
}

// Run applies every step.
func (p *Pipeline) Run(img image.Image) (image.Image, error) {
	var err error
	for _, step := range p.steps {
		img, err = step.Apply(img)
		if err != nil {
			return nil, apperrors.Wrap(err, fmt.Sprintf("step %s failed", step.Name()))
		}
	}
	return img, nil
}

// Steps returns the names of the steps, in order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name()
	}
	return names
}

// Normalize converts any color model to opaque 8-bit RGB held in an NRGBA
// buffer. Alpha is dropped, not composited: color channels are kept as they
// are and every pixel becomes fully opaque.
type Normalize struct{}

func (Normalize) Name() string { return "normalize" }

func (Normalize) Apply(img image.Image) (image.Image, error) {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst, nil
}

// CropTop removes the first Rows rows and keeps every column.
type CropTop struct {
	Rows int
}

func (CropTop) Name() string { return "crop_top" }

func (s CropTop) Apply(img image.Image) (image.Image, error) {
	b := img.Bounds()
	if s.Rows < 0 {
		return nil, apperrors.NewCrop(fmt.Sprintf("status bar height %d is negative", s.Rows))
	}
	if s.Rows >= b.Dy() {
		return nil, apperrors.NewCrop(fmt.Sprintf("status bar height %d leaves nothing of a %d px tall image", s.Rows, b.Dy())).
			WithDetail("height", b.Dy())
	}
	return imaging.Crop(img, image.Rect(b.Min.X, b.Min.Y+s.Rows, b.Max.X, b.Max.Y)), nil
}

// CoverResize scales img so it covers Width x Height: one side matches the
// target exactly and the other overshoots it.
type CoverResize struct {
	Width  int
	Height int
}

func (CoverResize) Name() string { return "cover_resize" }

func (s CoverResize) Apply(img image.Image) (image.Image, error) {
	b := img.Bounds()
	w, h := CoverSize(b.Dx(), b.Dy(), s.Width, s.Height)
	if w <= 0 || h <= 0 {
		return nil, apperrors.New(apperrors.ErrorTypeResize, fmt.Sprintf("cannot resize %dx%d to cover %dx%d", b.Dx(), b.Dy(), s.Width, s.Height))
	}
	return resize.Resize(uint(w), uint(h), img, resize.Lanczos3), nil
}

// CoverSize computes the resized dimensions of a srcW x srcH image that
// covers dstW x dstH while keeping its aspect ratio. When the target is
// relatively wider than the source the width is pinned, otherwise the height.
// The free side is truncated toward zero, then raised to the target if
// rounding left it short.
func CoverSize(srcW, srcH, dstW, dstH int) (int, int) {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return 0, 0
	}

	aspect := float64(srcW) / float64(srcH)
	if float64(dstW)/float64(dstH) > aspect {
		h := int(float64(dstW) / aspect)
		return dstW, max(h, dstH)
	}
	w := int(float64(dstH) * aspect)
	return max(w, dstW), dstH
}

// AnchorCrop cuts a Width x Height window centered horizontally and pinned
// to the top edge. Product screenshots keep their subject near the top, so
// the vertical offset is always zero.
type AnchorCrop struct {
	Width  int
	Height int
}

func (AnchorCrop) Name() string { return "anchor_crop" }

func (s AnchorCrop) Apply(img image.Image) (image.Image, error) {
	b := img.Bounds()
	if b.Dx() < s.Width || b.Dy() < s.Height {
		return nil, apperrors.NewCrop(fmt.Sprintf("image %dx%d is smaller than crop window %dx%d", b.Dx(), b.Dy(), s.Width, s.Height))
	}
	left := (b.Dx() - s.Width) / 2
	rect := image.Rect(left, 0, left+s.Width, s.Height).Add(b.Min)
	return imaging.Crop(img, rect), nil
}
