package processor

import (
	"image"
	"path/filepath"

	"go.uber.org/zap"

	apperrors "github.com/leeforge/thumbkit/errors"
	"github.com/leeforge/thumbkit/logging"
)

// Processor turns one decoded screenshot into listing images.
type Processor struct {
	logger logging.Logger
	encode EncodeFunc
}

type Option func(*Processor)

// WithLogger sets the logger used for quality search traces.
func WithLogger(l logging.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithEncoder replaces the JPEG encoder.
func WithEncoder(fn EncodeFunc) Option {
	return func(p *Processor) { p.encode = fn }
}

func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		logger: logging.NewNop(),
		encode: EncodeJPEG,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Transform crops the status bar, cover-resizes and top-center crops img to
// the profile size, then compresses it to the profile budget. img is not modified.
func (p *Processor) Transform(img image.Image, opts TransformOptions) (result *ProcessedImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, apperrors.ErrorRecover(r)
		}
	}()

	if err := opts.Profile.Validate(); err != nil {
		return nil, apperrors.NewInvalid("profile", opts.Profile.Name(), err.Error())
	}

	final, err := NewTransformPipeline(opts).Run(img)
	if err != nil {
		return nil, err
	}

	log := p.logger.With(zap.String("profile", opts.Profile.Name()))
	c := NewCompressor(p.encode)
	c.OnAttempt = func(a Attempt) {
		log.Debug("encoded", zap.Int("quality", a.Quality), zap.Int("bytes", a.Size), zap.Int("budget", opts.Profile.MaxBytes))
	}

	out, err := c.Compress(final, opts.Profile.MaxBytes)
	if err != nil {
		return nil, err
	}
	if !out.WithinBudget(opts.Profile.MaxBytes) {
		log.Warn("budget not met at minimum quality", zap.Int("bytes", out.Size()), zap.Int("budget", opts.Profile.MaxBytes))
	}
	return out, nil
}

// ProcessFile decodes path and transforms it for a single profile.
func (p *Processor) ProcessFile(path string, opts TransformOptions) (*ProcessedImage, error) {
	img, _, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	out, err := p.Transform(img, opts)
	if err != nil {
		return nil, apperrors.Wrap(err, filepath.Base(path)).WithDetail("file", filepath.Base(path))
	}
	return out, nil
}

// Transform runs the engine with a default Processor.
func Transform(img image.Image, opts TransformOptions) (*ProcessedImage, error) {
	return NewProcessor().Transform(img, opts)
}
