// Package batch runs the screenshot transform over a whole input directory
// and lays the results out per profile.
package batch

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leeforge/thumbkit/errors"
	"github.com/leeforge/thumbkit/logging"
	"github.com/leeforge/thumbkit/media/archive"
	"github.com/leeforge/thumbkit/media/processor"
	"github.com/leeforge/thumbkit/media/storage"
	"github.com/leeforge/thumbkit/utils"
)

// Options are the inputs of one driver run.
type Options struct {
	InputDir  string
	OutputDir string
	// StatusBarHeight is the number of rows removed from the top of every source.
	StatusBarHeight int
	// Profiles are processed in order. Empty means processor.DefaultProfiles.
	Profiles []processor.SizeProfile
}

// OutputRecord describes one written output file.
type OutputRecord struct {
	Source   string `json:"source"`
	Profile  string `json:"profile"`
	Path     string `json:"path"`
	Quality  int    `json:"quality"`
	Bytes    int    `json:"bytes"`
	Attempts int    `json:"attempts"`
	// OverBudget is set when even the minimum quality exceeded the budget.
	OverBudget bool `json:"over_budget,omitempty"`
}

// Report summarises a run. Failures holds per-file and per-profile errors
// that were skipped; a top-level failure is returned as an error instead.
type Report struct {
	RunID     string                `json:"run_id"`
	Product   string                `json:"product,omitempty"`
	InputDir  string                `json:"input_dir"`
	OutputDir string                `json:"output_dir"`
	Files     int                   `json:"files"`
	Outputs   []OutputRecord        `json:"outputs"`
	Failures  *errors.ErrorChain    `json:"failures"`
	NoImages  bool                  `json:"no_images"`
	Archive   *archive.Result       `json:"archive,omitempty"`
	Published *storage.UploadOutput `json:"published,omitempty"`
	StartedAt time.Time             `json:"started_at"`
	Duration  string                `json:"duration"`
}

func newReport(opts Options) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		InputDir:  opts.InputDir,
		OutputDir: opts.OutputDir,
		Outputs:   make([]OutputRecord, 0),
		Failures:  errors.NewErrorChain(),
	}
}

// Driver walks an input directory and writes every (file, profile) output.
type Driver struct {
	processor *processor.Processor
	logger    logging.Logger
	now       func() time.Time
}

func NewDriver(proc *processor.Processor, logger logging.Logger) *Driver {
	if logger == nil {
		logger = logging.NewNop()
	}
	if proc == nil {
		proc = processor.NewProcessor(processor.WithLogger(logger))
	}
	return &Driver{
		processor: proc,
		logger:    logger,
		now:       time.Now,
	}
}

// Run processes every supported image in opts.InputDir. Files are handled in
// name order and each is decoded once. A file or profile that fails is
// recorded in the report and skipped. Errors returned are top-level: the
// output tree could not be prepared, the input could not be listed, or ctx
// was cancelled between two outputs.
func (d *Driver) Run(ctx context.Context, opts Options) (*Report, error) {
	report := newReport(opts)
	if id := logging.GetRunID(ctx); id != "" {
		report.RunID = id
	}
	start := d.now()
	report.StartedAt = start
	defer func() { report.Duration = d.now().Sub(start).Round(time.Millisecond).String() }()

	profiles := opts.Profiles
	if len(profiles) == 0 {
		profiles = processor.DefaultProfiles
	}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return report, errors.NewInvalid("profiles", p.Name(), err.Error())
		}
	}
	if opts.StatusBarHeight < 0 {
		return report, errors.NewInvalid("status_bar_height", opts.StatusBarHeight, "must not be negative")
	}

	ctx = logging.WithRunID(ctx, report.RunID)
	log := logging.WithContext(d.logger, ctx)

	for _, p := range profiles {
		dir := filepath.Join(opts.OutputDir, p.Name())
		if err := utils.CreateDir(dir); err != nil {
			return report, errors.NewIO(dir, err)
		}
	}

	files, err := listImages(opts.InputDir)
	if err != nil {
		return report, err
	}
	report.Files = len(files)
	if len(files) == 0 {
		report.NoImages = true
		log.Warn("no images found", zap.String("input_dir", opts.InputDir))
		return report, nil
	}

	log.Info("processing",
		zap.Int("files", len(files)),
		zap.Int("profiles", len(profiles)),
		zap.Int("status_bar_height", opts.StatusBarHeight),
	)

	total := len(files) * len(profiles)
	done := 0
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		src := filepath.Join(opts.InputDir, name)
		img, format, err := processor.DecodeFile(src)
		if err != nil {
			done += len(profiles)
			report.Failures.Add(err)
			log.Error("skipping file", zap.String("file", name), zap.Error(err))
			continue
		}
		log.Debug("decoded", zap.String("file", name), zap.String("format", format),
			zap.Int("width", img.Bounds().Dx()), zap.Int("height", img.Bounds().Dy()))

		for _, p := range profiles {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			done++

			rec, err := d.writeOutput(img, name, p, opts)
			if err != nil {
				report.Failures.Add(err)
				log.Error("skipping output",
					zap.String("file", name),
					zap.String("profile", p.Name()),
					zap.Error(err),
				)
				continue
			}
			report.Outputs = append(report.Outputs, *rec)
			log.Info("saved",
				zap.String("path", rec.Path),
				zap.Int("quality", rec.Quality),
				zap.Int("bytes", rec.Bytes),
				zap.String("progress", fmt.Sprintf("%d/%d", done, total)),
			)
		}
	}

	log.Info("batch finished",
		zap.Int("outputs", len(report.Outputs)),
		zap.Int("failures", report.Failures.Len()),
	)
	return report, nil
}

func (d *Driver) writeOutput(img image.Image, name string, p processor.SizeProfile, opts Options) (*OutputRecord, error) {
	out, err := d.processor.Transform(img, processor.TransformOptions{
		StatusBarHeight: opts.StatusBarHeight,
		Profile:         p,
	})
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("%s (%s)", name, p.Name())).
			WithDetail("file", name).
			WithDetail("profile", p.Name())
	}

	path := filepath.Join(opts.OutputDir, p.Name(), p.FileName(name))
	if err := utils.WriteFileAtomic(path, out.Data, 0o644); err != nil {
		return nil, errors.NewIO(path, err).
			WithDetail("file", name).
			WithDetail("profile", p.Name())
	}

	return &OutputRecord{
		Source:     name,
		Profile:    p.Name(),
		Path:       path,
		Quality:    out.Quality,
		Bytes:      out.Size(),
		Attempts:   len(out.Attempts),
		OverBudget: !out.WithinBudget(p.MaxBytes),
	}, nil
}

// listImages returns the names of supported image files in dir, sorted.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewIO(dir, err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !processor.IsSupported(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	return files, nil
}
