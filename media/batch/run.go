package batch

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leeforge/thumbkit/config"
	"github.com/leeforge/thumbkit/errors"
	"github.com/leeforge/thumbkit/logging"
	"github.com/leeforge/thumbkit/media/archive"
	"github.com/leeforge/thumbkit/media/processor"
	"github.com/leeforge/thumbkit/media/storage"
	"github.com/leeforge/thumbkit/utils"
)

// ErrInputDirCreated is returned when the input directory did not exist and
// was created empty. It is not a failure: the operator fills it and runs again.
var ErrInputDirCreated = stderrors.New("input directory created, add screenshots and run again")

// DefaultArchiveSuffix names the archive when the configuration leaves it empty.
const DefaultArchiveSuffix = "_上架图.zip"

// Paths are the resolved directories of one run.
type Paths struct {
	InputDir   string
	OutputRoot string
	ProductDir string
	ZipPath    string
}

// ResolvePaths anchors the configured directories on BaseDir and validates
// the product name.
func ResolvePaths(app *config.AppConfig) (Paths, string, error) {
	if app.ProductName == "" {
		return Paths{}, "", errors.NewRequired("product_name")
	}
	product, err := utils.NormalizeName(app.ProductName)
	if err != nil {
		return Paths{}, "", errors.NewInvalid("product_name", app.ProductName, err.Error())
	}

	base := app.BaseDir
	if base == "" {
		base = "."
	}
	suffix := app.Archive.Suffix
	if suffix == "" {
		suffix = DefaultArchiveSuffix
	}
	outputRoot := utils.Resolve(base, app.OutputDir)
	return Paths{
		InputDir:   utils.Resolve(base, app.InputDir),
		OutputRoot: outputRoot,
		ProductDir: filepath.Join(outputRoot, product),
		ZipPath:    filepath.Join(outputRoot, product+suffix),
	}, product, nil
}

// Profiles converts configured profiles to processor profiles.
func Profiles(cfg []config.ProfileConfig) []processor.SizeProfile {
	out := make([]processor.SizeProfile, 0, len(cfg))
	for _, p := range cfg {
		out = append(out, processor.SizeProfile{
			Width:    p.Width,
			Height:   p.Height,
			MaxBytes: p.MaxKB * processor.KB,
		})
	}
	return out
}

// Runner performs the whole flow for one product: prepare directories,
// process the input, archive the product tree and publish the archive.
type Runner struct {
	driver   *Driver
	provider storage.Provider
	logger   logging.Logger
}

type RunnerOption func(*Runner)

// WithProvider overrides the provider built from configuration.
func WithProvider(p storage.Provider) RunnerOption {
	return func(r *Runner) { r.provider = p }
}

// WithDriver replaces the default driver.
func WithDriver(d *Driver) RunnerOption {
	return func(r *Runner) { r.driver = d }
}

// NewRunner builds a runner whose storage provider comes from cfg.
func NewRunner(cfg storage.Config, logger logging.Logger, opts ...RunnerOption) (*Runner, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	provider, err := storage.NewFromConfig(cfg)
	if err != nil {
		return nil, errors.NewStorage(cfg.Type, err)
	}

	r := &Runner{
		provider: provider,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.driver == nil {
		proc := processor.NewProcessor(processor.WithLogger(logger.Named("processor")))
		r.driver = NewDriver(proc, logger.Named("batch"))
	}
	return r, nil
}

// Run executes one pass for app. The returned report is non-nil whenever the
// driver started, also when a later step failed.
func (r *Runner) Run(ctx context.Context, app *config.AppConfig) (*Report, error) {
	paths, product, err := ResolvePaths(app)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithRunID(logging.WithProduct(ctx, product), uuid.NewString())
	log := logging.WithContext(r.logger, ctx)

	if err := utils.CreateDir(paths.ProductDir); err != nil {
		return nil, errors.NewIO(paths.ProductDir, err)
	}

	isDir, exists, err := utils.Exists(paths.InputDir)
	if err != nil {
		return nil, errors.NewIO(paths.InputDir, err)
	}
	if !exists {
		if err := utils.CreateDir(paths.InputDir); err != nil {
			return nil, errors.NewIO(paths.InputDir, err)
		}
		log.Warn("input directory created, put screenshots in it and run again",
			zap.String("input_dir", paths.InputDir))
		return nil, ErrInputDirCreated
	}
	if !isDir {
		return nil, errors.NewIO(paths.InputDir, os.ErrExist).WithMessage("input path is not a directory")
	}

	log.Info("starting run",
		zap.String("input_dir", paths.InputDir),
		zap.String("output_root", paths.OutputRoot),
		zap.String("product_dir", paths.ProductDir),
		zap.Int("status_bar_height", app.StatusBarHeight),
	)

	report, err := r.driver.Run(ctx, Options{
		InputDir:        paths.InputDir,
		OutputDir:       paths.ProductDir,
		StatusBarHeight: app.StatusBarHeight,
		Profiles:        Profiles(app.Profiles),
	})
	if report != nil {
		report.Product = product
	}
	if err != nil {
		return report, err
	}

	if app.Archive.Disable {
		return report, nil
	}
	res, err := archive.Create(paths.ProductDir, paths.ZipPath)
	if err != nil {
		return report, err
	}
	report.Archive = res
	log.Info("archive created", zap.String("path", res.Path), zap.Int("entries", res.Entries), zap.Int64("bytes", res.Size))

	if r.provider == nil {
		return report, nil
	}
	published, err := r.publish(ctx, res.Path, product)
	if err != nil {
		return report, err
	}
	report.Published = published
	log.Info("archive published", zap.String("provider", r.provider.Name()), zap.String("url", published.URL))
	return report, nil
}

func (r *Runner) publish(ctx context.Context, zipPath, product string) (*storage.UploadOutput, error) {
	f, err := os.Open(zipPath)
	if err != nil {
		return nil, errors.NewIO(zipPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.NewIO(zipPath, err)
	}

	out, err := r.provider.Upload(ctx, storage.UploadInput{
		File:        f,
		Key:         product + "/" + filepath.Base(zipPath),
		Size:        info.Size(),
		ContentType: "application/zip",
	})
	if err != nil {
		return nil, errors.NewStorage(r.provider.Name(), err)
	}
	return &out, nil
}

// Run is a convenience for a single pass with a runner built from app.
func Run(ctx context.Context, app *config.AppConfig, logger logging.Logger) (*Report, error) {
	r, err := NewRunner(app.Storage, logger)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, app)
}
