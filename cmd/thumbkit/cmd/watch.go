package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leeforge/thumbkit/errors"
	"github.com/leeforge/thumbkit/logging"
	"github.com/leeforge/thumbkit/media/batch"
	"github.com/leeforge/thumbkit/media/storage"
	"github.com/leeforge/thumbkit/utils"
)

func newWatchCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [product]",
		Short: "Re-run whenever the input folder changes",
		Long: `Run once, then watch the input folder and run again after screenshots are
added, replaced or removed. Changes are debounced (watch.debounce, default 2s)
and runs never overlap. Edits to thumbkit.yaml apply from the next run.
Stop with Ctrl-C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := o.setupLogging()

			paths, _, err := batch.ResolvePaths(o.app)
			if err != nil {
				return err
			}
			if err := utils.CreateDir(paths.InputDir); err != nil {
				return errors.NewIO(paths.InputDir, err)
			}

			runners := &runnerCache{logger: logger}
			if _, err := runners.get(o.app.Storage); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			run := func(ctx context.Context) error {
				app, err := o.cfg.App()
				if err != nil {
					return fmt.Errorf("reloading config: %w", err)
				}
				runner, err := runners.get(app.Storage)
				if err != nil {
					return err
				}
				report, err := runner.Run(ctx, app)
				if report != nil {
					_ = o.printReport(out, report)
				}
				return err
			}

			w := batch.NewWatcher(paths.InputDir, o.app.Watch.Debounce, run, logger.Named("watch"))
			return w.Watch(cmd.Context())
		},
	}
}

// runnerCache keeps one runner per storage configuration so that a storage
// edit in thumbkit.yaml takes effect on the next run.
type runnerCache struct {
	logger  logging.Logger
	storage storage.Config
	runner  *batch.Runner
}

func (c *runnerCache) get(cfg storage.Config) (*batch.Runner, error) {
	if c.runner != nil && cfg == c.storage {
		return c.runner, nil
	}
	r, err := batch.NewRunner(cfg, c.logger)
	if err != nil {
		return nil, err
	}
	if c.runner != nil {
		c.logger.Info("storage config changed, rebuilt runner", zap.String("type", cfg.Type))
	}
	c.runner, c.storage = r, cfg
	return r, nil
}
