// Package cmd contains the thumbkit CLI commands
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leeforge/thumbkit/config"
	"github.com/leeforge/thumbkit/errors"
	"github.com/leeforge/thumbkit/logging"
	"github.com/leeforge/thumbkit/utils"
)

var version = "dev"

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
}

// rootOptions holds flag values and the state loaded before a command runs.
type rootOptions struct {
	configDir string
	baseDir   string
	product   string
	statusBar int
	verbose   bool
	jsonOut   bool

	cfg    *config.Config
	app    *config.AppConfig
	logger logging.Logger
}

// NewRootCmd builds the command tree. Each call returns independent flag state.
func NewRootCmd() *cobra.Command {
	_, root := newRoot()
	return root
}

func newRoot() (*rootOptions, *cobra.Command) {
	o := &rootOptions{}

	root := &cobra.Command{
		Use:   "thumbkit",
		Short: "Turn product screenshots into listing thumbnail sets",
		Long: `thumbkit crops the status bar off phone screenshots, resizes them to the
listing sizes, compresses every image under its byte budget and zips the result.

Screenshots are read from <base-dir>/截图 and results are written to
<base-dir>/生成结果/<product>, with <product>_上架图.zip next to it.

Example usage:
  thumbkit run -p 水杯                   # Process ./截图 for product 水杯
  thumbkit run 水杯 --status-bar 96      # Taller status bar
  thumbkit watch -p 水杯                 # Re-run whenever screenshots change
  thumbkit profiles                      # Show the configured output sizes`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load(cmd, args)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			o.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&o.configDir, "config-dir", "", "directory holding thumbkit.yaml (default $THUMBKIT_CONFIG_PATH or .)")
	flags.StringVar(&o.baseDir, "base-dir", "", "directory containing the input and output folders (default .)")
	flags.StringVarP(&o.product, "product", "p", "", "product name, used for the output folder and archive")
	flags.IntVar(&o.statusBar, "status-bar", 0, "status bar height in pixels to crop from the top (default 75)")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVar(&o.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		newRunCmd(o),
		newWatchCmd(o),
		newProfilesCmd(o),
		newVersionCmd(o),
	)
	return o, root
}

// Execute runs the CLI until it finishes or receives SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	o, root := newRoot()
	return o.execute(ctx, root)
}

// cliError carries the message printed for a failed command.
type cliError struct {
	err error
	msg string
}

func (e *cliError) Error() string { return e.msg }

func (e *cliError) Unwrap() error { return e.err }

func (o *rootOptions) execute(ctx context.Context, root *cobra.Command) error {
	if err := root.ExecuteContext(ctx); err != nil {
		return &cliError{err: err, msg: o.formatError(err)}
	}
	return nil
}

// formatError renders err as typed output with details, stack and cause
// under --verbose, and as its plain message otherwise.
func (o *rootOptions) formatError(err error) string {
	if !o.verbose {
		return err.Error()
	}
	return errors.NewErrorFormatter(true, true).Format(err)
}

// load reads configuration files and environment, then applies flags on top.
func (o *rootOptions) load(cmd *cobra.Command, args []string) error {
	opts := config.DefaultConfigOptions()
	if o.configDir != "" {
		opts.BasePath = o.configDir
	}
	opts.WatchAble = cmd.Name() == "watch"

	c, err := config.NewConfig(opts)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("base-dir") {
		c.Set("base_dir", o.baseDir)
	}
	if flags.Changed("product") {
		c.Set("product_name", o.product)
	} else if len(args) == 1 {
		c.Set("product_name", args[0])
	}
	if flags.Changed("status-bar") {
		c.Set("status_bar_height", o.statusBar)
	}
	if o.verbose {
		c.Set("log.level", "debug")
	}

	app, err := c.App()
	if err != nil {
		_ = c.Close()
		return fmt.Errorf("loading config: %w", err)
	}
	o.cfg = c
	o.app = app
	return nil
}

// setupLogging installs the global logger. Log files live under the base dir.
func (o *rootOptions) setupLogging() logging.Logger {
	logCfg := o.app.Log
	logCfg.Director = utils.Resolve(o.app.BaseDir, logCfg.Director)
	o.logger = logging.Init(logCfg)
	o.logger.Debug("configuration loaded",
		zap.Strings("files", o.cfg.Files()),
		zap.String("mode", string(config.CurrentMode())),
		zap.String("base_dir", o.app.BaseDir),
	)
	return o.logger
}

func (o *rootOptions) close() {
	if o.logger != nil {
		_ = o.logger.Sync()
		_ = logging.CloseAllWriters()
	}
	if o.cfg != nil {
		_ = o.cfg.Close()
	}
}
