package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/leeforge/thumbkit/cmd/thumbkit/internal/output"
	"github.com/leeforge/thumbkit/media/batch"
	"github.com/leeforge/thumbkit/utils"
)

func newRunCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run [product]",
		Short: "Process all screenshots once and build the archive",
		Long: `Process every image in the input folder for each output size, then zip
the product folder. A file that cannot be processed is reported and skipped.

If the input folder does not exist it is created and the command exits
successfully; add screenshots and run again.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := o.setupLogging()

			report, err := batch.Run(cmd.Context(), o.app, logger)
			if errors.Is(err, batch.ErrInputDirCreated) {
				paths, _, _ := batch.ResolvePaths(o.app)
				if o.jsonOut {
					return utils.PrintJson(cmd.OutOrStdout(), map[string]string{"input_dir_created": paths.InputDir})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created input folder %s\nPut the screenshots in it and run again.\n", paths.InputDir)
				return nil
			}
			if report != nil {
				if perr := o.printReport(cmd.OutOrStdout(), report); perr != nil && err == nil {
					err = perr
				}
			}
			return err
		},
	}
}

func (o *rootOptions) printReport(w io.Writer, report *batch.Report) error {
	if o.jsonOut {
		return utils.PrintJson(w, report)
	}

	p := output.NewPrinter(w, output.ResolveColors(w))
	p.Field("Product", "%s", report.Product)
	if report.NoImages {
		p.Warning("no images found in %s", report.InputDir)
	} else {
		p.Field("Processed", "%d files, %d outputs, %d failures (%s)",
			report.Files, len(report.Outputs), report.Failures.Len(), report.Duration)
	}
	for _, f := range report.Failures.Errors() {
		p.Error("%s", o.formatError(f))
	}
	for _, rec := range report.Outputs {
		if rec.OverBudget {
			p.Warning("%s is %d bytes at quality %d, over budget", rec.Path, rec.Bytes, rec.Quality)
		}
	}
	if report.Archive != nil {
		p.Success("archive %s (%d files)", report.Archive.Path, report.Archive.Files)
	}
	if report.Published != nil {
		p.Success("published %s", report.Published.URL)
	}
	return nil
}
