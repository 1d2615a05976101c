package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leeforge/thumbkit/cmd/thumbkit/internal/output"
	"github.com/leeforge/thumbkit/media/batch"
	"github.com/leeforge/thumbkit/utils"
)

type profileView struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	MaxKB  int    `json:"max_kb"`
}

func newProfilesCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the configured output sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles := batch.Profiles(o.app.Profiles)

			if o.jsonOut {
				views := make([]profileView, 0, len(profiles))
				for i, p := range profiles {
					views = append(views, profileView{
						Name:   p.Name(),
						Width:  p.Width,
						Height: p.Height,
						MaxKB:  o.app.Profiles[i].MaxKB,
					})
				}
				return utils.PrintJson(cmd.OutOrStdout(), views)
			}

			rows := make([][]string, 0, len(profiles))
			for i, p := range profiles {
				rows = append(rows, []string{
					p.Name(),
					strconv.Itoa(p.Width),
					strconv.Itoa(p.Height),
					fmt.Sprintf("%d KB", o.app.Profiles[i].MaxKB),
				})
			}
			w := cmd.OutOrStdout()
			if err := output.NewPrinter(w, output.ResolveColors(w)).Table([]string{"profile", "width", "height", "budget"}, rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nstatus bar: %d px\n", o.app.StatusBarHeight)
			return nil
		},
	}
}
