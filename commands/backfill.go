package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill-country",
	Short: "Resolve missing commitment countries from stored IP addresses",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.backfill.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "total=%d updated=%d failed=%d skipped=%d\n",
			res.Total, res.Updated, res.Failed, res.Skipped)
		return nil
	},
}
