package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"blazeoffice/models"
)

var campaignAudience string

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Email campaign operations",
}

var campaignRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one campaign pass and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAudience(campaignAudience); err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.runner.Run(cmd.Context(), campaignAudience)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	campaignRunCmd.Flags().StringVar(&campaignAudience, "audience", models.AudienceWaitlist, "campaign audience (waitlist or commitment)")
	campaignCmd.AddCommand(campaignRunCmd)
}
