package cmd

import (
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check daemon liveness",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := getClient().Health(cmd.Context()); err != nil {
			out.Error("daemon unreachable: %v", err)
			return err
		}
		out.Success("daemon healthy at %s", getClient().ServerURL())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
