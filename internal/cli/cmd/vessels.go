package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var vesselsCmd = &cobra.Command{
	Use:   "vessels",
	Short: "List tracked vessels",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := getClient().GetVessels(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetch vessels: %w", err)
		}

		if out.JSONMode() {
			out.JSON(list)
			return nil
		}

		if list.Count == 0 {
			out.Info("no vessels tracked")
			return nil
		}

		out.Header(fmt.Sprintf("%d vessel(s)", list.Count))
		for _, v := range list.Vessels {
			name := v.Name
			if name == "" {
				name = "(unnamed)"
			}
			out.Divider()
			out.KeyValue("mmsi", v.MMSI)
			out.KeyValue("name", name)
			out.KeyValue("position", fmt.Sprintf("%.5f, %.5f", v.Lat, v.Lon))
			out.KeyValue("sog", fmt.Sprintf("%.1f kn", v.SOG))
			out.KeyValue("status", v.Status)
			out.KeyValue("direction", v.Direction)
			if v.TargetBridge != "" {
				out.KeyValue("target", v.TargetBridge)
			}
			if v.ETAMinutes != nil {
				out.KeyValue("eta", fmt.Sprintf("%.1f min", *v.ETAMinutes))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(vesselsCmd)
}
