package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status and the current bridge text",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := getClient().GetStatus(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetch status: %w", err)
		}

		if out.JSONMode() {
			out.JSON(st)
			return nil
		}

		out.Header("Bridge text")
		out.KeyValue("text", st.BridgeText)
		out.KeyValue("alarm", fmt.Sprintf("%t", st.Alarm))
		out.Divider()

		out.Header("AIS stream")
		out.KeyValue("connected", fmt.Sprintf("%t", st.Stream.Connected))
		out.KeyValue("reconnect attempts", fmt.Sprintf("%d", st.Stream.ReconnectAttempts))
		if !st.Stream.LastMessageTime.IsZero() {
			out.KeyValue("last message", st.Stream.LastMessageTime.Local().Format(time.RFC3339))
		}
		out.KeyValue("uptime", (time.Duration(st.Stream.UptimeSeconds) * time.Second).String())
		out.KeyValue("invalid dropped", fmt.Sprintf("%d", st.Stream.InvalidDropped))
		out.KeyValue("ignored frames", fmt.Sprintf("%d", st.Stream.IgnoredFrames))
		out.Divider()

		out.Header("Registry")
		out.KeyValue("vessels", fmt.Sprintf("%d", st.Registry.Vessels))
		out.KeyValue("kinematic rejects", fmt.Sprintf("%d", st.Registry.KinematicRejects))
		out.KeyValue("stale removals", fmt.Sprintf("%d", st.Registry.StaleRemovals))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
