package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/bronvakt/bronvakt/internal/host"
)

var (
	watchInterval time.Duration
	watchNATSURL  string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow bridge text changes live",
	Long: `Follow bridge text changes live.

With --nats (or nats in the config file) the command subscribes to the
daemon's capability subjects and prints every transition as it is published.
Without a NATS URL it falls back to polling the HTTP API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		url := watchNATSURL
		if url == "" {
			url = cfg.NATS
		}
		if url != "" {
			return watchNATS(cmd, url)
		}
		return watchPoll(cmd)
	},
}

// watchNATS subscribes to the capability wildcard and renders transitions as
// they arrive.
func watchNATS(cmd *cobra.Command, url string) error {
	nc, err := nats.Connect(url, nats.Name("bronvakt-watch"))
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Drain()

	sub, err := nc.SubscribeSync(host.SubjectCapabilityWildcard)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", host.SubjectCapabilityWildcard, err)
	}
	out.Info("watching %s on %s", host.SubjectCapabilityWildcard, url)

	for {
		msg, err := sub.NextMsgWithContext(cmd.Context())
		if err != nil {
			if cmd.Context().Err() != nil {
				fmt.Println()
				return nil
			}
			return err
		}

		var cm host.CapabilityMsg
		if err := json.Unmarshal(msg.Data, &cm); err != nil {
			out.Error("bad capability payload on %s: %v", msg.Subject, err)
			continue
		}
		stamp := cm.Timestamp.Local().Format("15:04:05")

		if out.JSONMode() {
			out.JSON(map[string]any{
				"time":    stamp,
				"subject": msg.Subject,
				"value":   cm.Value,
			})
			continue
		}
		switch msg.Subject {
		case host.SubjectBridgeText:
			out.Info("%s  %v", stamp, cm.Value)
		case host.SubjectAlarm:
			if cm.Value == true {
				out.Warn("%s  bridge opening expected", stamp)
			}
		case host.SubjectConnected:
			out.Info("%s  ais stream connected: %v", stamp, cm.Value)
		}
	}
}

// watchPoll tails the HTTP status endpoint and prints on text changes.
func watchPoll(cmd *cobra.Command) error {
	c := getClient()
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	var last string
	for {
		st, err := c.GetStatus(cmd.Context())
		if err != nil {
			out.Error("fetch status: %v", err)
		} else if st.BridgeText != last {
			last = st.BridgeText
			stamp := time.Now().Format("15:04:05")
			if out.JSONMode() {
				out.JSON(map[string]any{
					"time":  stamp,
					"text":  st.BridgeText,
					"alarm": st.Alarm,
				})
			} else if st.Alarm {
				out.Warn("%s  %s", stamp, st.BridgeText)
			} else {
				out.Info("%s  %s", stamp, st.BridgeText)
			}
		}

		select {
		case <-cmd.Context().Done():
			fmt.Println()
			return nil
		case <-ticker.C:
		}
	}
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "poll interval without NATS")
	watchCmd.Flags().StringVar(&watchNATSURL, "nats", "", "NATS URL to subscribe to instead of polling")
	rootCmd.AddCommand(watchCmd)
}
