package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/flowboard/internal/events"
	"github.com/alfredjeanlab/flowboard/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream dashboard events",
	Long:    "Streams events from NATS when --nats (or FLOWBOARD_NATS_URL) is set,\notherwise from the server's event stream.",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats")
		topics, _ := cmd.Flags().GetStringSlice("topic")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		show := func(env *events.Envelope) {
			if jsonOutput {
				data, _ := json.Marshal(env)
				fmt.Println(string(data))
				return
			}
			fmt.Println(formatEvent(env))
		}

		if natsURL != "" {
			return watchNATS(ctx, natsURL, topics, show)
		}
		return dashClient.Events(ctx, topics, show)
	},
}

// watchNATS subscribes to every topic and blocks until ctx is done.
func watchNATS(ctx context.Context, url string, topics []string, fn func(*events.Envelope)) error {
	sub, err := events.NewNATSSubscriber(url,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats: disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	if len(topics) == 0 {
		topics = []string{events.TopicAll}
	}
	errCh := make(chan error, len(topics))
	for _, topic := range topics {
		go func() {
			errCh <- events.Watch(ctx, sub, topic, fn)
		}()
	}
	for range topics {
		if err := <-errCh; err != nil {
			return err
		}
	}
	return nil
}

// formatEvent renders an envelope as one human-readable line.
func formatEvent(env *events.Envelope) string {
	ts := ""
	if !env.EmittedAt.IsZero() {
		ts = env.EmittedAt.Local().Format("15:04:05") + " "
	}
	return ui.RenderMuted(ts) + ui.RenderAccent(env.Topic) + " " + describeEvent(env)
}

func describeEvent(env *events.Envelope) string {
	decode := func(v any) bool { return json.Unmarshal(env.Data, v) == nil }
	switch env.Topic {
	case events.TopicIssuesImported:
		var ev events.IssuesImported
		if decode(&ev) {
			return fmt.Sprintf("%s/%s: %d issues", ev.ProfileID, ev.QueryID, ev.Count)
		}
	case events.TopicActiveWorkComputed:
		var ev events.ActiveWorkComputed
		if decode(&ev) {
			s := fmt.Sprintf("%s/%s: %d epics, %d this week, %d last week, %d blocked, avg %.1f%%",
				ev.ProfileID, ev.QueryID, ev.Epics, ev.ThisWeek, ev.LastWeek, ev.Blocked, ev.AvgPct)
			if ev.Query != "" {
				s += fmt.Sprintf(" [%s]", ev.Query)
			}
			return s
		}
	case events.TopicCompletedComputed:
		var ev events.CompletedComputed
		if decode(&ev) {
			return fmt.Sprintf("%s/%s: %d issues, %g points over %d weeks",
				ev.ProfileID, ev.QueryID, ev.TotalIssues, ev.TotalPoints, ev.Weeks)
		}
	case events.TopicSettingsUpdated:
		var ev events.SettingsUpdated
		if decode(&ev) {
			pf := ev.Settings.ParentField()
			if pf == "" {
				pf = "-"
			}
			return fmt.Sprintf("parent_field=%s end=%s", pf, strings.Join(ev.Settings.FlowEndStatuses(), ","))
		}
	}
	return string(env.Data)
}

func init() {
	watchCmd.Flags().String("nats", os.Getenv("FLOWBOARD_NATS_URL"), "NATS URL to subscribe to instead of the server stream")
	watchCmd.Flags().StringSlice("topic", nil, "topics to watch (NATS wildcards allowed, default all)")
}
