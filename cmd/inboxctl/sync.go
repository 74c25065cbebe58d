package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matheus3301/inbox/internal/inboxv1"
	"github.com/matheus3301/inbox/internal/session"
	"github.com/matheus3301/inbox/internal/tui/client"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Poll the backend now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			if _, err := c.Inbox.Refresh(ctx, &inboxv1.RefreshRequest{}); err != nil {
				return err
			}
			if !jsonOutput() {
				fmt.Println("Refresh requested.")
			}
			return nil
		})
	},
}

var watchNamespaces []string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream daemon events until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := session.Resolve(viper.GetString("session"))
		if err != nil {
			return err
		}
		c, err := client.New(session.SocketPath(name))
		if err != nil {
			return fmt.Errorf("cannot connect to daemon for session %q: %w", name, err)
		}
		defer func() { _ = c.Close() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stream, err := c.Inbox.WatchChanges(ctx, &inboxv1.WatchChangesRequest{Namespaces: watchNamespaces})
		if err != nil {
			return err
		}
		for {
			evt, err := stream.Recv()
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			if err != nil {
				return err
			}
			if jsonOutput() {
				if err := outputJSON(evt); err != nil {
					return err
				}
				continue
			}
			fmt.Printf("%s %-22s %s\n", formatMillis(evt.OccurredAtUnixMs), evt.Kind, describeEvent(evt))
		}
	},
}

func describeEvent(evt *inboxv1.ChangeEvent) string {
	var parts []string
	if len(evt.ChatIDs) > 0 {
		parts = append(parts, "chats="+strings.Join(evt.ChatIDs, ","))
	}
	if evt.State != "" {
		parts = append(parts, "state="+evt.State)
	}
	if evt.Reachable != nil {
		parts = append(parts, fmt.Sprintf("reachable=%v", *evt.Reachable))
	}
	if evt.TempID != "" {
		parts = append(parts, "temp_id="+evt.TempID)
	}
	if evt.Reason != "" {
		parts = append(parts, "reason="+evt.Reason)
	}
	return strings.Join(parts, " ")
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchNamespaces, "ns", nil, `event namespaces to follow, e.g. "store.,conn."`)
	rootCmd.AddCommand(refreshCmd, watchCmd)
}
