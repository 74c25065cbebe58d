package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/matheus3301/inbox/internal/inboxv1"
	"github.com/matheus3301/inbox/internal/tui/client"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"connection"},
	Short:   "Show the connection state of the session",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Inbox.GetConnection(ctx, &inboxv1.GetConnectionRequest{})
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(resp)
			}
			fmt.Printf("Session:   %s\n", resp.Session)
			fmt.Printf("Backend:   %s\n", resp.BackendURL)
			fmt.Printf("State:     %s (since %s)\n", resp.State, formatMillis(resp.StateSinceUnixMs))
			fmt.Printf("Reachable: %v\n", resp.Reachable)
			fmt.Printf("Visible:   %v\n", resp.Visible)
			if resp.OpenChatID != "" {
				fmt.Printf("Open chat: %s\n", resp.OpenChatID)
			}
			fmt.Printf("Chats:     %d\n", resp.ChatCount)
			fmt.Printf("Uptime:    %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Truncate(time.Second))
			if resp.DroppedEvents > 0 {
				fmt.Printf("Dropped:   %d events\n", resp.DroppedEvents)
			}
			return nil
		})
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Query the daemon's gRPC health service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Health.Check(ctx, &healthpb.HealthCheckRequest{Service: inboxv1.ServiceName})
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(map[string]string{"status": resp.GetStatus().String()})
			}
			fmt.Println(resp.GetStatus().String())
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, healthCmd)
}
