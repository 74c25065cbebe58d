package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matheus3301/inbox/internal/inboxv1"
	"github.com/matheus3301/inbox/internal/tui/client"
)

var sendCmd = &cobra.Command{
	Use:   "send <chat-id> <text...>",
	Short: "Send a text message",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Inbox.SendMessage(ctx, &inboxv1.SendMessageRequest{
				ChatID: args[0],
				Text:   strings.Join(args[1:], " "),
			})
			if err != nil {
				return err
			}
			return printMessage(resp.Message)
		})
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry <temp-id>",
	Short: "Resend a failed message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Inbox.RetrySend(ctx, &inboxv1.RetrySendRequest{TempID: args[0]})
			if err != nil {
				return err
			}
			return printMessage(resp.Message)
		})
	},
}

var startCmd = &cobra.Command{
	Use:   "start <number>",
	Short: "Open a chat with a phone number (10-15 digits)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Inbox.StartChat(ctx, &inboxv1.StartChatRequest{Number: args[0]})
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(resp.Chat)
			}
			printTimeline(resp.Chat)
			return nil
		})
	},
}

var failedLimit int32

var failedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List sends that failed or were acknowledged late",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Inbox.ListFailedSends(ctx, &inboxv1.ListFailedSendsRequest{Limit: failedLimit})
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(resp.Sends)
			}
			if len(resp.Sends) == 0 {
				fmt.Println("No failed sends.")
				return nil
			}
			for _, s := range resp.Sends {
				fmt.Printf("%s  %-10s %-16s %s  %q %s\n", s.TempID, s.Status, s.ChatID, formatMillis(s.UpdatedAtUnixMs), s.Text, s.Error)
			}
			return nil
		})
	},
}

func printMessage(m *inboxv1.Message) error {
	if jsonOutput() {
		return outputJSON(m)
	}
	fmt.Printf("%s %s\n", m.TempID, m.Status)
	return nil
}

func init() {
	failedCmd.Flags().Int32Var(&failedLimit, "limit", 20, "maximum rows to show")
	rootCmd.AddCommand(sendCmd, retryCmd, startCmd, failedCmd)
}
