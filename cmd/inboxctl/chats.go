package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matheus3301/inbox/internal/inboxv1"
	"github.com/matheus3301/inbox/internal/tui/client"
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List chats, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Inbox.ListChats(ctx, &inboxv1.ListChatsRequest{})
			if err != nil {
				return err
			}
			return printChats(resp.Chats)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find chats by name or message text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Inbox.Search(ctx, &inboxv1.SearchRequest{Query: args[0]})
			if err != nil {
				return err
			}
			return printChats(resp.Chats)
		})
	},
}

var timelineCmd = &cobra.Command{
	Use:   "timeline <chat-id>",
	Short: "Print the messages of a chat, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Inbox.GetTimeline(ctx, &inboxv1.GetTimelineRequest{ChatID: args[0]})
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

func printChats(chats []*inboxv1.Chat) error {
	if jsonOutput() {
		return outputJSON(chats)
	}
	if len(chats) == 0 {
		fmt.Println("No chats.")
		return nil
	}
	for _, ch := range chats {
		last := ""
		if ch.LastMessage != nil {
			last = ch.LastMessage.Text
		}
		fmt.Printf("%-16s %-24s %3d  %s  %s\n", ch.ID, ch.Name, ch.UnreadCount, formatMillis(ch.LastActivityUnixMs), last)
	}
	return nil
}

func printTimeline(ch *inboxv1.Chat) {
	fmt.Printf("%s (%s)\n", ch.Name, ch.ID)
	for _, m := range ch.Messages {
		arrow := "<"
		if m.Direction == "outbound" {
			arrow = ">"
		}
		line := fmt.Sprintf("%s %s %s", formatMillis(m.TimestampUnixMs), arrow, m.Text)
		if m.Direction == "outbound" {
			line += " [" + m.Status + "]"
		}
		if m.Error != "" {
			line += " " + m.Error
		}
		fmt.Println(line)
	}
}

func init() {
	rootCmd.AddCommand(chatsCmd, searchCmd, timelineCmd)
}
