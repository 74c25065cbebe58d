package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matheus3301/inbox/internal/session"
	"github.com/matheus3301/inbox/internal/tui/client"
)

var rootCmd = &cobra.Command{
	Use:           "inboxctl",
	Short:         "Control a running inboxd session",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("session", "", "session name (overrides config default)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Duration("timeout", 10*time.Second, "per-call deadline")
	cobra.CheckErr(viper.BindPFlags(rootCmd.PersistentFlags()))
}

// initConfig lets INBOX_SESSION, INBOX_JSON and INBOX_TIMEOUT stand in for
// the flags.
func initConfig() {
	viper.SetEnvPrefix("inbox")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func jsonOutput() bool { return viper.GetBool("json") }

// withClient resolves the session, dials its socket and runs fn under the
// configured timeout.
func withClient(fn func(ctx context.Context, c *client.Client) error) error {
	name, err := session.Resolve(viper.GetString("session"))
	if err != nil {
		return err
	}
	c, err := client.New(session.SocketPath(name))
	if err != nil {
		return fmt.Errorf("cannot connect to daemon for session %q: %w", name, err)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("timeout"))
	defer cancel()
	return fn(ctx, c)
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}
