package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/inbox/internal/config"
	"github.com/matheus3301/inbox/internal/logging"
	"github.com/matheus3301/inbox/internal/session"
	"github.com/matheus3301/inbox/internal/tui"
	"github.com/matheus3301/inbox/internal/tui/client"
)

func main() {
	sessionFlag := flag.String("session", os.Getenv("INBOX_SESSION"), "session name (overrides config default)")
	flag.Parse()

	sessionName, err := session.Resolve(*sessionFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(sessionName)
	defer func() { _ = logger.Sync() }()

	socketPath := session.SocketPath(sessionName)

	// Probe the daemon; auto-start if needed.
	if !client.Probe(socketPath, 2*time.Second) {
		fmt.Fprintf(os.Stderr, "daemon not running for session %q, starting...\n", sessionName)
		if err := startDaemon(sessionName); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start daemon: %v\n", err)
			os.Exit(1)
		}
		if !waitForDaemon(socketPath, 10*time.Second) {
			fmt.Fprintf(os.Stderr, "daemon did not become ready\n")
			os.Exit(1)
		}
	}

	c, err := client.New(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to daemon: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	app := tui.NewApp(c.Inbox, sessionName, logger)
	if err := app.Run(); err != nil {
		logger.Error("tui exited", zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger writes to the session log dir only; the terminal belongs to tview.
func newLogger(sessionName string) *zap.Logger {
	level := "info"
	if cfg, err := config.LoadOrDefault(session.ConfigPath()); err == nil {
		level = cfg.LogLevel
	}
	logger, err := logging.NewFileOnly(filepath.Join(session.LogDir(sessionName), "inboxtui.log"), level)
	if err != nil {
		return zap.NewNop()
	}
	return logger.With(zap.String("session", sessionName))
}

func startDaemon(sessionName string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	inboxd := filepath.Join(filepath.Dir(executable), "inboxd")

	if _, err := os.Stat(inboxd); err != nil {
		inboxd = "inboxd"
	}

	cmd := exec.Command(inboxd, "--session", sessionName)
	// Inherit stderr so daemon startup errors are visible.
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

// waitForDaemon polls with a real RPC, not just a socket connect.
func waitForDaemon(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if client.Probe(socketPath, 2*time.Second) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
