package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/matheus3301/inbox/internal/daemon"
	"github.com/matheus3301/inbox/internal/session"
)

func main() {
	sessionFlag := flag.String("session", os.Getenv("INBOX_SESSION"), "session name (overrides config default)")
	flag.Parse()

	sessionName, err := session.Resolve(*sessionFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{SessionName: sessionName}),
		fx.NopLogger,
	)
	if err := app.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app.Run()
}
