package tui

import (
	"fmt"
	"strings"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// Command names accepted in : mode, with their aliases.
var commandAliases = map[string]string{
	"search":  "search",
	"chat":    "chat",
	"new":     "new",
	"start":   "new",
	"retry":   "retry",
	"refresh": "refresh",
	"r":       "refresh",
	"help":    "help",
	"h":       "help",
	"quit":    "quit",
	"q":       "quit",
}

// commandsWithArgs need a non-empty argument.
var commandsWithArgs = map[string]bool{"search": true, "chat": true, "new": true}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

// Resolve maps aliases to their command and checks arguments.
func (c Command) Resolve() (Command, error) {
	name, ok := commandAliases[c.Name]
	if !ok {
		return c, fmt.Errorf("unknown command %q", c.Name)
	}
	if commandsWithArgs[name] && c.Args == "" {
		return c, fmt.Errorf(":%s needs an argument", name)
	}
	return Command{Name: name, Args: c.Args}, nil
}
