package tui

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  Command
	}{
		{"search lunch plans", Command{Name: "search", Args: "lunch plans"}},
		{"  NEW   5511999990001 ", Command{Name: "new", Args: "5511999990001"}},
		{"q", Command{Name: "q"}},
		{"", Command{}},
	}
	for _, tt := range tests {
		if got := ParseCommand(tt.input); got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestCommandResolve(t *testing.T) {
	got, err := ParseCommand("start 5511999990001").Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Name != "new" || got.Args != "5511999990001" {
		t.Errorf("Resolve() = %+v, want new 5511999990001", got)
	}

	if got, _ := ParseCommand("h").Resolve(); got.Name != "help" {
		t.Errorf("alias h resolved to %q", got.Name)
	}
	if _, err := ParseCommand("search").Resolve(); err == nil {
		t.Error("expected error for :search without a query")
	}
	if _, err := ParseCommand("logout").Resolve(); err == nil {
		t.Error("expected error for unknown command")
	}
}
