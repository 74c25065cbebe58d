package session

import (
	"testing"

	"github.com/matheus3301/inbox/internal/config"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "main", false},
		{"with numbers", "work123", false},
		{"with hyphen and underscore", "my-work_box", false},
		{"empty", "", true},
		{"uppercase", "Main", true},
		{"dot", "my.session", true},
		{"slash", "my/session", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestResolvePrecedence(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	got, err := Resolve("")
	if err != nil || got != DefaultSessionName {
		t.Fatalf("Resolve(\"\") = %q, %v; want %q", got, err, DefaultSessionName)
	}

	cfg := config.Default()
	cfg.DefaultSession = "work"
	if err := config.Save(ConfigPath(), cfg); err != nil {
		t.Fatal(err)
	}
	if got, _ := Resolve(""); got != "work" {
		t.Errorf("Resolve with config = %q, want work", got)
	}
	if got, _ := Resolve("personal"); got != "personal" {
		t.Errorf("Resolve with flag = %q, want personal", got)
	}
	if _, err := Resolve("Bad Name"); err == nil {
		t.Error("Resolve should reject invalid names")
	}
}
