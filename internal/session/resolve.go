package session

import (
	"fmt"
	"regexp"

	"github.com/matheus3301/inbox/internal/config"
)

const DefaultSessionName = "main"

var nameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName checks that name is usable as a directory under sessions/.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid session name %q: must match ^[a-z0-9_-]{1,64}$", name)
	}
	return nil
}

// Resolve determines the active session name using precedence:
// 1. flagOverride (--session flag or INBOX_SESSION)
// 2. config.toml default_session
// 3. "main"
func Resolve(flagOverride string) (string, error) {
	name := flagOverride
	if name == "" {
		if cfg, err := config.Load(ConfigPath()); err == nil {
			name = cfg.DefaultSession
		}
	}
	if name == "" {
		name = DefaultSessionName
	}
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}
