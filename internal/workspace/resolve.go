package workspace

import (
	"fmt"
	"regexp"

	"github.com/matheus3301/rolechat/internal/config"
)

const DefaultName = "main"

var nameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName checks that name is usable as a directory name.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid workspace name %q: must match ^[a-z0-9_-]{1,64}$", name)
	}
	return nil
}

// Resolve picks the active workspace: the flag value, then the config
// default_workspace, then "main".
func Resolve(flagOverride string, cfg *config.Config) string {
	if flagOverride != "" {
		return flagOverride
	}
	if cfg != nil && cfg.DefaultWorkspace != "" {
		return cfg.DefaultWorkspace
	}
	return DefaultName
}
