package workspace

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.rolechat, or $ROLECHAT_HOME when set.
func BaseDir() string {
	if dir := os.Getenv("ROLECHAT_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".rolechat")
}

// Dir returns the workspace-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "workspaces", name)
}

// SocketPath returns the UDS control socket path for a workspace.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "chatd.sock")
}

// DBPath returns the SQLite database path.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "chat.db")
}

// JSONDir returns the directory holding messages.json and users.json.
func JSONDir(name string) string {
	return filepath.Join(Dir(name), "json")
}

// LogDir returns the log directory for a workspace.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "chatd.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the workspace directory tree with owner-only permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name), JSONDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
