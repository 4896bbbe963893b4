package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/matheus3301/rolechat/internal/directory"
	"github.com/matheus3301/rolechat/internal/message"
)

const (
	messagesFile = "messages.json"
	usersFile    = "users.json"
)

// JSONFile persists snapshots as two JSON arrays in a directory:
// messages.json (the ordered log) and users.json.
type JSONFile struct {
	dir string
}

// NewJSONFile stores snapshots under dir.
func NewJSONFile(dir string) *JSONFile {
	return &JSONFile{dir: dir}
}

// Load reads both files. A missing messages.json means nothing was saved.
func (j *JSONFile) Load(ctx context.Context) (Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, false, err
	}

	f, err := os.Open(filepath.Join(j.dir, messagesFile))
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("open messages: %w", err)
	}
	msgs, err := message.Decode(f)
	_ = f.Close()
	if err != nil {
		return Snapshot{}, false, err
	}

	var users []directory.User
	data, err := os.ReadFile(filepath.Join(j.dir, usersFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		users = directory.Seed()
	case err != nil:
		return Snapshot{}, false, fmt.Errorf("read users: %w", err)
	default:
		if err := json.Unmarshal(data, &users); err != nil {
			return Snapshot{}, false, fmt.Errorf("decode users: %w", err)
		}
	}

	return Snapshot{Users: users, Messages: msgs}, true, nil
}

// Save writes both files, each via a temp file and rename.
func (j *JSONFile) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(j.dir, 0700); err != nil {
		return err
	}

	users := snap.Users
	if users == nil {
		users = []directory.User{}
	}
	if err := writeAtomic(filepath.Join(j.dir, usersFile), func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	}); err != nil {
		return fmt.Errorf("write users: %w", err)
	}

	if err := writeAtomic(filepath.Join(j.dir, messagesFile), func(f *os.File) error {
		return message.Encode(f, snap.Messages)
	}); err != nil {
		return fmt.Errorf("write messages: %w", err)
	}
	return nil
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
