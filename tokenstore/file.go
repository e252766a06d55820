package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File persists the pair as a small JSON document with 0600 permissions.
// Writes go through a temp file and rename so a crash never leaves a
// half-written credential file behind.
type File struct {
	path string
	mu   sync.Mutex
}

type filePayload struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// NewFile returns a file-backed store at path. The parent directory is
// created on first save.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("tokenstore: file path required")
	}
	return &File{path: path}, nil
}

// Load implements [Store]. A missing file is the empty state, not an error.
func (f *File) Load(context.Context) (Pair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Pair{}, nil
		}
		return Pair{}, fmt.Errorf("tokenstore: read %s: %w", f.path, err)
	}

	var payload filePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		// A corrupt credential file is treated as logged out rather than
		// wedging every startup.
		return Pair{}, nil
	}
	return Pair{AccessToken: payload.AccessToken, RefreshToken: payload.RefreshToken}, nil
}

// Save implements [Store].
func (f *File) Save(_ context.Context, pair Pair) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("tokenstore: mkdir: %w", err)
	}

	data, err := json.Marshal(filePayload{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
	if err != nil {
		return fmt.Errorf("tokenstore: encode: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("tokenstore: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("tokenstore: rename: %w", err)
	}
	return nil
}

// Clear implements [Store].
func (f *File) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("tokenstore: remove %s: %w", f.path, err)
	}
	return nil
}
