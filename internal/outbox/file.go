package outbox

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

// FileOutbox keeps the queue as one JSON array on disk. Every mutation reads the
// whole list, changes it and writes the whole list back through a temp file and
// rename. Only one process may use a given path.
type FileOutbox struct {
	mu   sync.Mutex
	path string
}

func NewFileOutbox(path string) (*FileOutbox, error) {
	if path == "" {
		return nil, errors.New("outbox: empty file path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &FileOutbox{path: path}, nil
}

func (f *FileOutbox) load() ([]Result, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Result{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return []Result{}, nil
	}
	var out []Result
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("outbox %s: %w", f.path, err)
	}
	return out, nil
}

func (f *FileOutbox) store(list []Result) error {
	b, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *FileOutbox) Append(_ context.Context, r Result) error {
	if err := validate(r); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	list, err := f.load()
	if err != nil {
		return err
	}
	for _, e := range list {
		if e.ID == r.ID {
			return fmt.Errorf("%w: %s", ErrDuplicate, r.ID)
		}
	}
	return f.store(append(list, r))
}

func (f *FileOutbox) List(_ context.Context) ([]Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *FileOutbox) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list, err := f.load()
	if err != nil {
		return err
	}
	kept := list[:0]
	found := false
	for _, r := range list {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return ErrNotFound
	}
	return f.store(kept)
}

func (f *FileOutbox) Len(ctx context.Context) (int, error) {
	list, err := f.List(ctx)
	return len(list), err
}
