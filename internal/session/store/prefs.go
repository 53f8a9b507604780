package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"solver/internal/sentinel"
)

// Prefs is the key-value preference storage the session registry persists
// into. Implementations must be safe for concurrent use.
//
// Error Contract:
// - Get returns ok=false (not an error) when the key is absent
// - Return wrapped errors with context for infrastructure failures
type Prefs interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// InMemoryPrefs stores preferences in memory for tests/dev.
type InMemoryPrefs struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewInMemoryPrefs constructs an empty in-memory preference store.
func NewInMemoryPrefs() *InMemoryPrefs {
	return &InMemoryPrefs{values: make(map[string]string)}
}

func (p *InMemoryPrefs) Get(_ context.Context, key string) (string, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok, nil
}

func (p *InMemoryPrefs) Set(_ context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
	return nil
}

func (p *InMemoryPrefs) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, key)
	return nil
}

// FilePrefs persists preferences as a single JSON document on disk. Writes
// are read-modify-write against the whole file under one lock; the design
// assumes a single process owns the file.
type FilePrefs struct {
	mu   sync.Mutex
	path string
}

// NewFilePrefs opens (or lazily creates) a file-backed preference store.
func NewFilePrefs(path string) *FilePrefs {
	return &FilePrefs{path: path}
}

func (p *FilePrefs) Get(_ context.Context, key string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	values, err := p.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (p *FilePrefs) Set(_ context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	values, err := p.load()
	if err != nil {
		return err
	}
	values[key] = value
	return p.save(values)
}

func (p *FilePrefs) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	values, err := p.load()
	if err != nil {
		return err
	}
	delete(values, key)
	return p.save(values)
}

// load reads the whole document. A missing file is an empty store; a corrupt
// file also degrades to empty so a bad write can never lock the user out.
func (p *FilePrefs) load() (map[string]string, error) {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prefs file: %w", sentinel.ErrUnavailable)
	}
	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return make(map[string]string), nil
	}
	return values, nil
}

func (p *FilePrefs) save(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create prefs dir: %w", sentinel.ErrUnavailable)
		}
	}
	if err := os.WriteFile(p.path, data, 0o600); err != nil {
		return fmt.Errorf("write prefs file: %w", sentinel.ErrUnavailable)
	}
	return nil
}
