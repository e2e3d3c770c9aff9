package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const snapshotVersion = 1

// ErrUnsupportedVersion is returned by Load for snapshots written by a newer format.
var ErrUnsupportedVersion = errors.New("unsupported history snapshot version")

type fileSnapshot struct {
	Version   int     `json:"version"`
	Entries   []Entry `json:"entries"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// diskBackend stores history as one JSON file.
type diskBackend struct {
	path string

	mu      sync.Mutex
	lastGen uint64
}

// NewDiskBackend returns a Backend writing to path. An empty path resolves to
// $XDG_DATA_HOME/proofread/history.json or ~/.local/share/proofread/history.json.
func NewDiskBackend(path string) (Backend, error) {
	if path == "" {
		dir, err := DataDir()
		if err != nil {
			return nil, fmt.Errorf("resolving data directory: %w", err)
		}
		path = filepath.Join(dir, "history.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &diskBackend{path: path}, nil
}

// DataDir returns the proofread-specific XDG data directory.
func DataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "proofread"), nil
}

// Load reads the snapshot file. A missing file is an empty history.
func (d *diskBackend) Load() ([]Entry, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var snap fileSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	return snap.Entries, nil
}

// Save writes snap atomically via a temp file + os.Rename. Snapshots older
// than the last one written are dropped.
func (d *diskBackend) Save(snap Snapshot) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if snap.Generation != 0 && snap.Generation <= d.lastGen {
		return nil
	}

	entries := snap.Entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(fileSnapshot{
		Version:   snapshotVersion,
		Entries:   entries,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}

	// Write to a temp file in the same directory so os.Rename is atomic.
	tmp, err := os.CreateTemp(filepath.Dir(d.path), "history-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist history: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	if err = os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	d.lastGen = snap.Generation
	return nil
}
