// ABOUTME: Storage mount for sample files
// ABOUTME: Wraps a directory or fs.FS behind idempotent mount/unmount
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
)

// ErrNotMounted is returned when files are accessed before Mount
var ErrNotMounted = errors.New("storage: not mounted")

// Mount gives access to a file system once mounted
type Mount struct {
	name    string
	open    func() (fs.FS, error)
	mu      sync.Mutex
	fsys    fs.FS
	mounted bool
}

// NewDir creates a mount backed by a host directory
func NewDir(dir string) *Mount {
	return &Mount{
		name: dir,
		open: func() (fs.FS, error) {
			info, err := os.Stat(dir)
			if err != nil {
				return nil, err
			}
			if !info.IsDir() {
				return nil, fmt.Errorf("%s is not a directory", dir)
			}
			return os.DirFS(dir), nil
		},
	}
}

// NewFS creates a mount backed by an existing file system
func NewFS(name string, fsys fs.FS) *Mount {
	return &Mount{
		name: name,
		open: func() (fs.FS, error) { return fsys, nil },
	}
}

// Mount makes the file system available. Mounting twice is a no-op.
func (m *Mount) Mount() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mounted {
		return nil
	}

	fsys, err := m.open()
	if err != nil {
		return fmt.Errorf("mount %s: %w", m.name, err)
	}

	m.fsys = fsys
	m.mounted = true
	log.Printf("Mounted storage: %s", m.name)
	return nil
}

// Unmount releases the file system. Unmounting twice is a no-op.
func (m *Mount) Unmount() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.mounted {
		return
	}

	m.fsys = nil
	m.mounted = false
	log.Printf("Unmounted storage: %s", m.name)
}

// Mounted reports whether the storage is mounted
func (m *Mount) Mounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted
}

// FS returns the mounted file system
func (m *Mount) FS() (fs.FS, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.mounted {
		return nil, ErrNotMounted
	}
	return m.fsys, nil
}

// WaveFiles lists the .wav files in the root of the mount, sorted by name
func (m *Mount) WaveFiles() ([]string, error) {
	fsys, err := m.FS()
	if err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", m.name, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(path.Ext(e.Name()), ".wav") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}
