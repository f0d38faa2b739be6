// Package filesystem provides a virtualized abstraction layer for all filesystem operations.
//
// It utilizes the afero library to allow seamless switching between OS-level and in-memory filesystem backends.
package filesystem

import (
	"sync"

	"github.com/spf13/afero"
)

var (
	backend = afero.Afero{Fs: afero.NewOsFs()}
	mu      sync.RWMutex
)

// API returns the active afero.Afero instance for filesystem interaction.
func API() afero.Afero {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// SetOsFs restores the filesystem backend to the native operating system implementation.
func SetOsFs() {
	set(afero.NewOsFs())
}

// SetMemMapFs initializes a volatile in-memory filesystem backend for unit testing and CI environments.
func SetMemMapFs() {
	set(afero.NewMemMapFs())
}

func set(fs afero.Fs) {
	mu.Lock()
	defer mu.Unlock()
	backend = afero.Afero{Fs: fs}
}

// RemoveIfExists deletes the named file, treating a missing file as success.
func RemoveIfExists(path string) error {
	fs := API()
	exists, err := fs.Exists(path)
	if err != nil || !exists {
		return err
	}
	return fs.Remove(path)
}
