package vfs

import (
	"github.com/corevfs/corevfs/internal/logger"
	"github.com/corevfs/corevfs/pkg/vfs/errors"
)

// RegisterFilesystemType adds a named filesystem driver to the registry.
// The configure callback receives the fresh type entry and installs its
// lifecycle operations; it may perform arbitrary driver setup.
//
// Returns AlreadyExists if the name is taken, and IOError if configure
// fails, in which case the registration is rolled back. Types are never
// unregistered.
func (v *VFS) RegisterFilesystemType(name string, configure ConfigureFunc) error {
	if name == "" {
		return errors.NewNoSuchFilesystemError(name)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.fsTypes[name]; exists {
		return errors.NewAlreadyExistsError(name)
	}

	ft := &FilesystemType{name: name}
	v.fsTypes[name] = ft

	if err := configure(ft); err != nil {
		delete(v.fsTypes, name)
		return errors.NewIOError("filesystem type configuration failed: " + err.Error())
	}

	logger.Debug("registered filesystem type", "type", name)
	return nil
}

// lookupFilesystemType returns the registered type entry for name.
// Caller must hold v.mu.
func (v *VFS) lookupFilesystemType(name string) (*FilesystemType, error) {
	ft, exists := v.fsTypes[name]
	if !exists {
		return nil, errors.NewNoSuchFilesystemError(name)
	}
	return ft, nil
}

// FilesystemTypes returns the names of all registered filesystem types.
// The returned slice is a copy and safe to modify.
func (v *VFS) FilesystemTypes() []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	names := make([]string, 0, len(v.fsTypes))
	for name := range v.fsTypes {
		names = append(names, name)
	}
	return names
}
