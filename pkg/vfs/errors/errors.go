// Package errors provides error types and error codes for the VFS core.
// This is a leaf package with no internal dependencies, designed to be
// imported by both the core and filesystem driver implementations without
// causing circular imports.
package errors

import (
	"fmt"
)

// ErrorCode represents the type of error that occurred.
type ErrorCode int

const (
	// ErrNotFound indicates the requested entity does not exist
	// (a path component, a filesystem type, a superblock).
	ErrNotFound ErrorCode = iota + 1

	// ErrAlreadyExists indicates the entity already exists
	// (e.g. registering a filesystem type twice).
	ErrAlreadyExists

	// ErrAlreadyMounted indicates the device already has a live superblock.
	ErrAlreadyMounted

	// ErrNoSuchFilesystem indicates no filesystem type with that name
	// is registered.
	ErrNoSuchFilesystem

	// ErrNotMounted indicates an unmount was attempted on a superblock
	// that is not in the mounted state.
	ErrNotMounted

	// ErrNoMemory indicates an allocation limit was hit, either inside a
	// backend callback or in one of the core tables.
	ErrNoMemory

	// ErrTooManyDentries indicates the dentry table is full of pinned
	// (mount point) entries and nothing can be evicted.
	ErrTooManyDentries

	// ErrTooManyVnodes indicates the vnode cache reached its configured
	// limit.
	ErrTooManyVnodes

	// ErrBusy indicates an unmount is blocked by nested mount points.
	ErrBusy

	// ErrCorrupt indicates a broken internal invariant: a vnode that
	// should exist disappeared, a cache removal matched the wrong entry,
	// or live vnodes survive an unmount precondition check. Callers must
	// treat this as non-recoverable.
	ErrCorrupt

	// ErrNotDirectory indicates a path component or mount point resolved
	// to something other than a directory.
	ErrNotDirectory

	// ErrAccessDenied indicates a mount was attempted on a dentry that is
	// already a mount point.
	ErrAccessDenied

	// ErrNotImplemented indicates an operation the core does not support,
	// such as remounting "/".
	ErrNotImplemented

	// ErrIOError indicates an opaque backend failure.
	ErrIOError

	// ErrNoRoot indicates a non-root mount was attempted before anything
	// is mounted at "/".
	ErrNoRoot

	// ErrInvalidFilesystem indicates the filesystem type's probe callback
	// rejected the device.
	ErrInvalidFilesystem
)

// String returns a human-readable name for the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrNotFound:
		return "NotFound"
	case ErrAlreadyExists:
		return "AlreadyExists"
	case ErrAlreadyMounted:
		return "AlreadyMounted"
	case ErrNoSuchFilesystem:
		return "NoSuchFilesystem"
	case ErrNotMounted:
		return "NotMounted"
	case ErrNoMemory:
		return "NoMemory"
	case ErrTooManyDentries:
		return "TooManyDentries"
	case ErrTooManyVnodes:
		return "TooManyVnodes"
	case ErrBusy:
		return "Busy"
	case ErrCorrupt:
		return "Corrupt"
	case ErrNotDirectory:
		return "NotDirectory"
	case ErrAccessDenied:
		return "AccessDenied"
	case ErrNotImplemented:
		return "NotImplemented"
	case ErrIOError:
		return "IOError"
	case ErrNoRoot:
		return "NoRoot"
	case ErrInvalidFilesystem:
		return "InvalidFilesystem"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// VFSError represents a VFS core error with an error code.
type VFSError struct {
	Code    ErrorCode
	Message string
	Path    string
}

// Error implements the error interface.
func (e *VFSError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path: %s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ============================================================================
// Factory Functions
// ============================================================================

// NewNotFoundError creates a NotFound error.
func NewNotFoundError(path, entityType string) *VFSError {
	return &VFSError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", entityType),
		Path:    path,
	}
}

// NewAlreadyExistsError creates an AlreadyExists error.
func NewAlreadyExistsError(name string) *VFSError {
	return &VFSError{
		Code:    ErrAlreadyExists,
		Message: "already exists",
		Path:    name,
	}
}

// NewAlreadyMountedError creates an AlreadyMounted error.
func NewAlreadyMountedError(device string) *VFSError {
	return &VFSError{
		Code:    ErrAlreadyMounted,
		Message: fmt.Sprintf("device %s already has a live superblock", device),
	}
}

// NewNoSuchFilesystemError creates a NoSuchFilesystem error.
func NewNoSuchFilesystemError(name string) *VFSError {
	return &VFSError{
		Code:    ErrNoSuchFilesystem,
		Message: fmt.Sprintf("filesystem type %q is not registered", name),
	}
}

// NewNotMountedError creates a NotMounted error.
func NewNotMountedError(device string) *VFSError {
	return &VFSError{
		Code:    ErrNotMounted,
		Message: fmt.Sprintf("device %s is not mounted", device),
	}
}

// NewNoMemoryError creates a NoMemory error.
func NewNoMemoryError(what string) *VFSError {
	return &VFSError{
		Code:    ErrNoMemory,
		Message: fmt.Sprintf("allocation failed: %s", what),
	}
}

// NewTooManyDentriesError creates a TooManyDentries error.
func NewTooManyDentriesError() *VFSError {
	return &VFSError{
		Code:    ErrTooManyDentries,
		Message: "dentry table is full of mount points",
	}
}

// NewTooManyVnodesError creates a TooManyVnodes error.
func NewTooManyVnodesError(limit int) *VFSError {
	return &VFSError{
		Code:    ErrTooManyVnodes,
		Message: fmt.Sprintf("vnode cache limit reached (max: %d)", limit),
	}
}

// NewBusyError creates a Busy error.
func NewBusyError(reason string) *VFSError {
	return &VFSError{
		Code:    ErrBusy,
		Message: reason,
	}
}

// NewCorruptError creates a Corrupt error.
func NewCorruptError(detail string) *VFSError {
	return &VFSError{
		Code:    ErrCorrupt,
		Message: detail,
	}
}

// NewNotDirectoryError creates a NotDirectory error.
func NewNotDirectoryError(path string) *VFSError {
	return &VFSError{
		Code:    ErrNotDirectory,
		Message: "not a directory",
		Path:    path,
	}
}

// NewAccessDeniedError creates an AccessDenied error.
func NewAccessDeniedError(path string) *VFSError {
	return &VFSError{
		Code:    ErrAccessDenied,
		Message: "already a mount point",
		Path:    path,
	}
}

// NewNotImplementedError creates a NotImplemented error.
func NewNotImplementedError(operation string) *VFSError {
	return &VFSError{
		Code:    ErrNotImplemented,
		Message: fmt.Sprintf("operation not implemented: %s", operation),
	}
}

// NewIOError creates an IOError wrapping an opaque backend failure.
func NewIOError(detail string) *VFSError {
	return &VFSError{
		Code:    ErrIOError,
		Message: detail,
	}
}

// NewNoRootError creates a NoRoot error.
func NewNoRootError(path string) *VFSError {
	return &VFSError{
		Code:    ErrNoRoot,
		Message: "nothing is mounted at /",
		Path:    path,
	}
}

// NewInvalidFilesystemError creates an InvalidFilesystem error.
func NewInvalidFilesystemError(fsType, device string) *VFSError {
	return &VFSError{
		Code:    ErrInvalidFilesystem,
		Message: fmt.Sprintf("device %s does not hold a valid %s filesystem", device, fsType),
	}
}

// ============================================================================
// Error Type Checking Helpers
// ============================================================================

// CodeOf returns the error code of a VFSError, or 0 for any other error.
func CodeOf(err error) ErrorCode {
	if vfsErr, ok := err.(*VFSError); ok {
		return vfsErr.Code
	}
	return 0
}

// IsNotFoundError returns true if the error is a NotFound error.
func IsNotFoundError(err error) bool {
	return CodeOf(err) == ErrNotFound
}

// IsBusyError returns true if the error is a Busy error.
func IsBusyError(err error) bool {
	return CodeOf(err) == ErrBusy
}

// IsCorruptError returns true if the error indicates a broken invariant.
func IsCorruptError(err error) bool {
	return CodeOf(err) == ErrCorrupt
}

// IsNotDirectoryError returns true if the error is a NotDirectory error.
func IsNotDirectoryError(err error) bool {
	return CodeOf(err) == ErrNotDirectory
}

// IsIOError returns true if the error is an opaque backend failure.
func IsIOError(err error) bool {
	return CodeOf(err) == ErrIOError
}
