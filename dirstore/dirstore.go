// Package dirstore defines the storage-directory abstraction consumed by
// the fault-injection layer, along with concrete on-disk and in-memory
// implementations.
//
// A Directory is a flat namespace of named files plus advisory named
// locks. It deliberately exposes the capability set a test harness needs
// ({open, read, write, delete, list, lock, close, crash}) and nothing
// more: it is not a filesystem.
package dirstore

import (
	"io"
	"os"
)

// Directory is a flat collection of named files.
//
// Implementations must be safe for concurrent use. Crash is a
// test-harness hook: it abandons or corrupts in-flight (unsynced) state
// per the implementation's semantics and is never called in production
// paths.
type Directory interface {
	// Open opens an existing file for reading.
	Open(name string) (FileReader, error)

	// Create creates a new writable file, truncating any existing one.
	Create(name string) (FileWriter, error)

	// Remove deletes a file.
	Remove(name string) error

	// ListAll lists the names of all files in the directory.
	ListAll() ([]string, error)

	// Exists reports whether the named file exists.
	Exists(name string) bool

	// MakeLock attempts to acquire the named advisory lock.
	// It returns (nil, nil) when the lock is currently held elsewhere;
	// a non-nil error indicates the attempt itself failed.
	MakeLock(name string) (Lock, error)

	// ClearLock releases the named advisory lock.
	ClearLock(name string) error

	// Crash simulates a process crash: unsynced state is dropped or
	// corrupted per implementation semantics.
	Crash() error

	// Close releases all resources held by the directory. Mutating
	// operations and lock acquisition fail afterwards, but Open, ListAll,
	// and Exists keep working so post-run artifact collection can still
	// snapshot the surviving contents.
	Close() error
}

// FileReader is an open read handle into a directory file.
type FileReader interface {
	io.Reader
	io.ReaderAt
	io.Closer

	// Size returns the file size in bytes.
	Size() int64
}

// FileWriter is an open write handle into a directory file.
//
// Data is not durable until Sync returns. Close finalizes the file.
type FileWriter interface {
	io.Writer
	io.Closer

	// Sync flushes written data to stable storage.
	Sync() error
}

// Lock is a held advisory lock. Releasing it is done through the owning
// directory's ClearLock; Close is a convenience for backends whose lock
// handles own resources (e.g. an flock'ed file descriptor).
type Lock interface {
	// Name returns the lock name the handle was acquired under.
	Name() string

	io.Closer
}

// fileMode is the permission used for files created by FSDirectory.
const fileMode os.FileMode = 0644
