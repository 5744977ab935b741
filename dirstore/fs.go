package dirstore

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// lockSuffix is appended to lock names to form the on-disk lock file.
const lockSuffix = ".lock"

// FSDirectory is an on-disk Directory rooted at a single path.
//
// Files live directly under the root; named locks are flock-style lock
// files next to them. Crash simulation removes files created since their
// last sync, modeling loss of never-durable data.
type FSDirectory struct {
	root    string
	useMmap bool

	mu       sync.Mutex
	locks    map[string]io.Closer
	unsynced map[string]struct{}
	closed   bool
}

// NewFSDirectory opens (creating if needed) an on-disk directory at root.
// When useMmap is true and the platform supports it, reads go through
// memory-mapped files.
func NewFSDirectory(root string, useMmap bool) (*FSDirectory, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	return &FSDirectory{
		root:     root,
		useMmap:  useMmap && mmapSupported,
		locks:    make(map[string]io.Closer),
		unsynced: make(map[string]struct{}),
	}, nil
}

// Root returns the directory's root path.
func (d *FSDirectory) Root() string { return d.root }

func (d *FSDirectory) path(name string) string {
	return filepath.Join(d.root, name)
}

func (d *FSDirectory) checkOpen(op, name string) error {
	if d.closed {
		return &fs.PathError{Op: op, Path: name, Err: fs.ErrClosed}
	}
	return nil
}

// Open opens an existing file for reading. Open keeps working after
// Close so surviving contents can be snapshotted.
func (d *FSDirectory) Open(name string) (FileReader, error) {
	d.mu.Lock()
	useMmap := d.useMmap
	d.mu.Unlock()
	if useMmap {
		return openMmapReader(d.path(name))
	}
	return openFileReader(d.path(name))
}

// Create creates a new writable file, truncating any existing one.
func (d *FSDirectory) Create(name string) (FileWriter, error) {
	d.mu.Lock()
	if err := d.checkOpen("create", name); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	d.unsynced[name] = struct{}{}
	d.mu.Unlock()

	f, err := os.OpenFile(d.path(name), os.O_RDWR|os.O_CREATE|os.O_TRUNC, fileMode)
	if err != nil {
		d.mu.Lock()
		delete(d.unsynced, name)
		d.mu.Unlock()
		return nil, err
	}
	return &fsWriter{dir: d, name: name, f: f}, nil
}

// Remove deletes a file.
func (d *FSDirectory) Remove(name string) error {
	d.mu.Lock()
	if err := d.checkOpen("remove", name); err != nil {
		d.mu.Unlock()
		return err
	}
	delete(d.unsynced, name)
	d.mu.Unlock()
	return os.Remove(d.path(name))
}

// ListAll lists all file names, excluding lock files. ListAll keeps
// working after Close so surviving contents can be snapshotted.
func (d *FSDirectory) ListAll() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), lockSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Exists reports whether the named file exists.
func (d *FSDirectory) Exists(name string) bool {
	_, err := os.Stat(d.path(name))
	return err == nil
}

// MakeLock attempts to acquire the named lock via an flock'ed lock file.
// Returns (nil, nil) when the lock is held elsewhere.
func (d *FSDirectory) MakeLock(name string) (Lock, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen("lock", name); err != nil {
		return nil, err
	}
	if _, held := d.locks[name]; held {
		return nil, nil
	}
	h, held, err := tryLockFile(d.path(name + lockSuffix))
	if err != nil {
		return nil, err
	}
	if !held {
		return nil, nil
	}
	d.locks[name] = h
	return &fsLock{dir: d, name: name}, nil
}

// ClearLock releases the named lock. Releasing a lock that is not held
// is not an error.
func (d *FSDirectory) ClearLock(name string) error {
	d.mu.Lock()
	h, held := d.locks[name]
	delete(d.locks, name)
	d.mu.Unlock()
	if !held {
		return nil
	}
	err := h.Close()
	_ = os.Remove(d.path(name + lockSuffix))
	return err
}

// Crash removes every file created since its last sync.
func (d *FSDirectory) Crash() error {
	d.mu.Lock()
	victims := make([]string, 0, len(d.unsynced))
	for name := range d.unsynced {
		victims = append(victims, name)
	}
	d.unsynced = make(map[string]struct{})
	d.mu.Unlock()

	for _, name := range victims {
		if err := os.Remove(d.path(name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Close releases held lock handles and marks the directory closed.
// Mutating operations and lock acquisition fail afterwards; reads stay
// available.
func (d *FSDirectory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	var firstErr error
	for name, h := range d.locks {
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.locks, name)
	}
	return firstErr
}

// markSynced records that a file's content reached stable storage.
func (d *FSDirectory) markSynced(name string) {
	d.mu.Lock()
	delete(d.unsynced, name)
	d.mu.Unlock()
}

// openFileReader opens a plain (non-mmap) read handle.
func openFileReader(path string) (FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &fsReader{f: f, size: info.Size()}, nil
}

type fsReader struct {
	f    *os.File
	size int64
}

func (r *fsReader) Read(p []byte) (int, error) { return r.f.Read(p) }

func (r *fsReader) ReadAt(p []byte, off int64) (int, error) { return r.f.ReadAt(p, off) }

func (r *fsReader) Close() error { return r.f.Close() }

func (r *fsReader) Size() int64 { return r.size }

type fsWriter struct {
	dir  *FSDirectory
	name string
	f    *os.File
}

func (w *fsWriter) Write(p []byte) (int, error) { return w.f.Write(p) }

func (w *fsWriter) Sync() error {
	if err := w.f.Sync(); err != nil {
		return err
	}
	w.dir.markSynced(w.name)
	return nil
}

func (w *fsWriter) Close() error { return w.f.Close() }

type fsLock struct {
	dir  *FSDirectory
	name string
}

func (l *fsLock) Name() string { return l.name }

func (l *fsLock) Close() error { return l.dir.ClearLock(l.name) }
