package dirstore

import (
	"bytes"
	"io"
	"io/fs"
	"sort"
	"sync"

	"github.com/aalhour/mockdir/internal/compress"
)

// MemDirectory is an in-memory Directory.
//
// Finalized file contents are stored compressed so that large randomized
// test runs holding many directories stay within a reasonable memory
// footprint. Crash drops files that were never synced and truncates the
// rest to their last synced prefix.
type MemDirectory struct {
	codec compress.Type

	mu     sync.Mutex
	files  map[string]*memFile
	locks  map[string]*memLock
	closed bool
}

// memFile is the published (reader-visible) state of one file.
type memFile struct {
	blob      []byte // codec-encoded full content
	size      int64  // uncompressed length
	syncedLen int64  // prefix covered by the last Sync
}

// NewMemDirectory creates an empty in-memory directory using the given
// codec for finalized content. compress.None is valid.
func NewMemDirectory(codec compress.Type) *MemDirectory {
	return &MemDirectory{
		codec: codec,
		files: make(map[string]*memFile),
		locks: make(map[string]*memLock),
	}
}

func (d *MemDirectory) pathErr(op, name string, err error) error {
	return &fs.PathError{Op: op, Path: name, Err: err}
}

// Open opens an existing file for reading. The returned reader holds a
// decoded copy of the content at open time. Open keeps working after
// Close so surviving contents can be snapshotted.
func (d *MemDirectory) Open(name string) (FileReader, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.files[name]
	if !ok {
		return nil, d.pathErr("open", name, fs.ErrNotExist)
	}
	data, err := compress.Decode(d.codec, f.blob)
	if err != nil {
		return nil, d.pathErr("open", name, err)
	}
	return &memReader{name: name, data: data}, nil
}

// Create creates a new writable file, truncating any existing one.
func (d *MemDirectory) Create(name string) (FileWriter, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, d.pathErr("create", name, fs.ErrClosed)
	}
	d.files[name] = &memFile{}
	return &memWriter{dir: d, name: name}, nil
}

// Remove deletes a file.
func (d *MemDirectory) Remove(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return d.pathErr("remove", name, fs.ErrClosed)
	}
	if _, ok := d.files[name]; !ok {
		return d.pathErr("remove", name, fs.ErrNotExist)
	}
	delete(d.files, name)
	return nil
}

// ListAll returns all file names in sorted order. ListAll keeps working
// after Close so surviving contents can be snapshotted.
func (d *MemDirectory) ListAll() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.files))
	for name := range d.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether the named file exists.
func (d *MemDirectory) Exists(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.files[name]
	return ok
}

// MakeLock attempts to acquire the named lock. Returns (nil, nil) when
// the lock is already held.
func (d *MemDirectory) MakeLock(name string) (Lock, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, d.pathErr("lock", name, fs.ErrClosed)
	}
	if _, held := d.locks[name]; held {
		return nil, nil
	}
	l := &memLock{dir: d, name: name}
	d.locks[name] = l
	return l, nil
}

// ClearLock releases the named lock. Releasing a lock that is not held
// is not an error.
func (d *MemDirectory) ClearLock(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.locks, name)
	return nil
}

// Crash simulates a process crash: files never synced disappear, files
// with unsynced tails are truncated to the synced prefix.
func (d *MemDirectory) Crash() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for name, f := range d.files {
		switch {
		case f.syncedLen == 0:
			delete(d.files, name)
		case f.syncedLen < f.size:
			data, err := compress.Decode(d.codec, f.blob)
			if err != nil {
				return d.pathErr("crash", name, err)
			}
			blob, err := compress.Encode(d.codec, data[:f.syncedLen])
			if err != nil {
				return d.pathErr("crash", name, err)
			}
			f.blob = blob
			f.size = f.syncedLen
		}
	}
	return nil
}

// Close releases the directory. Mutating operations and lock
// acquisition fail afterwards; reads stay available.
func (d *MemDirectory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// publish installs a writer's buffer as the visible content of a file.
func (d *MemDirectory) publish(name string, buf []byte, syncedLen int64) error {
	blob, err := compress.Encode(d.codec, buf)
	if err != nil {
		return d.pathErr("write", name, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.files[name]
	if !ok {
		// Removed while the writer was open; drop the content.
		return nil
	}
	f.blob = blob
	f.size = int64(len(buf))
	f.syncedLen = syncedLen
	return nil
}

type memReader struct {
	name string
	data []byte
	off  int64
}

func (r *memReader) Read(p []byte) (int, error) {
	if r.off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.off:])
	r.off += int64(n)
	return n, nil
}

func (r *memReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, &fs.PathError{Op: "readat", Path: r.name, Err: fs.ErrInvalid}
	}
	if off > int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (r *memReader) Close() error { return nil }

func (r *memReader) Size() int64 { return int64(len(r.data)) }

type memWriter struct {
	dir       *MemDirectory
	name      string
	buf       bytes.Buffer
	syncedLen int64
	closed    bool
}

func (w *memWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, w.dir.pathErr("write", w.name, fs.ErrClosed)
	}
	return w.buf.Write(p)
}

func (w *memWriter) Sync() error {
	if w.closed {
		return w.dir.pathErr("sync", w.name, fs.ErrClosed)
	}
	w.syncedLen = int64(w.buf.Len())
	return w.dir.publish(w.name, w.buf.Bytes(), w.syncedLen)
}

func (w *memWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.dir.publish(w.name, w.buf.Bytes(), w.syncedLen)
}

type memLock struct {
	dir  *MemDirectory
	name string
}

func (l *memLock) Name() string { return l.name }

func (l *memLock) Close() error { return l.dir.ClearLock(l.name) }
