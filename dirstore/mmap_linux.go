//go:build linux

// mmap_linux.go provides memory-mapped read handles on Linux.
package dirstore

import (
	"io"
	"io/fs"
	"os"
	"syscall"
)

// mmapSupported indicates whether memory-mapped reads are available.
const mmapSupported = true

// openMmapReader maps the named file read-only and serves reads from the
// mapping. Empty files fall back to a plain reader since mmap of length
// zero is invalid.
func openMmapReader(path string) (FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		_ = f.Close()
		return openFileReader(path)
	}
	data, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	// The mapping outlives the descriptor.
	_ = f.Close()
	return &mmapReader{path: path, data: data}, nil
}

type mmapReader struct {
	path string
	data []byte
	off  int64
}

func (r *mmapReader) Read(p []byte) (int, error) {
	if r.off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.off:])
	r.off += int64(n)
	return n, nil
}

func (r *mmapReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, &fs.PathError{Op: "readat", Path: r.path, Err: fs.ErrInvalid}
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

func (r *mmapReader) Close() error {
	if r.data == nil {
		return nil
	}
	err := syscall.Munmap(r.data)
	r.data = nil
	return err
}

func (r *mmapReader) Size() int64 { return int64(len(r.data)) }
