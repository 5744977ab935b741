//go:build !windows

// lock.go implements advisory file locking on Unix systems via flock(2).
package dirstore

import (
	"io"
	"os"
	"syscall"
)

// fileLock holds an flock'ed file descriptor until closed.
type fileLock struct {
	f *os.File
}

// tryLockFile attempts a non-blocking exclusive lock on the named file.
// held is false (with a nil handle and nil error) when the lock is
// currently owned elsewhere.
func tryLockFile(name string) (h io.Closer, held bool, err error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, fileMode)
	if err != nil {
		return nil, false, err
	}
	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == syscall.EWOULDBLOCK {
		_ = f.Close()
		return nil, false, nil
	}
	if err != nil {
		_ = f.Close()
		return nil, false, err
	}
	return &fileLock{f: f}, true, nil
}

func (l *fileLock) Close() error {
	// Release the lock (ignore error - file will be closed anyway)
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	return l.f.Close()
}
