//go:build windows

// lock_windows.go implements advisory file locking on Windows systems.
package dirstore

import (
	"io"
	"os"
)

// fileLock holds an exclusively opened lock file until closed.
type fileLock struct {
	f *os.File
}

// tryLockFile attempts a non-blocking exclusive lock on the named file.
// On Windows an exclusive create stands in for flock; a sharing
// violation reports the lock as held elsewhere.
func tryLockFile(name string) (h io.Closer, held bool, err error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, fileMode)
	if os.IsExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &fileLock{f: f}, true, nil
}

func (l *fileLock) Close() error {
	name := l.f.Name()
	err := l.f.Close()
	_ = os.Remove(name)
	return err
}
