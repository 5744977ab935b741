package dirstore

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestFSDirectory_CreateOpenRoundTrip(t *testing.T) {
	for _, useMmap := range []bool{false, true} {
		name := "plain"
		if useMmap {
			name = "mmap"
		}
		t.Run(name, func(t *testing.T) {
			d, err := NewFSDirectory(t.TempDir(), useMmap)
			if err != nil {
				t.Fatalf("NewFSDirectory failed: %v", err)
			}
			defer d.Close()

			w, err := d.Create("file")
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			if _, err := w.Write([]byte("content")); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			if err := w.Sync(); err != nil {
				t.Fatalf("Sync failed: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			r, err := d.Open("file")
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer r.Close()
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll failed: %v", err)
			}
			if string(got) != "content" {
				t.Errorf("content = %q, want %q", got, "content")
			}
			if r.Size() != 7 {
				t.Errorf("Size = %d, want 7", r.Size())
			}
		})
	}
}

func TestFSDirectory_ListAllSkipsLockFiles(t *testing.T) {
	root := t.TempDir()
	d, err := NewFSDirectory(root, false)
	if err != nil {
		t.Fatalf("NewFSDirectory failed: %v", err)
	}
	defer d.Close()

	w, _ := d.Create("data")
	w.Close()
	if _, err := d.MakeLock("write"); err != nil {
		t.Fatalf("MakeLock failed: %v", err)
	}

	names, err := d.ListAll()
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(names) != 1 || names[0] != "data" {
		t.Errorf("ListAll = %v, want [data]", names)
	}
}

func TestFSDirectory_LockDenialAcrossHandles(t *testing.T) {
	root := t.TempDir()
	d, err := NewFSDirectory(root, false)
	if err != nil {
		t.Fatalf("NewFSDirectory failed: %v", err)
	}
	defer d.Close()

	l, err := d.MakeLock("L")
	if err != nil {
		t.Fatalf("MakeLock failed: %v", err)
	}
	if l == nil {
		t.Fatal("first MakeLock should succeed")
	}

	// Same directory handle: tracked in-process.
	dup, err := d.MakeLock("L")
	if err != nil {
		t.Fatalf("second MakeLock errored: %v", err)
	}
	if dup != nil {
		t.Fatal("second MakeLock should be denied")
	}

	if err := d.ClearLock("L"); err != nil {
		t.Fatalf("ClearLock failed: %v", err)
	}
	// The lock file is gone once released.
	if _, err := os.Stat(filepath.Join(root, "L"+lockSuffix)); !os.IsNotExist(err) {
		t.Errorf("lock file should be removed after ClearLock, stat err = %v", err)
	}
}

func TestFSDirectory_CrashRemovesUnsyncedFiles(t *testing.T) {
	d, err := NewFSDirectory(t.TempDir(), false)
	if err != nil {
		t.Fatalf("NewFSDirectory failed: %v", err)
	}
	defer d.Close()

	ws, _ := d.Create("synced")
	ws.Write([]byte("durable"))
	ws.Sync()
	ws.Close()

	wu, _ := d.Create("unsynced")
	wu.Write([]byte("volatile"))
	wu.Close()

	if err := d.Crash(); err != nil {
		t.Fatalf("Crash failed: %v", err)
	}
	if !d.Exists("synced") {
		t.Error("synced file should survive a crash")
	}
	if d.Exists("unsynced") {
		t.Error("unsynced file should not survive a crash")
	}
}

func TestFSDirectory_ClosedOps(t *testing.T) {
	d, err := NewFSDirectory(t.TempDir(), false)
	if err != nil {
		t.Fatalf("NewFSDirectory failed: %v", err)
	}
	w, _ := d.Create("kept")
	w.Write([]byte("survivor"))
	w.Close()
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := d.Create("f"); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("Create after close = %v, want ErrClosed", err)
	}
	if err := d.Remove("kept"); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("Remove after close = %v, want ErrClosed", err)
	}
	if _, err := d.MakeLock("L"); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("MakeLock after close = %v, want ErrClosed", err)
	}

	// Reads stay available so artifact collection can snapshot the
	// surviving contents.
	names, err := d.ListAll()
	if err != nil {
		t.Fatalf("ListAll after close failed: %v", err)
	}
	if len(names) != 1 || names[0] != "kept" {
		t.Errorf("ListAll after close = %v, want [kept]", names)
	}
	r, err := d.Open("kept")
	if err != nil {
		t.Fatalf("Open after close failed: %v", err)
	}
	defer r.Close()
	got, _ := io.ReadAll(r)
	if string(got) != "survivor" {
		t.Errorf("content after close = %q, want %q", got, "survivor")
	}
}

func TestFSDirectory_ReadAtNegativeOffset(t *testing.T) {
	for _, useMmap := range []bool{false, true} {
		name := "plain"
		if useMmap {
			name = "mmap"
		}
		t.Run(name, func(t *testing.T) {
			d, err := NewFSDirectory(t.TempDir(), useMmap)
			if err != nil {
				t.Fatalf("NewFSDirectory failed: %v", err)
			}
			defer d.Close()

			w, _ := d.Create("f")
			w.Write([]byte("data"))
			w.Close()

			r, err := d.Open("f")
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer r.Close()
			n, err := r.ReadAt(make([]byte, 4), -1)
			if n != 0 || err == nil {
				t.Errorf("ReadAt(-1) = %d, %v; want 0 and an error", n, err)
			}
		})
	}
}

func TestFSDirectory_CloseReleasesLocks(t *testing.T) {
	root := t.TempDir()
	d, err := NewFSDirectory(root, false)
	if err != nil {
		t.Fatalf("NewFSDirectory failed: %v", err)
	}
	if _, err := d.MakeLock("held"); err != nil {
		t.Fatalf("MakeLock failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// A fresh directory over the same root can take the lock again.
	d2, err := NewFSDirectory(root, false)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer d2.Close()
	l, err := d2.MakeLock("held")
	if err != nil {
		t.Fatalf("MakeLock after close failed: %v", err)
	}
	if l == nil {
		t.Error("lock should be acquirable after the holder closed")
	}
}
