//go:build !linux

// mmap_other.go stubs memory-mapped reads on platforms where they are
// not wired up; reads fall back to plain file handles.
package dirstore

// mmapSupported indicates whether memory-mapped reads are available.
const mmapSupported = false

func openMmapReader(path string) (FileReader, error) {
	return openFileReader(path)
}
