// Package harness collects reproducibility artifacts for failed
// fault-injection runs.
//
// On failure a bundle is written containing:
//   - run.json: complete run configuration (flags, seed, versions)
//   - leaks.txt: leaked locks and close outcomes per wrapper
//   - snapshot.tar.zst: the surviving directory contents
//
// A failed run is only useful if it can be replayed, and replaying needs
// the seed, the flags, and the bytes the code under test left behind.
package harness

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/aalhour/mockdir/dirstore"
)

// RunInfo contains metadata about a harness run.
type RunInfo struct {
	// Run identification
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`

	// Version info
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`

	// Reproducibility
	Seed int64 `json:"seed"`

	// Run configuration
	Flags map[string]any `json:"flags"`

	// Result
	Passed  bool   `json:"passed"`
	Error   string `json:"error,omitempty"`
	Elapsed string `json:"elapsed,omitempty"`
}

// ArtifactBundle accumulates run evidence and writes it out on failure.
type ArtifactBundle struct {
	// RunDir is the output directory for artifacts.
	RunDir string

	// RunInfo is the metadata written to run.json.
	RunInfo RunInfo

	leakReport strings.Builder
}

// NewArtifactBundle creates a bundle rooted at runDir; an empty runDir
// gets a fresh temporary directory.
func NewArtifactBundle(runDir, name string, seed int64) (*ArtifactBundle, error) {
	if runDir == "" {
		var err error
		runDir, err = os.MkdirTemp("", "mockdir-artifacts-*")
		if err != nil {
			return nil, fmt.Errorf("create artifact dir: %w", err)
		}
	} else {
		if err := os.MkdirAll(runDir, 0755); err != nil {
			return nil, fmt.Errorf("create run dir: %w", err)
		}
	}
	return &ArtifactBundle{
		RunDir: runDir,
		RunInfo: RunInfo{
			Name:      name,
			Timestamp: time.Now().UTC(),
			GoVersion: runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			Seed:      seed,
			Flags:     make(map[string]any),
		},
	}, nil
}

// SetFlag records a flag value.
func (ab *ArtifactBundle) SetFlag(name string, value any) {
	ab.RunInfo.Flags[name] = value
}

// SetFlags records multiple flags at once.
func (ab *ArtifactBundle) SetFlags(flags map[string]any) {
	maps.Copy(ab.RunInfo.Flags, flags)
}

// AddLeak records one leaked lock or close failure line for leaks.txt.
func (ab *ArtifactBundle) AddLeak(format string, args ...any) {
	fmt.Fprintf(&ab.leakReport, format+"\n", args...)
}

// RecordSuccess marks the run as passed; only run.json is written.
func (ab *ArtifactBundle) RecordSuccess(elapsed time.Duration) error {
	ab.RunInfo.Passed = true
	ab.RunInfo.Elapsed = elapsed.String()
	return ab.writeRunJSON()
}

// RecordFailure marks the run as failed and collects all artifacts,
// snapshotting dir (which may be nil if no directory survived).
func (ab *ArtifactBundle) RecordFailure(runErr error, elapsed time.Duration, dir dirstore.Directory) error {
	ab.RunInfo.Passed = false
	ab.RunInfo.Error = runErr.Error()
	ab.RunInfo.Elapsed = elapsed.String()

	var errs []string
	if err := ab.writeRunJSON(); err != nil {
		errs = append(errs, fmt.Sprintf("run.json: %v", err))
	}
	if ab.leakReport.Len() > 0 {
		path := filepath.Join(ab.RunDir, "leaks.txt")
		if err := os.WriteFile(path, []byte(ab.leakReport.String()), 0644); err != nil {
			errs = append(errs, fmt.Sprintf("leaks.txt: %v", err))
		}
	}
	if dir != nil {
		if err := ab.writeSnapshot(dir); err != nil {
			errs = append(errs, fmt.Sprintf("snapshot: %v", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("artifact collection errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// writeRunJSON writes the run metadata to run.json.
func (ab *ArtifactBundle) writeRunJSON() error {
	data, err := json.MarshalIndent(ab.RunInfo, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(ab.RunDir, "run.json")
	return os.WriteFile(path, data, 0644)
}

// writeSnapshot archives every file in dir into snapshot.tar.zst.
func (ab *ArtifactBundle) writeSnapshot(dir dirstore.Directory) (err error) {
	names, err := dir.ListAll()
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	out, err := os.Create(filepath.Join(ab.RunDir, "snapshot.tar.zst"))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	zw, err := zstd.NewWriter(out)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	tw := tar.NewWriter(zw)

	for _, name := range names {
		if err := archiveFile(tw, dir, name); err != nil {
			return fmt.Errorf("archive %s: %w", name, err)
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return zw.Close()
}

func archiveFile(tw *tar.Writer, dir dirstore.Directory, name string) (err error) {
	r, err := dir.Open(name)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	hdr := &tar.Header{
		Name:    name,
		Mode:    0644,
		Size:    r.Size(),
		ModTime: time.Now().UTC(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.CopyN(tw, r, r.Size())
	return err
}
