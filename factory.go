package mockdir

import (
	"runtime"

	"github.com/aalhour/mockdir/dirstore"
	"github.com/aalhour/mockdir/internal/compress"
	"github.com/aalhour/mockdir/internal/logging"
)

// DirectoryFactory builds one FaultPolicy per shard-like unit of work
// and wraps backend directories with it. Every wrapper it produces
// shares the policy's random source and is added to the process-wide
// Registry.
type DirectoryFactory struct {
	shardID       string
	settings      Settings
	policy        *FaultPolicy
	logger        logging.Logger
	registry      *WrapperRegistry
	captureStacks bool
}

// NewDirectoryFactory constructs the factory and its policy. logger may
// be logging.Discard.
func NewDirectoryFactory(shardID string, settings Settings, logger logging.Logger, seed int64) *DirectoryFactory {
	if logger == nil {
		logger = logging.Discard
	}
	policy := NewFaultPolicy(shardID, settings, seed)
	logger.Debugf("fault policy for shard %s: seed=%d throttle=%s prevent_double_write=%t no_delete_open_file=%t crash=%t",
		shardID, seed, policy.Throttle(), policy.PreventDoubleWrite(), policy.ProtectOpenFileOnDelete(), policy.CrashEnabled())
	return &DirectoryFactory{
		shardID:  shardID,
		settings: settings,
		policy:   policy,
		logger:   logger,
		registry: Registry,
	}
}

// Policy returns the factory's shared policy.
func (f *DirectoryFactory) Policy() *FaultPolicy { return f.policy }

// SetCaptureStacks switches lock diagnostics from call-site tokens to
// full stack captures for wrappers created afterwards. Stack capture is
// noticeably more expensive; reserve it for leak hunts.
func (f *DirectoryFactory) SetCaptureStacks(on bool) { f.captureStacks = on }

// Wrap decorates a backend directory with the factory's policy,
// registers the wrapper, and returns it. The wrapper takes ownership of
// the backend handle.
func (f *DirectoryFactory) Wrap(backend dirstore.Directory) *FaultInjectingDirectory {
	w := newFaultInjectingDirectory(backend, f.policy, f.logger, f.captureStacks)
	f.registry.Register(w)
	return w
}

// WrapAll wraps each element in place, preserving order, and returns the
// same slice.
func (f *DirectoryFactory) WrapAll(backends []dirstore.Directory) []dirstore.Directory {
	for i, b := range backends {
		backends[i] = f.Wrap(b)
	}
	return backends
}

// NewBackend selects and constructs a concrete backend directory: a
// randomized choice among on-disk, memory-mapped on-disk, and in-memory
// storage, constrained by platform. root is only used by the on-disk
// variants. The core never depends on which one came back — only on the
// dirstore.Directory capability set.
func (f *DirectoryFactory) NewBackend(root string) (dirstore.Directory, error) {
	codec, err := compress.ParseType(f.settings.GetString(SettingCompression, "snappy"))
	if err != nil {
		return nil, err
	}

	// mmap read paths are only wired up on platforms that support them;
	// elsewhere the on-disk variant degrades to plain reads.
	useMmap := runtime.GOOS != "windows"

	switch f.policy.Source().Intn(3) {
	case 0:
		f.logger.Debugf("shard %s: selected on-disk backend at %s", f.shardID, root)
		return dirstore.NewFSDirectory(root, false)
	case 1:
		f.logger.Debugf("shard %s: selected mmap backend at %s", f.shardID, root)
		return dirstore.NewFSDirectory(root, useMmap)
	default:
		f.logger.Debugf("shard %s: selected in-memory backend (codec=%s)", f.shardID, codec)
		return dirstore.NewMemDirectory(codec), nil
	}
}
