package mockdir

import (
	"testing"

	"github.com/aalhour/mockdir/internal/logging"
)

func newTestWrapper(seed int64) *FaultInjectingDirectory {
	policy := NewFaultPolicy("shard-reg", Settings{}, seed)
	return newFaultInjectingDirectory(newFakeDirectory(), policy, logging.Discard, false)
}

func TestRegistry_RegisterAndSnapshot(t *testing.T) {
	reg := NewWrapperRegistry()

	a := newTestWrapper(1)
	b := newTestWrapper(2)
	reg.Register(a)
	reg.Register(b)
	reg.Register(a) // duplicate registration is a no-op

	if reg.Len() != 2 {
		t.Fatalf("Len = %d, want 2", reg.Len())
	}

	got := make(map[*FaultInjectingDirectory]bool)
	for _, w := range reg.All() {
		got[w] = true
	}
	if len(got) != 2 || !got[a] || !got[b] {
		t.Errorf("snapshot = %v, want exactly {a, b}", reg.All())
	}
}

func TestRegistry_MembershipSurvivesClose(t *testing.T) {
	reg := NewWrapperRegistry()
	w := newTestWrapper(3)
	reg.Register(w)

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if reg.Len() != 1 {
		t.Error("membership must persist after close for post-hoc audit")
	}
}

func TestRegistry_Clear(t *testing.T) {
	reg := NewWrapperRegistry()
	reg.Register(newTestWrapper(4))
	reg.Register(newTestWrapper(5))
	reg.Clear()
	if reg.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", reg.Len())
	}
	if got := reg.All(); len(got) != 0 {
		t.Errorf("All after Clear = %v, want empty", got)
	}
}
