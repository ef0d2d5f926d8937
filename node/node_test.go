package node

import (
	"context"
	"testing"

	"github.com/op/go-logging"

	"github.com/stardustxr/client-go/hash"
	stlog "github.com/stardustxr/client-go/internal/log"
	"github.com/stardustxr/client-go/scenegraph"
)

func testLogger() *logging.Logger {
	return stlog.Setup("test", logging.CRITICAL, false)
}

// fakeHost is a minimal Host: it records every Signal/Call against its own
// scenegraph, without any real transport underneath.
type fakeHost struct {
	disp    *scenegraph.Dispatcher
	signals []fakeSignal
}

type fakeSignal struct {
	nodeID, aspectID, opcode uint64
}

func newFakeHost() *fakeHost {
	return &fakeHost{disp: scenegraph.New(testLogger())}
}

func (h *fakeHost) Signal(nodeID, aspectID, opcode uint64, payload []byte, fds []int) error {
	h.signals = append(h.signals, fakeSignal{nodeID, aspectID, opcode})
	return nil
}

func (h *fakeHost) Call(ctx context.Context, nodeID, aspectID, opcode uint64, payload []byte, fds []int) ([]byte, []int, error) {
	return nil, nil, nil
}

func (h *fakeHost) Dispatcher() *scenegraph.Dispatcher { return h.disp }

func TestReleaseOfOwnedNodeEmitsDestroyBeforeUnregister(t *testing.T) {
	// I5, S4
	host := newFakeHost()
	n := Own(host, 100, []uint64{hash.Name("Spatial")})

	n.Release()

	if len(host.signals) != 1 {
		t.Fatalf("expected exactly one destroy signal, got %d", len(host.signals))
	}
	got := host.signals[0]
	if got.nodeID != 100 || got.aspectID != ownedAspectID || got.opcode != destroyOpcode {
		t.Fatalf("unexpected destroy signal: %+v", got)
	}

	if _, ok := host.disp.Channel(100, hash.Name("Spatial")); ok {
		t.Fatal("expected scenegraph entry to be removed after release")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	host := newFakeHost()
	n := Own(host, 101, []uint64{hash.Name("Spatial")})

	n.Release()
	n.Release()
	n.Release()

	if len(host.signals) != 1 {
		t.Fatalf("expected exactly one destroy signal across repeated Release calls, got %d", len(host.signals))
	}
}

func TestReleaseOfBorrowedNodeEmitsNoSignal(t *testing.T) {
	host := newFakeHost()
	n := Borrow(host, 102, []uint64{hash.Name("Spatial")})

	n.Release()

	if len(host.signals) != 0 {
		t.Fatalf("expected no signals for a borrowed node, got %d", len(host.signals))
	}
	if _, ok := host.disp.Channel(102, hash.Name("Spatial")); ok {
		t.Fatal("expected scenegraph entry to be removed after release")
	}
}

func TestCloneIsBorrowedAndSharesIdentity(t *testing.T) {
	host := newFakeHost()
	n := Own(host, 103, []uint64{hash.Name("Spatial")})
	alias := n.Clone()

	if alias.Owned() {
		t.Fatal("expected clone to be borrowed")
	}
	if !alias.Equal(n) {
		t.Fatal("expected clone to compare equal to its origin by id")
	}

	// Releasing the clone must not emit destroy or remove the registration
	// — only the owning handle's Release does.
	alias.Release()
	if len(host.signals) != 0 {
		t.Fatalf("expected clone release to emit no signal, got %d", len(host.signals))
	}
	if _, ok := host.disp.Channel(103, hash.Name("Spatial")); !ok {
		t.Fatal("expected scenegraph entry to survive a clone's release")
	}

	n.Release()
	if len(host.signals) != 1 {
		t.Fatalf("expected owning release to still emit destroy, got %d", len(host.signals))
	}
}
