// Package node implements node identity, ownership, and the remote
// signal/method-call/event-poll operations user code drives a scenegraph
// node through.
package node

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/stardustxr/client-go/aspect"
	"github.com/stardustxr/client-go/hash"
	"github.com/stardustxr/client-go/scenegraph"
)

var (
	ownedAspectID = hash.Name("Owned")
	destroyOpcode = hash.Name("destroy")
)

// Host is the slice of a client handle a Node needs: sending and calling
// against its own id, and reaching the scenegraph registry it is entered
// in. Defined here (rather than importing the client package directly) to
// keep node decoupled from client's connection-setup concerns — client
// implements Host.
type Host interface {
	Signal(nodeID, aspectID, opcode uint64, payload []byte, fds []int) error
	Call(ctx context.Context, nodeID, aspectID, opcode uint64, payload []byte, fds []int) ([]byte, []int, error)
	Dispatcher() *scenegraph.Dispatcher
}

// Node is a handle to one scenegraph entry: an id, an ownership flag, and
// the host it talks through. Its aspect set is fixed at construction and
// never retrofitted.
type Node struct {
	id        uint64
	owned     bool
	aspectIDs []uint64
	host      Host
	alias     bool // made by Clone; Release leaves the shared entry registered
	closed    int32
}

// Own constructs an owned node: this client controls its lifetime, and
// Release emits a destroy signal before the entry is removed. Used by
// generated constructor stubs immediately after allocating id — emit
// happens after allocate, always (§9).
func Own(host Host, id uint64, aspectIDs []uint64) *Node {
	n := newNode(host, id, true, aspectIDs)
	runtime.SetFinalizer(n, finalizeNode)
	return n
}

// Borrow constructs a borrowed alias to a node this client does not own —
// typically one the server handed over in an event payload. Release is
// silent: no destroy signal, ever.
func Borrow(host Host, id uint64, aspectIDs []uint64) *Node {
	return newNode(host, id, false, aspectIDs)
}

func newNode(host Host, id uint64, owned bool, aspectIDs []uint64) *Node {
	host.Dispatcher().Register(id, aspectIDs)
	return &Node{id: id, owned: owned, aspectIDs: aspectIDs, host: host}
}

func finalizeNode(n *Node) { n.Release() }

// ID returns the node's immutable, process-wide-unique identifier.
func (n *Node) ID() uint64 { return n.id }

// Owned reports whether this handle controls the node's lifetime.
func (n *Node) Owned() bool { return n.owned }

// AspectIDs returns the aspect set this node was constructed with (the
// transitive closure scenegraph registered channels for may be larger).
func (n *Node) AspectIDs() []uint64 { return n.aspectIDs }

// Clone produces a borrowed alias sharing the same underlying scenegraph
// entry: the destroy signal fires only when the last owning reference —
// never a clone — is released.
func (n *Node) Clone() *Node {
	return &Node{id: n.id, owned: false, aspectIDs: n.aspectIDs, host: n.host, alias: true}
}

// Equal compares by identifier, the node's only meaningful identity.
func (n *Node) Equal(other *Node) bool {
	return other != nil && n.id == other.id
}

// SendSignal emits a one-way signal against this node, aspect, and opcode.
func (n *Node) SendSignal(aspectID, opcode uint64, payload []byte, fds []int) error {
	return n.host.Signal(n.id, aspectID, opcode, payload, fds)
}

// CallMethod emits a request and blocks for the correlated reply.
func (n *Node) CallMethod(ctx context.Context, aspectID, opcode uint64, payload []byte, fds []int) ([]byte, []int, error) {
	return n.host.Call(ctx, n.id, aspectID, opcode, payload, fds)
}

// RecvEvent is a non-blocking poll of the event channel for aspectID;
// (nil, false) means no event is queued right now, not that the node
// doesn't implement the aspect (callers that care about that distinction
// can check the aspect's presence in AspectIDs()/aspect.Closure first).
func (n *Node) RecvEvent(aspectID uint64) (aspect.Event, bool) {
	ch, ok := n.host.Dispatcher().Channel(n.id, aspectID)
	if !ok {
		return nil, false
	}
	return ch.Poll()
}

// Release is this runtime's rendering of "drop": Go has no destructors, so
// generated/user code must call it explicitly when done with a node
// (typically via defer). A finalizer set on owned nodes is a safety net,
// not the primary mechanism — relying on GC timing for destroy-signal
// emission would violate I5's "before the scenegraph entry is removed"
// ordering under memory pressure. It is safe to call more than once; only
// the first call has any effect.
func (n *Node) Release() {
	if !atomic.CompareAndSwapInt32(&n.closed, 0, 1) {
		return
	}
	if n.owned {
		// Best-effort: per the destroy-on-drop policy, a messenger that
		// cannot accept the signal is silently dropped, not reported.
		_ = n.SendSignal(ownedAspectID, destroyOpcode, nil, nil)
	}
	if !n.alias {
		n.host.Dispatcher().Unregister(n.id)
	}
	runtime.SetFinalizer(n, nil)
}
