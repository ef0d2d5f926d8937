// Package client owns the duplex session a userland application drives
// against a Stardust XR server: dialing the transport, running the
// receiver loop, allocating node identifiers, and exposing the borrowed
// handles to the server's reserved interface nodes.
package client

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/blang/semver"
	"github.com/op/go-logging"
	uuid "github.com/satori/go.uuid"

	"github.com/stardustxr/client-go/errs"
	stlog "github.com/stardustxr/client-go/internal/log"
	"github.com/stardustxr/client-go/messenger"
	"github.com/stardustxr/client-go/node"
	"github.com/stardustxr/client-go/scenegraph"
	"github.com/stardustxr/client-go/transport"
)

// reservedIDCeiling is the highest node id reserved for protocol
// interfaces (§6.3); GenerateID never returns a value at or below it.
const reservedIDCeiling = 15

// ProtocolVersion is the runtime's compiled-in protocol version,
// compared (diagnostically only — see ProtocolVersion()) against
// whatever a generated binding reports for the server.
var ProtocolVersion = semver.MustParse("0.1.0")

// Handle is the client's session: the messenger pair, the scenegraph it
// dispatches into, identifier allocation, and the session's log/version
// identity. It implements node.Host.
type Handle struct {
	conn       transport.Conn
	messenger  *messenger.Messenger
	dispatcher *scenegraph.Dispatcher
	log        *logging.Logger

	sessionID  uuid.UUID
	localVer   semver.Version
	remoteVer  semver.Version
	haveRemote bool
	verMu      sync.Mutex

	nextID uint64

	stopOnce sync.Once
}

// Connect resolves the server's socket path from the environment, dials
// it, and starts the receiver loop in the background. The returned
// handle is ready for use immediately; callers must eventually call
// StopLoop.
func Connect() (*Handle, error) {
	conn, err := transport.Dial()
	if err != nil {
		return nil, fmt.Errorf("client: connect: %w", err)
	}
	return New(conn), nil
}

// New wraps an already-established transport connection. Most callers
// want Connect; New is exposed directly for tests and alternative
// transports (e.g. a pre-negotiated connection handed in by an embedder).
func New(conn transport.Conn) *Handle {
	log := stlog.Setup("stardust-client", logging.WARNING, false)
	disp := scenegraph.New(log)

	h := &Handle{
		conn:       conn,
		dispatcher: disp,
		log:        log,
		sessionID:  uuid.NewV4(),
		localVer:   ProtocolVersion,
		nextID:     randomIDSeed(),
	}
	h.messenger = messenger.New(conn, disp, log)
	go h.messenger.Run()

	h.log.Infof("stardust: session %s opened (protocol %s)", h.sessionID, h.localVer)
	return h
}

// randomIDSeed produces a random 32-bit counter seed (§3: "monotonic
// counter seeded from a random 32-bit offset") so this client's
// generated ids don't collide with another client's in the server's
// view of the id space.
func randomIDSeed() uint64 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return uint64(binary.BigEndian.Uint32(b[:]))
}

// SessionID is this handle's log-correlation identifier; never sent on
// the wire.
func (h *Handle) SessionID() uuid.UUID { return h.sessionID }

// ProtocolVersion returns the local binding's compiled-in protocol
// version. RemoteProtocolVersion, once set, is purely diagnostic: the
// wire format carries no version field, so a mismatch is never detected
// here — only as the ordinary MemberNotFound/decode errors a stale
// binding eventually hits.
func (h *Handle) ProtocolVersion() semver.Version { return h.localVer }

// NoteRemoteVersion records a protocol version a generated binding
// learned about out-of-band (e.g. from a version signal some server
// deployments send on connect). It is diagnostic only.
func (h *Handle) NoteRemoteVersion(v semver.Version) {
	h.verMu.Lock()
	h.remoteVer, h.haveRemote = v, true
	h.verMu.Unlock()
	if v.Compare(h.localVer) != 0 {
		h.log.Warningf("stardust: local protocol version %s differs from remote %s", h.localVer, v)
	}
}

// RemoteProtocolVersion returns the version last reported via
// NoteRemoteVersion, if any.
func (h *Handle) RemoteProtocolVersion() (semver.Version, bool) {
	h.verMu.Lock()
	defer h.verMu.Unlock()
	return h.remoteVer, h.haveRemote
}

// GenerateID allocates a monotonically increasing node id, skipping the
// reserved interface range (I9, I10).
func (h *Handle) GenerateID() uint64 {
	for {
		id := atomic.AddUint64(&h.nextID, 1)
		if id > reservedIDCeiling {
			return id
		}
	}
}

// Interface returns a borrowed alias to one of the server's reserved
// process-wide interface nodes (id in 1..=15), the entry points
// generated constructor stubs call factory signals/methods against.
func (h *Handle) Interface(id uint64, aspectIDs []uint64) (*node.Node, error) {
	if id == 0 || id > reservedIDCeiling {
		return nil, fmt.Errorf("client: %d is not a reserved interface id", id)
	}
	return node.Borrow(h, id, aspectIDs), nil
}

// Signal implements node.Host.
func (h *Handle) Signal(nodeID, aspectID, opcode uint64, payload []byte, fds []int) error {
	return h.messenger.Signal(nodeID, aspectID, opcode, payload, fds)
}

// Call implements node.Host.
func (h *Handle) Call(ctx context.Context, nodeID, aspectID, opcode uint64, payload []byte, fds []int) ([]byte, []int, error) {
	return h.messenger.Call(ctx, nodeID, aspectID, opcode, payload, fds)
}

// Dispatcher implements node.Host.
func (h *Handle) Dispatcher() *scenegraph.Dispatcher { return h.dispatcher }

// StopLoop shuts the session down: the receiver is cancelled, every
// pending method call is released with errs.ErrClientDropped, and the
// underlying connection is closed. Safe to call more than once.
func (h *Handle) StopLoop() error {
	var err error
	h.stopOnce.Do(func() {
		h.log.Infof("stardust: session %s closing", h.sessionID)
		err = h.messenger.Close()
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrClientDropped, err)
	}
	return nil
}
