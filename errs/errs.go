// Package errs defines the error kinds shared across the runtime, per the
// propagation policy: scenegraph misses, serialization failures, and remote
// errors surface to the caller without tearing down the client; transport
// and frame-decode failures tear down the session.
package errs

import "fmt"

var (
	// ErrIO wraps a failed stream read or write. Terminal for the session.
	ErrIO = fmt.Errorf("stardust: transport I/O error")

	// ErrInvalidFrame means a frame failed to decode against the wire
	// record shape, or exceeded the configured length ceiling. Terminal
	// for the receiver loop.
	ErrInvalidFrame = fmt.Errorf("stardust: invalid frame")

	// ErrNodeNotFound means an inbound message addressed a node id this
	// client's scenegraph does not hold.
	ErrNodeNotFound = fmt.Errorf("stardust: node not found")

	// ErrAspectNotFound means the node exists but does not implement the
	// addressed aspect.
	ErrAspectNotFound = fmt.Errorf("stardust: aspect not found")

	// ErrMemberNotFound means the aspect's parser does not recognize the
	// opcode.
	ErrMemberNotFound = fmt.Errorf("stardust: member not found")

	// ErrSerialize means the codec could not encode an outbound argument.
	ErrSerialize = fmt.Errorf("stardust: serialize error")

	// ErrDeserialize means the codec could not decode an inbound payload.
	ErrDeserialize = fmt.Errorf("stardust: deserialize error")

	// ErrReceiverDropped means the pending-request channel closed before
	// a reply arrived — the receiver loop exited.
	ErrReceiverDropped = fmt.Errorf("stardust: receiver dropped")

	// ErrClientDropped means the client handle was shut down.
	ErrClientDropped = fmt.Errorf("stardust: client dropped")

	// ErrMapInvalid means a datamap payload was not a valid string-keyed
	// map at its root.
	ErrMapInvalid = fmt.Errorf("stardust: datamap is not a map at the root")

	// ErrFDCountMismatch means the frame's fd_count didn't match the
	// number of FD slots the codec produced or expected.
	ErrFDCountMismatch = fmt.Errorf("stardust: fd count mismatch")

	// ErrFDPassingUnsupported is returned by the windows named-pipe
	// transport whenever fds are sent or expected; it has no FD channel.
	ErrFDPassingUnsupported = fmt.Errorf("stardust: fd passing unsupported on this transport")
)

// ReturnedError is the remote error kind: the server completed a method
// call with a type-0 response. The message is surfaced verbatim.
type ReturnedError struct {
	Message string
}

func (e *ReturnedError) Error() string {
	return e.Message
}

// MethodReturnWithoutCall is sent back to the server when a type-3 frame
// arrives with an id this messenger never registered a pending request for.
const MethodReturnWithoutCall = "Method return without method call."
