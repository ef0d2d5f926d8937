// Package fdctx provides the scoped serialization context the payload codec
// needs to round-trip file-descriptor arguments without those descriptors
// ever appearing in the payload byte stream.
//
// The source this runtime is ported from threads this as task-local state
// established around one top-level (de)serialize call. In Go the same
// contract is cleaner as an explicit value threaded through the call tree:
// it is not ambient goroutine-local state, it is per-operation state scoped
// to exactly one Encode or Decode invocation, so an explicit parameter is
// both simpler and safer than a goroutine-local hack — nesting two contexts
// across unrelated messages becomes a compile error instead of a runtime
// bug.
package fdctx

import "github.com/stardustxr/client-go/errs"

// EncodeContext collects file descriptors pushed while serializing a single
// message's payload. Serializing an Fd argument appends the fd here and the
// codec emits the returned index as a sentinel into the payload.
type EncodeContext struct {
	fds []int
}

// NewEncodeContext starts a fresh, empty FD sink for one encode operation.
func NewEncodeContext() *EncodeContext {
	return &EncodeContext{}
}

// Push records fd and returns its sentinel index in the eventual frame's
// ancillary FD array.
func (c *EncodeContext) Push(fd int) uint32 {
	idx := uint32(len(c.fds))
	c.fds = append(c.fds, fd)
	return idx
}

// FDs returns the FDs collected so far, in the order they must be sent as
// ancillary data alongside the payload.
func (c *EncodeContext) FDs() []int {
	return c.fds
}

// DecodeContext exposes the ordered queue of FDs that arrived out-of-band
// with the current message. Deserializing an Fd argument pops the next
// entry.
type DecodeContext struct {
	fds []int
	pos int
}

// NewDecodeContext wraps the FDs that accompanied one inbound frame.
func NewDecodeContext(fds []int) *DecodeContext {
	return &DecodeContext{fds: fds}
}

// Pop consumes the next FD in arrival order. It errors if the payload
// references more FD slots than the frame actually carried.
func (c *DecodeContext) Pop() (int, error) {
	if c.pos >= len(c.fds) {
		return -1, errs.ErrFDCountMismatch
	}
	fd := c.fds[c.pos]
	c.pos++
	return fd, nil
}

// Remaining reports how many FDs this context's queue has not yet yielded.
// A fully-consistent decode leaves this at zero.
func (c *DecodeContext) Remaining() int {
	return len(c.fds) - c.pos
}

// Consumed reports how many FDs have been popped, for callers that want to
// assert the whole frame's FD count was used (I7).
func (c *DecodeContext) Consumed() int {
	return c.pos
}
