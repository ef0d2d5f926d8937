// Package messenger implements the framed duplex messenger: length-prefixed
// message bodies with an out-of-band file-descriptor channel, split into an
// independently drivable sender half and receiver half, correlating method
// calls with their responses through a pending-request table.
package messenger

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/op/go-logging"

	"github.com/stardustxr/client-go/aspect"
	"github.com/stardustxr/client-go/codec"
	"github.com/stardustxr/client-go/errs"
	"github.com/stardustxr/client-go/message"
	"github.com/stardustxr/client-go/transport"
)

// MaxFrameLength bounds the body length a receiver will accept before
// treating the stream as desynchronized.
const MaxFrameLength = 64 << 20 // 64 MiB

// Dispatcher routes one decoded inbound frame to the scenegraph. For
// signals reply is nil; for method calls it is non-nil and Dispatch (or
// the aspect parser it delegates to) must eventually complete it.
// Dispatch's return value is used only to decide whether the messenger
// owes the peer a diagnostic frame — see handleInbound.
type Dispatcher interface {
	Dispatch(in message.Inbound, reply aspect.ReplySlot) error
}

// Messenger is one end of the duplex session.
type Messenger struct {
	conn       transport.Conn
	dispatcher Dispatcher
	log        *logging.Logger

	writeMu sync.Mutex
	nextID  uint64

	pending *pendingTable

	closeOnce sync.Once
	closed    chan struct{}
}

// New wraps conn; dispatcher receives every inbound signal and method
// call once Run is started.
func New(conn transport.Conn, dispatcher Dispatcher, log *logging.Logger) *Messenger {
	return &Messenger{
		conn:       conn,
		dispatcher: dispatcher,
		log:        log,
		pending:    newPendingTable(),
		closed:     make(chan struct{}),
	}
}

// Signal emits a one-way, fire-and-forget frame. It is non-blocking beyond
// the underlying stream write.
func (m *Messenger) Signal(nodeID, aspectID, opcode uint64, payload []byte, fds []int) error {
	return m.writeFrame(message.TypeSignal, 0, nodeID, aspectID, opcode, "", payload, fds)
}

// Call reserves a fresh message id, registers a reply slot, emits a
// type-2 frame, and blocks until the dispatcher routes a matching type-3
// or type-0 reply, ctx is cancelled, or the messenger is shut down.
func (m *Messenger) Call(ctx context.Context, nodeID, aspectID, opcode uint64, payload []byte, fds []int) ([]byte, []int, error) {
	id := atomic.AddUint64(&m.nextID, 1)
	ch := m.pending.insert(id)

	if err := m.writeFrame(message.TypeMethodCall, id, nodeID, aspectID, opcode, "", payload, fds); err != nil {
		m.pending.cancel(id)
		return nil, nil, err
	}

	select {
	case r := <-ch:
		if r.localErr != nil {
			return nil, nil, r.localErr
		}
		if r.remoteErr != "" {
			return nil, nil, &errs.ReturnedError{Message: r.remoteErr}
		}
		return r.payload, r.fds, nil
	case <-ctx.Done():
		// Dropping the waiter does not cancel the in-flight call on the
		// server; a late reply finds no pending entry, so handleInbound
		// answers a late type-3 with a MethodReturnWithoutCall error frame
		// and only logs a late type-0.
		m.pending.cancel(id)
		return nil, nil, ctx.Err()
	case <-m.closed:
		return nil, nil, errs.ErrClientDropped
	}
}

// Run drives the receiver loop until the stream closes or a frame fails
// to decode. It blocks; callers typically run it in its own goroutine.
func (m *Messenger) Run() error {
	for {
		in, err := m.readFrame()
		if err != nil {
			m.terminate(err)
			return err
		}
		m.handleInbound(in)
	}
}

// Close shuts the messenger down, cancelling Run's next read (via the
// closed conn) and releasing every pending waiter with ErrClientDropped.
func (m *Messenger) Close() error {
	m.terminate(errs.ErrClientDropped)
	return m.conn.Close()
}

func (m *Messenger) terminate(err error) {
	m.closeOnce.Do(func() {
		close(m.closed)
		m.pending.drain(err)
	})
}

func (m *Messenger) handleInbound(in message.Inbound) {
	switch in.Type {
	case message.TypeSignal:
		if err := m.dispatcher.Dispatch(in, nil); err != nil {
			// Signal failures get a diagnostic id=0 frame; nobody is
			// waiting on it.
			if sendErr := m.sendError(0, in.NodeID, in.AspectID, in.Opcode, err.Error()); sendErr != nil {
				m.log.Error("messenger: failed to send diagnostic error frame:", sendErr)
			}
		}
	case message.TypeMethodCall:
		rs := &replySlot{m: m, id: in.ID, nodeID: in.NodeID, aspectID: in.AspectID, opcode: in.Opcode}
		if err := m.dispatcher.Dispatch(in, rs); err != nil {
			// Dispatch has already completed rs with the error (a miss or
			// a parse failure); this is purely for our own logs.
			m.log.Debug("messenger: method dispatch failed:", err)
		}
	case message.TypeMethodReturn:
		if !m.pending.complete(in.ID, reply{payload: in.Payload, fds: in.FDs}) {
			if err := m.sendError(in.ID, in.NodeID, in.AspectID, in.Opcode, errs.MethodReturnWithoutCall); err != nil {
				m.log.Error("messenger: failed to report unmatched method return:", err)
			}
		}
	case message.TypeError:
		if in.ID == 0 {
			m.log.Debug("messenger: diagnostic error from peer:", in.Error)
			return
		}
		if !m.pending.complete(in.ID, reply{remoteErr: in.Error}) {
			// Server-initiated notification, not a reply to anything we
			// sent: log, don't propagate.
			m.log.Debug("messenger: error frame for unknown id", in.ID, ":", in.Error)
		}
	}
}

func (m *Messenger) sendError(id, nodeID, aspectID, opcode uint64, msg string) error {
	return m.writeFrame(message.TypeError, id, nodeID, aspectID, opcode, msg, nil, nil)
}

// writeFrame serializes and writes one frame as an atomic unit: length
// prefix, body, fd-count prefix, then the fds themselves. writeMu is held
// for the whole sequence so concurrent callers can never interleave
// partial writes.
func (m *Messenger) writeFrame(typ message.Type, id, nodeID, aspectID, opcode uint64, errMsg string, payload []byte, fds []int) error {
	body := codec.EncodeStruct(
		codec.EncodeUInt(uint64(typ)),
		codec.EncodeUInt(id),
		codec.EncodeUInt(nodeID),
		codec.EncodeUInt(aspectID),
		codec.EncodeUInt(opcode),
		codec.EncodeOptional(errMsg != "", codec.EncodeString(errMsg)),
		codec.EncodeOptional(payload != nil, codec.EncodeBytes(payload)),
	)
	encoded, err := codec.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrSerialize, err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	var lenPrefix [4]byte
	binary.LittleEndian.PutUint32(lenPrefix[:], uint32(len(encoded)))
	if _, err := m.conn.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	if _, err := m.conn.Write(encoded); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}

	var fdCountPrefix [4]byte
	binary.LittleEndian.PutUint32(fdCountPrefix[:], uint32(len(fds)))
	if _, err := m.conn.Write(fdCountPrefix[:]); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	if len(fds) > 0 {
		if err := m.conn.SendFDs(fds); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrIO, err)
		}
	}
	return nil
}

func (m *Messenger) readFrame() (message.Inbound, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(m.conn, lenPrefix[:]); err != nil {
		return message.Inbound{}, fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	bodyLen := binary.LittleEndian.Uint32(lenPrefix[:])
	if bodyLen > MaxFrameLength {
		return message.Inbound{}, fmt.Errorf("%w: body length %d exceeds ceiling", errs.ErrInvalidFrame, bodyLen)
	}
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(m.conn, body); err != nil {
		return message.Inbound{}, fmt.Errorf("%w: %v", errs.ErrIO, err)
	}

	var fdCountPrefix [4]byte
	if _, err := io.ReadFull(m.conn, fdCountPrefix[:]); err != nil {
		return message.Inbound{}, fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	fdCount := binary.LittleEndian.Uint32(fdCountPrefix[:])
	var fds []int
	if fdCount > 0 {
		var err error
		fds, err = m.conn.RecvFDs(int(fdCount))
		if err != nil {
			return message.Inbound{}, fmt.Errorf("%w: %v", errs.ErrIO, err)
		}
	}

	in, err := decodeBody(body)
	if err != nil {
		return message.Inbound{}, err
	}
	in.FDs = fds
	return in, nil
}

func decodeBody(body []byte) (message.Inbound, error) {
	v, err := codec.Unmarshal(body)
	if err != nil {
		return message.Inbound{}, fmt.Errorf("%w: %v", errs.ErrInvalidFrame, err)
	}
	fields, err := codec.DecodeStructFields(v)
	if err != nil || len(fields) != 7 {
		return message.Inbound{}, fmt.Errorf("%w: body has %d fields, want 7", errs.ErrInvalidFrame, len(fields))
	}
	typ, err := codec.DecodeUInt(fields[0])
	if err != nil {
		return message.Inbound{}, fmt.Errorf("%w: %v", errs.ErrInvalidFrame, err)
	}
	id, err := codec.DecodeUInt(fields[1])
	if err != nil {
		return message.Inbound{}, fmt.Errorf("%w: %v", errs.ErrInvalidFrame, err)
	}
	nodeID, err := codec.DecodeUInt(fields[2])
	if err != nil {
		return message.Inbound{}, fmt.Errorf("%w: %v", errs.ErrInvalidFrame, err)
	}
	aspectID, err := codec.DecodeUInt(fields[3])
	if err != nil {
		return message.Inbound{}, fmt.Errorf("%w: %v", errs.ErrInvalidFrame, err)
	}
	opcode, err := codec.DecodeUInt(fields[4])
	if err != nil {
		return message.Inbound{}, fmt.Errorf("%w: %v", errs.ErrInvalidFrame, err)
	}
	var errMsg string
	if present, inner := codec.DecodeOptional(fields[5]); present {
		errMsg, err = codec.DecodeString(inner)
		if err != nil {
			return message.Inbound{}, fmt.Errorf("%w: %v", errs.ErrInvalidFrame, err)
		}
	}
	var payload []byte
	if present, inner := codec.DecodeOptional(fields[6]); present {
		payload, err = codec.DecodeBytes(inner)
		if err != nil {
			return message.Inbound{}, fmt.Errorf("%w: %v", errs.ErrInvalidFrame, err)
		}
	}
	return message.Inbound{
		Type:     message.Type(typ),
		ID:       id,
		NodeID:   nodeID,
		AspectID: aspectID,
		Opcode:   opcode,
		Error:    errMsg,
		Payload:  payload,
	}, nil
}

// replySlot implements aspect.ReplySlot for one inbound method call,
// ensuring the reply is written at most once.
type replySlot struct {
	m                            *Messenger
	id, nodeID, aspectID, opcode uint64
	done                         int32
}

func (r *replySlot) Reply(payload []byte, fds []int) error {
	if !atomic.CompareAndSwapInt32(&r.done, 0, 1) {
		return fmt.Errorf("stardust: reply slot for id %d already completed", r.id)
	}
	return r.m.writeFrame(message.TypeMethodReturn, r.id, r.nodeID, r.aspectID, r.opcode, "", payload, fds)
}

func (r *replySlot) ReplyError(msg string) error {
	if !atomic.CompareAndSwapInt32(&r.done, 0, 1) {
		return fmt.Errorf("stardust: reply slot for id %d already completed", r.id)
	}
	return r.m.writeFrame(message.TypeError, r.id, r.nodeID, r.aspectID, r.opcode, msg, nil, nil)
}
