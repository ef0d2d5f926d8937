package protocol

import (
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/op/go-logging"

	"github.com/stardustxr/client-go/aspect"
	"github.com/stardustxr/client-go/client"
	"github.com/stardustxr/client-go/codec"
	"github.com/stardustxr/client-go/fdctx"
	stlog "github.com/stardustxr/client-go/internal/log"
	"github.com/stardustxr/client-go/message"
	"github.com/stardustxr/client-go/messenger"
	"github.com/stardustxr/client-go/node"
	"github.com/stardustxr/client-go/transport"
)

// fakeServer stands in for the other end of the wire: a raw Messenger
// driven by a hand-rolled Dispatcher, recording every signal it sees and
// answering every method call it recognizes. Grounded on
// messenger_test.go's stubDispatcher/pairedMessengers pattern, extended
// to this package's several aspects instead of one hard-coded triple.
type fakeServer struct {
	m *messenger.Messenger

	mu      sync.Mutex
	signals []message.Inbound

	getStateResp  ClientState
	transformResp Transform
	exportSpatial uint64
}

func (f *fakeServer) Dispatch(in message.Inbound, reply aspect.ReplySlot) error {
	if reply == nil {
		f.mu.Lock()
		f.signals = append(f.signals, in)
		f.mu.Unlock()
		return nil
	}
	switch {
	case in.AspectID == RootAspectID && in.Opcode == rootGetStateOpcode:
		return f.replyWith(reply, func(fdc *fdctx.EncodeContext) (interface{}, error) {
			return encodeClientState(f.getStateResp, fdc)
		})
	case in.AspectID == SpatialAspectID && in.Opcode == spatialExportSpatialOpcode:
		return f.replyWith(reply, func(fdc *fdctx.EncodeContext) (interface{}, error) {
			return codec.EncodeNodeID(f.exportSpatial), nil
		})
	case in.AspectID == SpatialRefAspectID && in.Opcode == spatialRefGetTransformOpcode:
		return f.replyWith(reply, func(fdc *fdctx.EncodeContext) (interface{}, error) {
			return encodeTransform(f.transformResp, fdc)
		})
	default:
		reply.ReplyError("protocol_test: unhandled method call")
		return nil
	}
}

func (f *fakeServer) replyWith(reply aspect.ReplySlot, encode func(*fdctx.EncodeContext) (interface{}, error)) error {
	fdc := fdctx.NewEncodeContext()
	val, err := encode(fdc)
	if err != nil {
		reply.ReplyError(err.Error())
		return err
	}
	payload, err := codec.Marshal(val)
	if err != nil {
		reply.ReplyError(err.Error())
		return err
	}
	return reply.Reply(payload, fdc.FDs())
}

func pairClientWithFakeServer(t *testing.T) (h *client.Handle, srv *fakeServer, cleanup func()) {
	t.Helper()
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "test.sock")

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatal(err)
	}
	acceptedCh := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			acceptedCh <- c
		}
	}()

	clientConn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatal(err)
	}
	serverConn := <-acceptedCh
	ln.Close()

	log := stlog.Setup("protocol-test", logging.CRITICAL, false)
	srv = &fakeServer{}
	srv.m = messenger.New(transport.WrapUnixConn(serverConn.(*net.UnixConn)), srv, log)
	go srv.m.Run()

	h = client.New(transport.WrapUnixConn(clientConn.(*net.UnixConn)))

	cleanup = func() {
		h.StopLoop()
		srv.m.Close()
	}
	return
}

// nodeForTest borrows a node handle carrying aspectID directly against h,
// bypassing the reserved-id check client.Handle.Interface applies so
// ordinary (non-interface) node ids can be exercised too.
func nodeForTest(h *client.Handle, id uint64, aspectID uint64) *node.Node {
	return node.Borrow(h, id, []uint64{aspectID})
}

func pollSignal(t *testing.T, srv *fakeServer, match func(message.Inbound) bool) message.Inbound {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		srv.mu.Lock()
		for _, in := range srv.signals {
			if match(in) {
				srv.mu.Unlock()
				return in
			}
		}
		srv.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for matching signal")
	return message.Inbound{}
}

func TestSpatialSetLocalTransformSignal(t *testing.T) {
	h, srv, cleanup := pairClientWithFakeServer(t)
	defer cleanup()

	spatial := AsSpatial(nodeForTest(h, 100, SpatialAspectID))
	tr := Transform{Translation: &[3]float32{1, 2, 3}}
	if err := spatial.SetLocalTransform(tr); err != nil {
		t.Fatalf("SetLocalTransform: %v", err)
	}

	in := pollSignal(t, srv, func(in message.Inbound) bool {
		return in.NodeID == 100 && in.AspectID == SpatialAspectID && in.Opcode == spatialSetLocalTransformOpcode
	})
	payloadValue, err := codec.Unmarshal(in.Payload)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	fields, err := codec.DecodeStructFields(payloadValue)
	if err != nil {
		t.Fatalf("DecodeStructFields: %v", err)
	}
	got, err := decodeTransform(fields[0], fdctx.NewDecodeContext(in.FDs))
	if err != nil {
		t.Fatalf("decodeTransform: %v", err)
	}
	if got.Translation == nil || *got.Translation != [3]float32{1, 2, 3} {
		t.Fatalf("expected translation [1 2 3], got %+v", got.Translation)
	}
}

func TestRootSetBasePrefixesVecOfStrings(t *testing.T) {
	h, srv, cleanup := pairClientWithFakeServer(t)
	defer cleanup()

	root := AsRoot(nodeForTest(h, 1, RootAspectID))
	if err := root.SetBasePrefixes([]string{"assets", "scenes"}); err != nil {
		t.Fatalf("SetBasePrefixes: %v", err)
	}

	in := pollSignal(t, srv, func(in message.Inbound) bool {
		return in.NodeID == 1 && in.AspectID == RootAspectID && in.Opcode == rootSetBasePrefixesOpcode
	})
	payloadValue, err := codec.Unmarshal(in.Payload)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	fields, err := codec.DecodeStructFields(payloadValue)
	if err != nil {
		t.Fatalf("DecodeStructFields: %v", err)
	}
	items, err := codec.DecodeVec(fields[0])
	if err != nil {
		t.Fatalf("DecodeVec: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 prefixes, got %d", len(items))
	}
	first, err := codec.DecodeString(items[0])
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	if first != "assets" {
		t.Fatalf("expected first prefix %q, got %q", "assets", first)
	}
}

func TestRootGetStateMethod(t *testing.T) {
	h, srv, cleanup := pairClientWithFakeServer(t)
	defer cleanup()
	data := []byte{1, 2, 3}
	srv.getStateResp = ClientState{Data: &data, Root: 7}

	root := AsRoot(nodeForTest(h, 1, RootAspectID))
	got, err := root.GetState()
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if got.Root != 7 {
		t.Fatalf("expected root id 7, got %d", got.Root)
	}
	if got.Data == nil || string(*got.Data) != string(data) {
		t.Fatalf("expected data %v, got %v", data, got.Data)
	}
}

func TestSpatialExportSpatialMethod(t *testing.T) {
	h, srv, cleanup := pairClientWithFakeServer(t)
	defer cleanup()
	srv.exportSpatial = 99

	spatial := AsSpatial(nodeForTest(h, 100, SpatialAspectID))
	got, err := spatial.ExportSpatial()
	if err != nil {
		t.Fatalf("ExportSpatial: %v", err)
	}
	if got != 99 {
		t.Fatalf("expected exported id 99, got %d", got)
	}
}

func TestSpatialRefGetTransformMethod(t *testing.T) {
	h, srv, cleanup := pairClientWithFakeServer(t)
	defer cleanup()
	srv.transformResp = Transform{Scale: &[3]float32{2, 2, 2}}

	ref := AsSpatialRef(nodeForTest(h, 100, SpatialRefAspectID))
	got, err := ref.GetTransform(1)
	if err != nil {
		t.Fatalf("GetTransform: %v", err)
	}
	if got.Scale == nil || *got.Scale != [3]float32{2, 2, 2} {
		t.Fatalf("expected scale [2 2 2], got %+v", got.Scale)
	}
}

func TestCreateSpatialConstructor(t *testing.T) {
	h, srv, cleanup := pairClientWithFakeServer(t)
	defer cleanup()

	n, err := CreateSpatial(h, 1, Transform{}, true)
	if err != nil {
		t.Fatalf("CreateSpatial: %v", err)
	}
	if n.ID() <= 15 {
		t.Fatalf("expected a non-reserved node id, got %d", n.ID())
	}
	if !n.Owned() {
		t.Fatalf("expected CreateSpatial to return an owned node")
	}
	found := false
	for _, id := range n.AspectIDs() {
		if id == SpatialAspectID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the created node to carry SpatialAspectID, got %v", n.AspectIDs())
	}

	pollSignal(t, srv, func(in message.Inbound) bool {
		return in.NodeID == InterfaceNodeID && in.AspectID == InterfaceAspectID && in.Opcode == createSpatialOpcode
	})
}

func TestRootFrameEventDelivery(t *testing.T) {
	h, srv, cleanup := pairClientWithFakeServer(t)
	defer cleanup()

	root, err := RootHandle(h)
	if err != nil {
		t.Fatalf("RootHandle: %v", err)
	}

	deltaVal := codec.EncodeFloat32(0.016)
	elapsedVal := codec.EncodeFloat32(12.5)
	payload, err := codec.Marshal(codec.EncodeStruct(deltaVal, elapsedVal))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := srv.m.Signal(InterfaceNodeID, RootAspectID, rootFrameOpcode, payload, nil); err != nil {
		t.Fatalf("server signal: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var ev aspect.Event
	var gotEv bool
	for time.Now().Before(deadline) {
		ev, gotEv = root.RecvEvent(RootAspectID)
		if gotEv {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !gotEv {
		t.Fatal("timed out waiting for frame event")
	}
	frame, ok := ev.(RootFrameEvent)
	if !ok {
		t.Fatalf("expected RootFrameEvent, got %T", ev)
	}
	if frame.Delta != 0.016 || frame.Elapsed != 12.5 {
		t.Fatalf("unexpected frame values: %+v", frame)
	}
}
