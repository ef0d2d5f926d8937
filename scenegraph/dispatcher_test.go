package scenegraph

import (
	"testing"

	"github.com/op/go-logging"

	"github.com/stardustxr/client-go/aspect"
	stlog "github.com/stardustxr/client-go/internal/log"
	"github.com/stardustxr/client-go/message"
)

type testEvent struct{ aspectID, opcode uint64 }

func (e testEvent) AspectID() uint64 { return e.aspectID }

func testLogger() *logging.Logger {
	return stlog.Setup("test", logging.CRITICAL, false)
}

func registerTestAspect(t *testing.T, id uint64, inherits []uint64) {
	t.Helper()
	aspect.Register(&aspect.Descriptor{
		ID:       id,
		Name:     t.Name(),
		Inherits: inherits,
		Parse: func(in message.Inbound, reply aspect.ReplySlot) (aspect.Event, error) {
			if reply != nil {
				reply.Reply(in.Payload, nil)
			}
			return testEvent{aspectID: in.AspectID, opcode: in.Opcode}, nil
		},
	})
}

func TestDispatchPushesEventInOrder(t *testing.T) {
	const aspectID = 777
	registerTestAspect(t, aspectID, nil)

	d := New(testLogger())
	d.Register(1, []uint64{aspectID})

	for i := 0; i < 3; i++ {
		err := d.Dispatch(message.Inbound{Type: message.TypeSignal, NodeID: 1, AspectID: aspectID, Opcode: uint64(i)}, nil)
		if err != nil {
			t.Fatal(err)
		}
	}

	ch, ok := d.Channel(1, aspectID)
	if !ok {
		t.Fatal("expected channel to exist")
	}
	if ch.Len() != 3 {
		t.Fatalf("expected 3 queued events, got %d", ch.Len())
	}
	for i := 0; i < 3; i++ {
		ev, ok := ch.Poll()
		if !ok {
			t.Fatalf("expected event %d to be queued", i)
		}
		if got := ev.(testEvent).opcode; got != uint64(i) {
			t.Fatalf("event %d: expected opcode %d, got %d", i, i, got)
		}
	}
}

func TestDispatchNodeNotFound(t *testing.T) {
	d := New(testLogger())
	err := d.Dispatch(message.Inbound{Type: message.TypeSignal, NodeID: 42, AspectID: 1}, nil)
	if err == nil {
		t.Fatal("expected an error for an unregistered node")
	}
}

func TestDispatchAspectNotFound(t *testing.T) {
	const aspectID = 778
	registerTestAspect(t, aspectID, nil)

	d := New(testLogger())
	d.Register(2, []uint64{aspectID})

	err := d.Dispatch(message.Inbound{Type: message.TypeSignal, NodeID: 2, AspectID: 999999}, nil)
	if err == nil {
		t.Fatal("expected an error for an unimplemented aspect")
	}
}

func TestUnregisterRemovesEntry(t *testing.T) {
	const aspectID = 779
	registerTestAspect(t, aspectID, nil)

	d := New(testLogger())
	d.Register(3, []uint64{aspectID})
	d.Unregister(3)

	if _, ok := d.Channel(3, aspectID); ok {
		t.Fatal("expected channel lookup to fail after unregister")
	}
}

func TestInheritedAspectGetsOwnChannel(t *testing.T) {
	const parent = 780
	const child = 781
	registerTestAspect(t, parent, nil)
	registerTestAspect(t, child, []uint64{parent})

	d := New(testLogger())
	d.Register(4, []uint64{child})

	if _, ok := d.Channel(4, child); !ok {
		t.Fatal("expected channel for the declared aspect")
	}
	if _, ok := d.Channel(4, parent); !ok {
		t.Fatal("expected channel for the inherited aspect too")
	}
}
