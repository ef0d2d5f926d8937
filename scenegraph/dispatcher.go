// Package scenegraph implements the process-local registry mapping node
// ids to their per-aspect event sinks, and routes inbound signals and
// method calls to the right sink.
package scenegraph

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/op/go-logging"

	"github.com/stardustxr/client-go/aspect"
	"github.com/stardustxr/client-go/errs"
	"github.com/stardustxr/client-go/message"
)

// missCacheSize bounds how many distinct (node, aspect) dispatch misses
// get a Warning-level log before repeats are demoted to Debug — a
// confused or adversarial peer addressing garbage ids shouldn't be able to
// flood the log.
const missCacheSize = 256

type missKey struct {
	nodeID, aspectID uint64
}

// Dispatcher is the scenegraph: node id -> per-aspect event channel.
type Dispatcher struct {
	log *logging.Logger

	mu      sync.RWMutex
	entries map[uint64]*entry

	misses *lru.Cache
}

type entry struct {
	mu       sync.Mutex
	channels map[uint64]*EventChannel
}

// New creates an empty dispatcher.
func New(log *logging.Logger) *Dispatcher {
	misses, _ := lru.New(missCacheSize)
	return &Dispatcher{
		log:     log,
		entries: map[uint64]*entry{},
		misses:  misses,
	}
}

// Register opens one event channel per aspect id in the transitive closure
// of aspectIDs (§4.6 inheritance) for nodeID. Called when a node — local
// or remote-originated — is constructed.
func (d *Dispatcher) Register(nodeID uint64, aspectIDs []uint64) {
	closure := aspect.Closure(aspectIDs...)
	channels := make(map[uint64]*EventChannel, len(closure))
	for _, id := range closure {
		channels[id] = newEventChannel()
	}
	d.mu.Lock()
	d.entries[nodeID] = &entry{channels: channels}
	d.mu.Unlock()
}

// Unregister removes nodeID's scenegraph entry — called on owned-node drop
// (after emitting destroy) or on an explicit borrowed-node unregister
// (e.g. on receiving a destroy event for a node this client never owned).
func (d *Dispatcher) Unregister(nodeID uint64) {
	d.mu.Lock()
	delete(d.entries, nodeID)
	d.mu.Unlock()
}

// Channel returns the event channel for (nodeID, aspectID), if the node is
// registered and implements that aspect.
func (d *Dispatcher) Channel(nodeID, aspectID uint64) (*EventChannel, bool) {
	d.mu.RLock()
	e, ok := d.entries[nodeID]
	d.mu.RUnlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	ch, ok := e.channels[aspectID]
	e.mu.Unlock()
	return ch, ok
}

// Dispatch routes one inbound frame. See messenger.Dispatcher for the
// contract this satisfies, including how reply-slot completion on failure
// is split between this function and the aspect's own parser.
func (d *Dispatcher) Dispatch(in message.Inbound, reply aspect.ReplySlot) error {
	ch, ok := d.Channel(in.NodeID, in.AspectID)
	if !ok {
		return d.miss(in, reply)
	}

	desc, ok := aspect.Lookup(in.AspectID)
	if !ok {
		// The node's entry exists (so some aspect in its closure opened
		// this channel) but no binding registered a parser for it in
		// this process — treat it the same as AspectNotFound.
		return d.miss(in, reply)
	}

	event, err := desc.Parse(in, reply)
	if err != nil {
		// A method call the parser left open is answered with err; a
		// reply slot the parser already completed refuses this second
		// completion. The returned err is for the messenger's own logging.
		if reply != nil {
			reply.ReplyError(err.Error())
		}
		return err
	}
	ch.push(event)
	return nil
}

func (d *Dispatcher) miss(in message.Inbound, reply aspect.ReplySlot) error {
	var err error
	if !d.hasNode(in.NodeID) {
		err = errs.ErrNodeNotFound
	} else {
		err = errs.ErrAspectNotFound
	}
	if reply != nil {
		reply.ReplyError(err.Error())
	}
	d.logMiss(in, err)
	return err
}

func (d *Dispatcher) hasNode(nodeID uint64) bool {
	d.mu.RLock()
	_, ok := d.entries[nodeID]
	d.mu.RUnlock()
	return ok
}

func (d *Dispatcher) logMiss(in message.Inbound, err error) {
	key := missKey{in.NodeID, in.AspectID}
	if d.misses.Contains(key) {
		d.log.Debug("scenegraph: repeated dispatch miss", in.NodeID, in.AspectID, ":", err)
		return
	}
	d.misses.Add(key, struct{}{})
	d.log.Warning("scenegraph: dispatch miss", in.NodeID, in.AspectID, ":", err)
}
