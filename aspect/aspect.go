// Package aspect implements the capability model: an aspect is a stable
//64-bit hash identifying a named capability together with the members
// (signals, methods) it carries. A node advertises the aspect set it
// implements; any opcode is interpreted relative to one aspect, never
// globally, so two aspects can reuse the same opcode without collision.
//
// Aspects are a tagged registry rather than a trait/interface hierarchy —
// generated bindings call Register during package init, the way database
// drivers or image codecs register themselves in the standard library, and
// the scenegraph dispatcher (§4.4) looks parsers up by id instead of type
// switching over a closed set of Go interfaces.
package aspect

import (
	"fmt"
	"sync"

	"github.com/stardustxr/client-go/message"
)

// Event is implemented by every generated per-aspect event sum type's
// variants.
type Event interface {
	AspectID() uint64
}

// ReplySlot lets a parser (or, for methods, whatever user code eventually
// inspects the resulting event) complete an in-flight method call
// explicitly. Separating "recognize this as a method call" from "decide
// how to answer it" is deliberate: it is what lets a server-to-client
// method exist at all, since the application — not the parser — decides
// the response.
type ReplySlot interface {
	Reply(payload []byte, fds []int) error
	ReplyError(message string) error
}

// ParseFunc decodes one inbound frame already known to belong to this
// aspect into an Event. For methods, reply is non-nil and the returned
// Event is expected to carry it forward so the consumer can answer later;
// if parsing itself fails (unknown opcode, decode error), the parser may
// complete reply itself; otherwise the scenegraph dispatcher completes it
// with the returned error's text.
type ParseFunc func(in message.Inbound, reply ReplySlot) (Event, error)

// Descriptor is what a generated aspect registers.
type Descriptor struct {
	ID       uint64
	Name     string
	Inherits []uint64 // direct parents only; Closure computes the transitive set
	Parse    ParseFunc
}

var (
	mu       sync.RWMutex
	registry = map[uint64]*Descriptor{}
)

// Register adds d to the process-wide aspect registry. Called from
// generated bindings' package init(); re-registering the same id with a
// different descriptor is a programmer error and panics, the same way
// registering two SQL drivers under one name would.
func Register(d *Descriptor) {
	mu.Lock()
	defer mu.Unlock()
	if existing, ok := registry[d.ID]; ok && existing.Name != d.Name {
		panic(fmt.Sprintf("aspect: id %d already registered to %q, cannot also register %q", d.ID, existing.Name, d.Name))
	}
	registry[d.ID] = d
}

// Lookup finds a registered aspect by id.
func Lookup(id uint64) (*Descriptor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := registry[id]
	return d, ok
}

// Closure returns the transitive closure of ids and everything they
// (recursively) inherit, each id appearing once. Unknown ids pass through
// unexpanded — a node may implement an aspect this binary never generated
// a descriptor for, if it only ever borrows references to it.
func Closure(ids ...uint64) []uint64 {
	seen := map[uint64]bool{}
	var out []uint64
	var visit func(id uint64)
	visit = func(id uint64) {
		if seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
		if d, ok := Lookup(id); ok {
			for _, parent := range d.Inherits {
				visit(parent)
			}
		}
	}
	for _, id := range ids {
		visit(id)
	}
	return out
}
