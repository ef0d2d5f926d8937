package messenger

import "sync"

// reply is what a pending method call resolves to.
type reply struct {
	payload   []byte
	fds       []int
	remoteErr string // non-empty ⇒ errs.ReturnedError (type-0 frame from the server)
	localErr  error  // set when the session itself failed (IO, shutdown)
}

// pendingTable is the map<u64, reply-slot> from §3: writable by both the
// caller (insert, under the sender's own write discipline) and the
// receiver loop (remove, exactly once). A plain mutex-guarded map is
// sufficient here — the "sharded concurrent map" spec.md mentions as an
// option is for servers fielding far higher call-volume than one client
// session ever will.
type pendingTable struct {
	mu      sync.Mutex
	entries map[uint64]chan reply
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: map[uint64]chan reply{}}
}

// insert registers a fresh one-shot slot for id before the call frame is
// written, satisfying the ordering the pending-request table invariant
// requires.
func (t *pendingTable) insert(id uint64) chan reply {
	ch := make(chan reply, 1)
	t.mu.Lock()
	t.entries[id] = ch
	t.mu.Unlock()
	return ch
}

// complete removes and completes the slot for id, if one exists. It
// reports whether a pending entry was found — I3's at-most-once guarantee
// holds because this is the only path that both deletes and sends, and a
// deleted entry can never be completed a second time.
func (t *pendingTable) complete(id uint64, r reply) bool {
	t.mu.Lock()
	ch, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	ch <- r
	return true
}

// cancel removes the slot for id without completing it (the caller gave up
// waiting); a late reply from the server then finds no entry: a type-3 is
// answered with a MethodReturnWithoutCall error frame, a type-0 is logged.
func (t *pendingTable) cancel(id uint64) {
	t.mu.Lock()
	delete(t.entries, id)
	t.mu.Unlock()
}

// drain completes every outstanding slot with err, used when the receiver
// loop terminates (IO failure, shutdown) and no further replies will ever
// arrive.
func (t *pendingTable) drain(err error) {
	t.mu.Lock()
	entries := t.entries
	t.entries = map[uint64]chan reply{}
	t.mu.Unlock()
	for _, ch := range entries {
		ch <- reply{localErr: err}
	}
}
