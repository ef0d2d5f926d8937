package protocol

import (
	"github.com/stardustxr/client-go/common/persistance"
	"github.com/stardustxr/client-go/transport"
)

// LoadPersistedState reads this client's last-known ClientState from the
// runtime directory, if one was ever saved. A nil ClientState with a nil
// error means no prior state exists — callers should treat that as a
// first launch rather than restore anything.
func LoadPersistedState() (*ClientState, error) {
	ps, err := persistance.NewFilePersister(transport.BaseDir()).Load()
	if err != nil || ps == nil {
		return nil, err
	}
	cs := &ClientState{Root: ps.Root}
	if ps.Data != nil {
		data := ps.Data
		cs.Data = &data
	}
	return cs, nil
}

// SavePersistedState writes cs to the runtime directory so a later
// launch's GetState-before-init check can restore from it.
func SavePersistedState(cs ClientState) error {
	ps := &persistance.PersistedState{Root: cs.Root}
	if cs.Data != nil {
		ps.Data = *cs.Data
	}
	return persistance.NewFilePersister(transport.BaseDir()).Save(ps)
}

// ClearPersistedState removes any previously saved state, e.g. after the
// server reports a fresh Root with no prior session to resume.
func ClearPersistedState() error {
	return persistance.NewFilePersister(transport.BaseDir()).Delete()
}
