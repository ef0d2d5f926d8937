package protocol

import (
	"os"
	"testing"

	"github.com/stardustxr/client-go/transport"
)

// withRuntimeDir points transport.BaseDir at a temp directory for the
// duration of the test, restoring the prior environment on return.
func withRuntimeDir(t *testing.T, dir string) {
	t.Helper()
	const envVar = "STARDUST_RUNTIME_DIR"
	prev, had := os.LookupEnv(envVar)
	os.Setenv(envVar, dir)
	t.Cleanup(func() {
		if had {
			os.Setenv(envVar, prev)
		} else {
			os.Unsetenv(envVar)
		}
	})
	if transport.BaseDir() != dir {
		t.Fatalf("expected BaseDir %q, got %q", dir, transport.BaseDir())
	}
}

func TestPersistedStateRoundTrip(t *testing.T) {
	withRuntimeDir(t, t.TempDir())

	if got, err := LoadPersistedState(); err != nil || got != nil {
		t.Fatalf("expected no persisted state yet, got %+v, %v", got, err)
	}

	data := []byte{9, 9, 9}
	want := ClientState{Data: &data, Root: 5}
	if err := SavePersistedState(want); err != nil {
		t.Fatalf("SavePersistedState: %v", err)
	}

	got, err := LoadPersistedState()
	if err != nil {
		t.Fatalf("LoadPersistedState: %v", err)
	}
	if got == nil || got.Root != want.Root || string(*got.Data) != string(*want.Data) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	if err := ClearPersistedState(); err != nil {
		t.Fatalf("ClearPersistedState: %v", err)
	}
	if got, err := LoadPersistedState(); err != nil || got != nil {
		t.Fatalf("expected no persisted state after clear, got %+v, %v", got, err)
	}
}
