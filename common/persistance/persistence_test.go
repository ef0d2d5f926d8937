package persistance

import (
	"testing"
)

func TestFilePersisterLoadMissingReturnsNilNil(t *testing.T) {
	p := NewFilePersister(t.TempDir())
	got, err := p.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil state on first launch, got %+v", got)
	}
}

func TestFilePersisterSaveThenLoadRoundTrips(t *testing.T) {
	p := NewFilePersister(t.TempDir())
	want := &PersistedState{Data: []byte{1, 2, 3}, Root: 42}
	if err := p.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := p.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || got.Root != want.Root || string(got.Data) != string(want.Data) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestFilePersisterDeleteThenLoadReturnsNil(t *testing.T) {
	p := NewFilePersister(t.TempDir())
	if err := p.Save(&PersistedState{Root: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := p.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := p.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil state after delete, got %+v", got)
	}
}

func TestFilePersisterDeleteMissingIsNotAnError(t *testing.T) {
	p := NewFilePersister(t.TempDir())
	if err := p.Delete(); err != nil {
		t.Fatalf("Delete on missing file should be a no-op, got: %v", err)
	}
}
