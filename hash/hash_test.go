package hash

import "testing"

func TestStability(t *testing.T) {
	// I6: hash(N) must be bit-identical across builds. Pin known values
	// so a future change to the algorithm is caught immediately.
	cases := map[string]uint64{
		"":        fnvOffset64,
		"destroy": 3444744415807832453,
	}
	for in, want := range cases {
		if got := Name(in); got != want {
			t.Fatalf("hash(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestDistinctNamesDontTriviallyCollide(t *testing.T) {
	names := []string{"Root", "Spatial", "Field", "Owned", "destroy", "ping", "distance"}
	seen := map[uint64]string{}
	for _, n := range names {
		h := Name(n)
		if prev, ok := seen[h]; ok {
			t.Fatalf("hash collision between %q and %q", n, prev)
		}
		seen[h] = n
	}
}
