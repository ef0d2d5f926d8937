package fdctx

import "testing"

func TestEncodeContextPush(t *testing.T) {
	ctx := NewEncodeContext()
	if idx := ctx.Push(11); idx != 0 {
		t.Fatalf("expected index 0, got %d", idx)
	}
	if idx := ctx.Push(12); idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}
	if got := ctx.FDs(); len(got) != 2 || got[0] != 11 || got[1] != 12 {
		t.Fatalf("unexpected fd list: %v", got)
	}
}

func TestDecodeContextPopInOrder(t *testing.T) {
	ctx := NewDecodeContext([]int{5, 6, 7})
	for _, want := range []int{5, 6, 7} {
		got, err := ctx.Pop()
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
	if _, err := ctx.Pop(); err == nil {
		t.Fatal("expected error popping beyond the queue")
	}
	if ctx.Consumed() != 3 {
		t.Fatalf("expected 3 consumed, got %d", ctx.Consumed())
	}
}
