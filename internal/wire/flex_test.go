package wire

import (
	"reflect"
	"testing"
)

func TestRoundTripScalars(t *testing.T) {
	cases := []Value{
		nil,
		true,
		false,
		int64(-7),
		uint64(42),
		"hello",
		[]byte{1, 2, 3},
	}
	for _, c := range cases {
		b, err := Encode(c)
		if err != nil {
			t.Fatalf("encode %#v: %v", c, err)
		}
		out, err := Decode(b)
		if err != nil {
			t.Fatalf("decode %#v: %v", c, err)
		}
		if !reflect.DeepEqual(out, c) {
			t.Fatalf("round trip mismatch: got %#v (%T), want %#v (%T)", out, out, c, c)
		}
	}
}

func TestRoundTripVectorAndMap(t *testing.T) {
	in := []Value{int64(1), "two", []Value{uint64(3), uint64(4)}}
	b, err := Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	vec, ok := out.([]Value)
	if !ok || len(vec) != 3 {
		t.Fatalf("expected 3-element vector, got %#v", out)
	}

	m := map[string]Value{"a": int64(1), "b": "two"}
	b, err = Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	out, err = Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	om, ok := out.(map[string]Value)
	if !ok || len(om) != 2 {
		t.Fatalf("expected 2-key map, got %#v", out)
	}
}
