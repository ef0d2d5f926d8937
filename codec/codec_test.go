package codec

import (
	"testing"

	"github.com/stardustxr/client-go/fdctx"
	"github.com/stardustxr/client-go/internal/wire"
)

func TestStructStripsFieldNames(t *testing.T) {
	// I8: a 3-field struct encodes as exactly 3 positional slots, no
	// field-name strings anywhere in the payload.
	s := EncodeStruct(EncodeUInt(1), EncodeString("hi"), EncodeBool(true))
	payload, err := Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Unmarshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	fields, err := DecodeStructFields(decoded)
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}
	id, err := DecodeUInt(fields[0])
	if err != nil || id != 1 {
		t.Fatalf("field 0: %v %v", id, err)
	}
	name, err := DecodeString(fields[1])
	if err != nil || name != "hi" {
		t.Fatalf("field 1: %v %v", name, err)
	}
}

func TestEnumUnionOptional(t *testing.T) {
	enumPayload, _ := Marshal(EncodeEnum(3))
	v, _ := Unmarshal(enumPayload)
	d, err := DecodeEnum(v)
	if err != nil || d != 3 {
		t.Fatalf("enum round trip failed: %v %v", d, err)
	}

	unionPayload, _ := Marshal(EncodeUnion("Sphere", EncodeFloat32(1.5)))
	v, _ = Unmarshal(unionPayload)
	tag, inner, err := DecodeUnion(v)
	if err != nil || tag != "Sphere" {
		t.Fatalf("union tag: %v %v", tag, err)
	}
	f, err := DecodeFloat32(inner)
	if err != nil || f != 1.5 {
		t.Fatalf("union inner: %v %v", f, err)
	}

	presentPayload, _ := Marshal(EncodeOptional(true, EncodeUInt(9)))
	v, _ = Unmarshal(presentPayload)
	present, inner := DecodeOptional(v)
	if !present {
		t.Fatal("expected present optional")
	}
	u, err := DecodeUInt(inner)
	if err != nil || u != 9 {
		t.Fatalf("optional inner: %v %v", u, err)
	}

	absentPayload, _ := Marshal(EncodeOptional(false, nil))
	v, _ = Unmarshal(absentPayload)
	present, _ = DecodeOptional(v)
	if present {
		t.Fatal("expected absent optional")
	}
}

func TestFdRoundTrip(t *testing.T) {
	enc := fdctx.NewEncodeContext()
	payload, err := Marshal(EncodeStruct(EncodeFd(enc, 99)))
	if err != nil {
		t.Fatal(err)
	}
	if len(enc.FDs()) != 1 || enc.FDs()[0] != 99 {
		t.Fatalf("expected fd 99 collected, got %v", enc.FDs())
	}

	v, err := Unmarshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	fields, err := DecodeStructFields(v)
	if err != nil {
		t.Fatal(err)
	}
	dec := fdctx.NewDecodeContext([]int{99})
	fd, err := DecodeFd(dec, fields[0])
	if err != nil {
		t.Fatal(err)
	}
	if fd != 99 {
		t.Fatalf("expected fd 99, got %d", fd)
	}
	if dec.Remaining() != 0 {
		t.Fatalf("expected all fds consumed, got %d remaining", dec.Remaining())
	}
}

func TestColorAndVectors(t *testing.T) {
	payload, _ := Marshal(EncodeColor(0.1, 0.2, 0.3, 1))
	v, _ := Unmarshal(payload)
	r, g, b, a, err := DecodeColor(v)
	if err != nil {
		t.Fatal(err)
	}
	if r != float32(0.1) || g != float32(0.2) || b != float32(0.3) || a != 1 {
		t.Fatalf("color mismatch: %v %v %v %v", r, g, b, a)
	}

	payload, _ = Marshal(EncodeVec3(1, 0, 0))
	v, _ = Unmarshal(payload)
	x, y, z, err := DecodeVec3(v)
	if err != nil || x != 1 || y != 0 || z != 0 {
		t.Fatalf("vec3 mismatch: %v %v %v %v", x, y, z, err)
	}
}

func TestDatamapRejectsNonMapRoot(t *testing.T) {
	notMap, _ := Marshal(EncodeVec([]wire.Value{EncodeUInt(1)}))
	if _, err := ParseDatamap(notMap); err == nil {
		t.Fatal("expected rejection of non-map datamap root")
	}

	dm, err := NewDatamap(map[string]wire.Value{"k": EncodeString("v")})
	if err != nil {
		t.Fatal(err)
	}
	m, err := dm.Value()
	if err != nil {
		t.Fatal(err)
	}
	s, err := DecodeString(m["k"])
	if err != nil || s != "v" {
		t.Fatalf("datamap round trip failed: %v %v", s, err)
	}
}
