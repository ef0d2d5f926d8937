// Package codec implements the outer mapping of the payload codec: it
// stands on top of the schema-less flex value tree (internal/wire) and
// applies the project's structural conventions — structs as positional
// vectors with field names stripped, enums as u32 discriminants, tagged
// unions as two-element vectors, optionals as value-or-null, nodes as
// their u64 id, and file-descriptor arguments routed through fdctx.
//
// The generated binding (codegen) is the only expected caller of most of
// these functions; they are exported so a hand-written aspect can also
// participate in the wire contract directly.
package codec

import (
	"fmt"

	"github.com/stardustxr/client-go/errs"
	"github.com/stardustxr/client-go/fdctx"
	"github.com/stardustxr/client-go/internal/wire"
)

// Marshal renders a flex value tree to its final payload bytes.
func Marshal(v wire.Value) ([]byte, error) {
	b, err := wire.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSerialize, err)
	}
	return b, nil
}

// Unmarshal parses payload bytes back into a flex value tree.
func Unmarshal(payload []byte) (wire.Value, error) {
	v, err := wire.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrDeserialize, err)
	}
	return v, nil
}

// --- scalar encode helpers ---

func EncodeBool(v bool) wire.Value       { return v }
func EncodeInt(v int64) wire.Value       { return v }
func EncodeUInt(v uint64) wire.Value     { return v }
func EncodeFloat32(v float32) wire.Value { return v }
func EncodeFloat64(v float64) wire.Value { return v }
func EncodeString(v string) wire.Value   { return v }
func EncodeBytes(v []byte) wire.Value    { return v }
func EncodeEmpty() wire.Value            { return nil }

// EncodeNodeID renders a node reference as its bare u64 id — the transport
// payload for any node-typed argument, capability-polymorphic stubs
// included.
func EncodeNodeID(id uint64) wire.Value { return id }

// EncodeFd pushes fd into ctx and returns the sentinel index the payload
// carries in its place.
func EncodeFd(ctx *fdctx.EncodeContext, fd int) wire.Value {
	return uint64(ctx.Push(fd))
}

// EncodeStruct strips field names: the generated binding knows the
// declared field order, so the wire form is a plain positional vector.
func EncodeStruct(fields ...wire.Value) wire.Value {
	return wire.Value(append([]wire.Value{}, fields...))
}

// EncodeVec encodes Vec<T> by recursively encoding each element; callers
// pass already-encoded elements.
func EncodeVec(items []wire.Value) wire.Value {
	if items == nil {
		items = []wire.Value{}
	}
	return wire.Value(items)
}

// EncodeMap encodes Map<String, T>; callers pass already-encoded values.
func EncodeMap(m map[string]wire.Value) wire.Value {
	if m == nil {
		m = map[string]wire.Value{}
	}
	return wire.Value(m)
}

// EncodeOptional emits the codec's null singleton when absent, otherwise
// the already-encoded inner value.
func EncodeOptional(present bool, inner wire.Value) wire.Value {
	if !present {
		return nil
	}
	return inner
}

// EncodeEnum encodes an enum as its u32 discriminant.
func EncodeEnum(discriminant uint32) wire.Value {
	return uint64(discriminant)
}

// EncodeUnion encodes a tagged union as [tag_string, value].
func EncodeUnion(tag string, value wire.Value) wire.Value {
	return wire.Value([]wire.Value{tag, value})
}

// EncodeColor emits [r, g, b, a] in linear space.
func EncodeColor(r, g, b, a float32) wire.Value {
	return wire.Value([]wire.Value{r, g, b, a})
}

// EncodeVec2/EncodeVec3/EncodeQuat/EncodeMat4 flatten fixed-arity float
// vectors.

func EncodeVec2(x, y float32) wire.Value {
	return wire.Value([]wire.Value{x, y})
}

func EncodeVec3(x, y, z float32) wire.Value {
	return wire.Value([]wire.Value{x, y, z})
}

func EncodeQuat(x, y, z, w float32) wire.Value {
	return wire.Value([]wire.Value{x, y, z, w})
}

func EncodeMat4(m [16]float32) wire.Value {
	out := make([]wire.Value, 16)
	for i, f := range m {
		out[i] = f
	}
	return wire.Value(out)
}

// --- decode helpers (mirror of the above, erroring with errs.ErrDeserialize) ---

func decodeErr(want string, v wire.Value) error {
	return fmt.Errorf("%w: expected %s, got %T", errs.ErrDeserialize, want, v)
}

func DecodeBool(v wire.Value) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, decodeErr("bool", v)
	}
	return b, nil
}

// toInt64/toUint64/toFloat64 normalize the numeric representation the
// msgpack decoder hands back (which may narrow or widen depending on the
// encoded width) into the caller's requested type.
func toInt64(v wire.Value) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	case uint:
		return int64(n), true
	}
	return 0, false
}

func toUint64(v wire.Value) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case uint:
		return uint64(n), true
	case int64:
		return uint64(n), true
	case int:
		return uint64(n), true
	}
	return 0, false
}

func toFloat64(v wire.Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

func DecodeInt(v wire.Value) (int64, error) {
	i, ok := toInt64(v)
	if !ok {
		return 0, decodeErr("int", v)
	}
	return i, nil
}

func DecodeUInt(v wire.Value) (uint64, error) {
	u, ok := toUint64(v)
	if !ok {
		return 0, decodeErr("uint", v)
	}
	return u, nil
}

func DecodeFloat32(v wire.Value) (float32, error) {
	f, ok := toFloat64(v)
	if !ok {
		return 0, decodeErr("float32", v)
	}
	return float32(f), nil
}

func DecodeFloat64(v wire.Value) (float64, error) {
	f, ok := toFloat64(v)
	if !ok {
		return 0, decodeErr("float64", v)
	}
	return f, nil
}

func DecodeString(v wire.Value) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", decodeErr("string", v)
	}
	return s, nil
}

func DecodeBytes(v wire.Value) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, decodeErr("bytes", v)
	}
	return b, nil
}

func DecodeNodeID(v wire.Value) (uint64, error) {
	return DecodeUInt(v)
}

// DecodeFd pops the next FD from ctx. v is the sentinel index written at
// encode time; it must match the pop position exactly, or the frame's FDs
// and payload have drifted out of sync.
func DecodeFd(ctx *fdctx.DecodeContext, v wire.Value) (int, error) {
	idx, err := DecodeUInt(v)
	if err != nil {
		return -1, err
	}
	if idx != uint64(ctx.Consumed()) {
		return -1, errs.ErrFDCountMismatch
	}
	return ctx.Pop()
}

func DecodeStructFields(v wire.Value) ([]wire.Value, error) {
	vec, ok := v.([]wire.Value)
	if !ok {
		return nil, decodeErr("struct vector", v)
	}
	return vec, nil
}

func DecodeVec(v wire.Value) ([]wire.Value, error) {
	return DecodeStructFields(v)
}

func DecodeMap(v wire.Value) (map[string]wire.Value, error) {
	m, ok := v.(map[string]wire.Value)
	if !ok {
		return nil, decodeErr("map", v)
	}
	return m, nil
}

func DecodeOptional(v wire.Value) (present bool, inner wire.Value) {
	if v == nil {
		return false, nil
	}
	return true, v
}

func DecodeEnum(v wire.Value) (uint32, error) {
	u, err := DecodeUInt(v)
	if err != nil {
		return 0, err
	}
	return uint32(u), nil
}

func DecodeUnion(v wire.Value) (tag string, inner wire.Value, err error) {
	vec, ok := v.([]wire.Value)
	if !ok || len(vec) != 2 {
		err = decodeErr("2-element union vector", v)
		return
	}
	tag, err = DecodeString(vec[0])
	if err != nil {
		return
	}
	inner = vec[1]
	return
}

func DecodeColor(v wire.Value) (r, g, b, a float32, err error) {
	vec, derr := DecodeVec(v)
	if derr != nil || len(vec) != 4 {
		err = decodeErr("4-element color vector", v)
		return
	}
	r, err = DecodeFloat32(vec[0])
	if err != nil {
		return
	}
	g, err = DecodeFloat32(vec[1])
	if err != nil {
		return
	}
	b, err = DecodeFloat32(vec[2])
	if err != nil {
		return
	}
	a, err = DecodeFloat32(vec[3])
	return
}

func decodeFloatVec(v wire.Value, n int) ([]float32, error) {
	vec, err := DecodeVec(v)
	if err != nil || len(vec) != n {
		return nil, decodeErr(fmt.Sprintf("%d-element float vector", n), v)
	}
	out := make([]float32, n)
	for i, e := range vec {
		f, ferr := DecodeFloat32(e)
		if ferr != nil {
			return nil, ferr
		}
		out[i] = f
	}
	return out, nil
}

func DecodeVec2(v wire.Value) (x, y float32, err error) {
	f, err := decodeFloatVec(v, 2)
	if err != nil {
		return
	}
	return f[0], f[1], nil
}

func DecodeVec3(v wire.Value) (x, y, z float32, err error) {
	f, err := decodeFloatVec(v, 3)
	if err != nil {
		return
	}
	return f[0], f[1], f[2], nil
}

func DecodeQuat(v wire.Value) (x, y, z, w float32, err error) {
	f, err := decodeFloatVec(v, 4)
	if err != nil {
		return
	}
	return f[0], f[1], f[2], f[3], nil
}

func DecodeMat4(v wire.Value) (m [16]float32, err error) {
	f, err := decodeFloatVec(v, 16)
	if err != nil {
		return
	}
	copy(m[:], f)
	return
}
