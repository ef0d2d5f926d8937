// Package wireargs is the runtime support library generated bindings
// (package codegen's output, and the hand-adapted example in package
// protocol) call into for the universal argument kinds every member
// signature can carry: scalars, fixed-arity float vectors, bytes,
// node ids, datamaps, resource ids, and file descriptors.
//
// Structured custom types (enum/union/struct declarations) get their
// own per-type, per-field encode/decode emitted directly by codegen's
// struct/enum/union templates rather than funneled through here — a
// shared runtime helper can't know a user-declared type's field shape
// without a type dictionary codegen already has at generation time.
package wireargs

import (
	"fmt"

	"github.com/stardustxr/client-go/codec"
	"github.com/stardustxr/client-go/errs"
	"github.com/stardustxr/client-go/fdctx"
	"github.com/stardustxr/client-go/idl"
	"github.com/stardustxr/client-go/internal/wire"
)

// ErrUnsupportedKind is returned for an idl.ArgumentKind this package
// doesn't carry a universal encoding for (custom enum/union/struct
// references) — those are codegen's responsibility.
var ErrUnsupportedKind = fmt.Errorf("wireargs: kind requires a generated per-type codec")

// Encode renders a Go value for argument type t into the flex tree
// codec.Marshal ultimately serializes. fdc is only consulted for
// Fd-typed arguments and may be nil otherwise.
func Encode(t idl.ArgumentType, v interface{}, fdc *fdctx.EncodeContext) (wire.Value, error) {
	switch t.Kind {
	case idl.Empty:
		return codec.EncodeEmpty(), nil
	case idl.Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, typeErr("bool", v)
		}
		return codec.EncodeBool(b), nil
	case idl.Int:
		i, ok := v.(int64)
		if !ok {
			return nil, typeErr("int64", v)
		}
		return codec.EncodeInt(i), nil
	case idl.UInt:
		u, ok := v.(uint64)
		if !ok {
			return nil, typeErr("uint64", v)
		}
		return codec.EncodeUInt(u), nil
	case idl.Float:
		f, ok := v.(float32)
		if !ok {
			return nil, typeErr("float32", v)
		}
		return codec.EncodeFloat32(f), nil
	case idl.String:
		s, ok := v.(string)
		if !ok {
			return nil, typeErr("string", v)
		}
		return codec.EncodeString(s), nil
	case idl.Bytes:
		b, ok := v.([]byte)
		if !ok {
			return nil, typeErr("[]byte", v)
		}
		return codec.EncodeBytes(b), nil
	case idl.Color:
		c, ok := v.([4]float32)
		if !ok {
			return nil, typeErr("[4]float32", v)
		}
		return codec.EncodeColor(c[0], c[1], c[2], c[3]), nil
	case idl.Vec2:
		c, ok := v.([2]float32)
		if !ok {
			return nil, typeErr("[2]float32", v)
		}
		return codec.EncodeVec2(c[0], c[1]), nil
	case idl.Vec3:
		c, ok := v.([3]float32)
		if !ok {
			return nil, typeErr("[3]float32", v)
		}
		return codec.EncodeVec3(c[0], c[1], c[2]), nil
	case idl.Quat:
		c, ok := v.([4]float32)
		if !ok {
			return nil, typeErr("[4]float32 (quat)", v)
		}
		return codec.EncodeQuat(c[0], c[1], c[2], c[3]), nil
	case idl.Mat4:
		m, ok := v.([16]float32)
		if !ok {
			return nil, typeErr("[16]float32", v)
		}
		return codec.EncodeMat4(m), nil
	case idl.NodeID, idl.NodeRef:
		id, ok := v.(uint64)
		if !ok {
			return nil, typeErr("uint64 (node id)", v)
		}
		return codec.EncodeNodeID(id), nil
	case idl.Datamap:
		b, ok := v.([]byte)
		if !ok {
			return nil, typeErr("[]byte (datamap)", v)
		}
		return codec.EncodeBytes(b), nil
	case idl.ResourceID:
		s, ok := v.(string)
		if !ok {
			return nil, typeErr("string (resource id)", v)
		}
		return codec.EncodeString(s), nil
	case idl.Fd:
		fd, ok := v.(int)
		if !ok {
			return nil, typeErr("int (fd)", v)
		}
		if fdc == nil {
			return nil, fmt.Errorf("wireargs: Fd argument encoded with a nil fd context")
		}
		return codec.EncodeFd(fdc, fd), nil
	case idl.Vec:
		items, ok := v.([]interface{})
		if !ok {
			return nil, typeErr("[]interface{}", v)
		}
		encoded := make([]wire.Value, len(items))
		for i, item := range items {
			ev, err := Encode(*t.Member, item, fdc)
			if err != nil {
				return nil, err
			}
			encoded[i] = ev
		}
		return codec.EncodeVec(encoded), nil
	case idl.Map:
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, typeErr("map[string]interface{}", v)
		}
		encoded := make(map[string]wire.Value, len(m))
		for k, item := range m {
			ev, err := Encode(*t.Value, item, fdc)
			if err != nil {
				return nil, err
			}
			encoded[k] = ev
		}
		return codec.EncodeMap(encoded), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKind, t.Kind)
	}
}

// Decode is Encode's mirror, given the flex value a frame carried and
// the argument type describing how to interpret it.
func Decode(t idl.ArgumentType, v wire.Value, fdc *fdctx.DecodeContext) (interface{}, error) {
	switch t.Kind {
	case idl.Empty:
		return nil, nil
	case idl.Bool:
		return codec.DecodeBool(v)
	case idl.Int:
		return codec.DecodeInt(v)
	case idl.UInt:
		return codec.DecodeUInt(v)
	case idl.Float:
		return codec.DecodeFloat32(v)
	case idl.String:
		return codec.DecodeString(v)
	case idl.Bytes:
		return codec.DecodeBytes(v)
	case idl.Color:
		r, g, b, a, err := codec.DecodeColor(v)
		if err != nil {
			return nil, err
		}
		return [4]float32{r, g, b, a}, nil
	case idl.Vec2:
		x, y, err := codec.DecodeVec2(v)
		if err != nil {
			return nil, err
		}
		return [2]float32{x, y}, nil
	case idl.Vec3:
		x, y, z, err := codec.DecodeVec3(v)
		if err != nil {
			return nil, err
		}
		return [3]float32{x, y, z}, nil
	case idl.Quat:
		x, y, z, w, err := codec.DecodeQuat(v)
		if err != nil {
			return nil, err
		}
		return [4]float32{x, y, z, w}, nil
	case idl.Mat4:
		return codec.DecodeMat4(v)
	case idl.NodeID, idl.NodeRef:
		return codec.DecodeNodeID(v)
	case idl.Datamap:
		return codec.DecodeBytes(v)
	case idl.ResourceID:
		return codec.DecodeString(v)
	case idl.Fd:
		if fdc == nil {
			return nil, fmt.Errorf("wireargs: Fd argument decoded with a nil fd context")
		}
		return codec.DecodeFd(fdc, v)
	case idl.Vec:
		items, err := codec.DecodeVec(v)
		if err != nil {
			return nil, err
		}
		out := make([]interface{}, len(items))
		for i, item := range items {
			dv, err := Decode(*t.Member, item, fdc)
			if err != nil {
				return nil, err
			}
			out[i] = dv
		}
		return out, nil
	case idl.Map:
		m, err := codec.DecodeMap(v)
		if err != nil {
			return nil, err
		}
		out := make(map[string]interface{}, len(m))
		for k, item := range m {
			dv, err := Decode(*t.Value, item, fdc)
			if err != nil {
				return nil, err
			}
			out[k] = dv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKind, t.Kind)
	}
}

func typeErr(want string, v interface{}) error {
	return fmt.Errorf("%w: expected %s, got %T", errs.ErrSerialize, want, v)
}
