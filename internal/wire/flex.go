// Package wire implements the inner self-describing value tree ("flex")
// that the payload codec builds structured arguments on top of: bools,
// signed/unsigned integers, 32/64-bit floats, strings, byte blobs, ordered
// vectors, and string-keyed maps. It carries no struct field names or type
// hints beyond what msgpack's own wire types already encode.
package wire

import (
	"bytes"
	"fmt"

	"github.com/hashicorp/go-msgpack/codec"
)

// Value is a node in the flex tree. The permitted dynamic types are: nil,
// bool, int64, uint64, float32, float64, string, []byte, []Value, and
// map[string]Value. Any other dynamic type is a programmer error in a
// caller, not a wire condition.
type Value interface{}

var handle = &codec.MsgpackHandle{}

func init() {
	handle.RawToString = true
	handle.WriteExt = true
}

// Encode renders a flex value tree to bytes.
func Encode(v Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, handle)
	if err := enc.Encode(normalize(v)); err != nil {
		return nil, fmt.Errorf("wire: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses bytes back into a flex value tree. Maps decode as
// map[string]Value (handle.RawToString decodes raw keys as strings and
// reshape stringifies any other key); vectors decode as []Value.
func Decode(b []byte) (Value, error) {
	var out interface{}
	dec := codec.NewDecoderBytes(b, handle)
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("wire: decode: %w", err)
	}
	return reshape(out), nil
}

// normalize does not widen numeric types: the narrow Go numeric types
// callers might pass (int, int32, uint32, ...) are left to codec's own
// reflection-based encoding; normalize only recurses into the flex
// container types so nested Values round-trip through the same path.
func normalize(v Value) interface{} {
	switch t := v.(type) {
	case []Value:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case map[string]Value:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	default:
		return v
	}
}

// reshape converts codec's generic decode output (map[interface{}]interface{}
// / []interface{} / raw numeric types) into the flex Value shape so callers
// never need to type-switch on codec internals.
func reshape(v interface{}) Value {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			ks, ok := k.(string)
			if !ok {
				ks = fmt.Sprintf("%v", k)
			}
			out[ks] = reshape(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			out[k] = reshape(e)
		}
		return out
	case []interface{}:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = reshape(e)
		}
		return out
	default:
		return t
	}
}
