package codec

import (
	"github.com/stardustxr/client-go/errs"
	"github.com/stardustxr/client-go/internal/wire"
)

// Datamap is an opaque string-keyed map payload, carried across the wire as
// raw bytes and reparsed on demand. It must be a valid map at the root or
// construction rejects it outright — a datamap can never reach a consumer
// in an invalid shape.
type Datamap struct {
	raw []byte
}

// NewDatamap validates m and wraps its encoded form.
func NewDatamap(m map[string]wire.Value) (Datamap, error) {
	raw, err := Marshal(wire.Value(m))
	if err != nil {
		return Datamap{}, err
	}
	return Datamap{raw: raw}, nil
}

// ParseDatamap validates that raw decodes to a map at its root and wraps
// it; it does not eagerly materialize the map.
func ParseDatamap(raw []byte) (Datamap, error) {
	v, err := Unmarshal(raw)
	if err != nil {
		return Datamap{}, err
	}
	if _, ok := v.(map[string]wire.Value); !ok {
		return Datamap{}, errs.ErrMapInvalid
	}
	return Datamap{raw: raw}, nil
}

// Raw returns the encoded bytes, the form carried on the wire.
func (d Datamap) Raw() []byte {
	return d.raw
}

// Value reparses the datamap into its map form on demand.
func (d Datamap) Value() (map[string]wire.Value, error) {
	v, err := Unmarshal(d.raw)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]wire.Value)
	if !ok {
		return nil, errs.ErrMapInvalid
	}
	return m, nil
}
