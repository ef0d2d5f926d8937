package idl

import "errors"

// Sentinel parse-time errors; wrapped with fmt.Errorf("%w: ...") for
// context where one matters more than the other.
var (
	ErrMissingVersion        = errors.New("idl: missing or invalid protocol version")
	ErrMissingDescription    = errors.New("idl: missing description")
	ErrMissingInterfacePath  = errors.New("idl: protocol declares members but no interface node id")
	ErrMissingProperty       = errors.New("idl: missing property")
	ErrInvalidPropertyType   = errors.New("idl: invalid property type")
	ErrInvalidArgumentType   = errors.New("idl: invalid argument type")
	ErrAspectOpcodeCollision = errors.New("idl: two members of one aspect hash to the same opcode")
)
