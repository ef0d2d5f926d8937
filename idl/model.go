// Package idl parses a protocol description document into the in-memory
// model the binding generator (package codegen) consumes: enums, unions,
// structs, aspects, and their members.
package idl

// ArgumentKind enumerates the primitive and composite shapes an argument,
// struct field, or return type can take (§3's ArgumentType).
type ArgumentKind int

const (
	Empty ArgumentKind = iota
	Bool
	Int
	UInt
	Float
	Vec2
	Vec3
	Quat
	Mat4
	String
	Color
	Bytes
	Vec
	Map
	NodeID
	Datamap
	ResourceID
	EnumRef
	UnionRef
	StructRef
	NodeRef
	Fd
)

// ArgumentType is a tagged union over ArgumentKind; only the fields
// relevant to Kind are populated.
type ArgumentType struct {
	Kind ArgumentKind

	// Vec2/Vec3's element type; defaults to Float when absent in the
	// document (original_source's convert_argument_type default).
	Component *ArgumentType
	// Vec's element type.
	Member *ArgumentType
	// Map's value type (keys are always strings).
	Value *ArgumentType

	// EnumRef/UnionRef/StructRef's referenced declaration name.
	RefName string

	// NodeRef's required aspect name and, for constructor-style
	// arguments, the name of the argument the server treats as the
	// identifier of a node it creates as a side effect.
	NodeAspect        string
	ReturnIDParamName string
}

// Argument is one member argument or struct field.
type Argument struct {
	Name        string
	Description string
	Type        ArgumentType
	Optional    bool
}

// MemberKind distinguishes a fire-and-forget signal from a
// request/response method.
type MemberKind int

const (
	Signal MemberKind = iota
	Method
)

// Side says which end of the session originates a member's call, which
// is the inverse of who the generated binding hands the member to:
//
//   - Server: the client originates the call. codegen emits an
//     invocation stub the client calls (a signal send or a method
//     call awaiting a reply); the server is the side that parses it.
//   - Client: the server originates the call. codegen emits a parse
//     arm in the client's event sum type; the client receives it as
//     a dispatched event, never calls it directly.
type Side int

const (
	Server Side = iota
	Client
)

// Member is one signal or method declared inside an aspect (or, for the
// interface's own members, at the protocol's top level).
type Member struct {
	Name        string
	Opcode      uint64
	Description string
	Side        Side
	Kind        MemberKind
	Arguments   []Argument
	ReturnType  *ArgumentType
}

// Aspect is a capability: a stable id, a set of inherited aspects (kept
// by declared name; the parser does not resolve them to ids), and its
// members.
type Aspect struct {
	Name        string
	ID          uint64
	Description string
	Inherits    []string
	Members     []Member
}

// CustomEnum is a closed set of named variants.
type CustomEnum struct {
	Name        string
	Description string
	Variants    []string
}

// UnionOption is one arm of a tagged union.
type UnionOption struct {
	Name        string
	Description string
	Type        ArgumentType
}

// CustomUnion is a tagged union over a set of named/typed options.
type CustomUnion struct {
	Name        string
	Description string
	Options     []UnionOption
}

// CustomStruct is a named, ordered set of fields.
type CustomStruct struct {
	Name        string
	Description string
	Fields      []Argument
}

// Interface is the process-wide factory node a protocol routes its
// top-level (non-aspect) members through.
type Interface struct {
	NodeID  uint64
	Members []Member
}

// Protocol is the complete parse result of one document.
type Protocol struct {
	Version       uint32
	Description   string
	Interface     *Interface
	CustomEnums   []CustomEnum
	CustomUnions  []CustomUnion
	CustomStructs []CustomStruct
	Aspects       []Aspect
}

// AspectByName looks up a declared aspect, for resolving Inherits lists
// or Node-argument aspect references.
func (p *Protocol) AspectByName(name string) (*Aspect, bool) {
	for i := range p.Aspects {
		if p.Aspects[i].Name == name {
			return &p.Aspects[i], true
		}
	}
	return nil, false
}
