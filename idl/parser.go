package idl

import (
	"fmt"

	"github.com/stardustxr/client-go/hash"
)

// Parse converts a protocol description document's source text into a
// Protocol (§4.8). Opcodes and aspect ids are computed from the
// declared (pre-casing-conversion) name via the same stable hash the
// runtime uses for wire compatibility (I6); Go identifier casing is
// entirely codegen's concern, not this package's.
func Parse(src string) (*Protocol, error) {
	nodes, err := parseDocument(src)
	if err != nil {
		return nil, err
	}
	return convertDocument(nodes)
}

func convertDocument(nodes []*rawNode) (*Protocol, error) {
	version, err := protocolVersion(nodes)
	if err != nil {
		return nil, err
	}
	descNode := firstNamed(nodes, "description")
	if descNode == nil {
		return nil, fmt.Errorf("%w: protocol", ErrMissingDescription)
	}
	description, err := stringAt(descNode, 0)
	if err != nil {
		return nil, err
	}

	var topLevelMembers []*rawNode
	for _, n := range nodes {
		if n.name == "signal" || n.name == "method" {
			topLevelMembers = append(topLevelMembers, n)
		}
	}

	var iface *Interface
	ifaceNode := firstNamed(nodes, "interface")
	if ifaceNode == nil {
		if len(topLevelMembers) > 0 {
			return nil, ErrMissingInterfacePath
		}
	} else {
		nodeID, err := intAt(ifaceNode, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: interface node id: %v", ErrInvalidPropertyType, err)
		}
		members, err := convertMembers(topLevelMembers)
		if err != nil {
			return nil, err
		}
		iface = &Interface{NodeID: uint64(nodeID), Members: members}
	}

	var customEnums []CustomEnum
	for _, n := range filterNamed(nodes, "enum") {
		e, err := convertEnum(n)
		if err != nil {
			return nil, err
		}
		customEnums = append(customEnums, e)
	}

	var customUnions []CustomUnion
	for _, n := range filterNamed(nodes, "union") {
		u, err := convertUnion(n)
		if err != nil {
			return nil, err
		}
		customUnions = append(customUnions, u)
	}

	var customStructs []CustomStruct
	for _, n := range filterNamed(nodes, "struct") {
		s, err := convertStruct(n)
		if err != nil {
			return nil, err
		}
		customStructs = append(customStructs, s)
	}

	var aspects []Aspect
	for _, n := range filterNamed(nodes, "aspect") {
		a, err := convertAspect(n)
		if err != nil {
			return nil, err
		}
		aspects = append(aspects, a)
	}

	return &Protocol{
		Version:       uint32(version),
		Description:   description,
		Interface:     iface,
		CustomEnums:   customEnums,
		CustomUnions:  customUnions,
		CustomStructs: customStructs,
		Aspects:       aspects,
	}, nil
}

func protocolVersion(nodes []*rawNode) (int64, error) {
	n := firstNamed(nodes, "version")
	if n == nil {
		return 0, ErrMissingVersion
	}
	v, err := intAt(n, 0)
	if err != nil || v < 0 {
		return 0, ErrMissingVersion
	}
	return v, nil
}

func convertEnum(n *rawNode) (CustomEnum, error) {
	name, err := stringAt(n, 0)
	if err != nil {
		return CustomEnum{}, err
	}
	description, err := descriptionOf(n)
	if err != nil {
		return CustomEnum{}, err
	}
	var variants []string
	for _, v := range filterNamed(n.children, "variant") {
		s, err := stringAt(v, 0)
		if err != nil {
			return CustomEnum{}, err
		}
		variants = append(variants, s)
	}
	return CustomEnum{Name: name, Description: description, Variants: variants}, nil
}

func convertUnion(n *rawNode) (CustomUnion, error) {
	name, err := stringAt(n, 0)
	if err != nil {
		return CustomUnion{}, err
	}
	description, err := descriptionOf(n)
	if err != nil {
		return CustomUnion{}, err
	}
	var options []UnionOption
	for _, o := range filterNamed(n.children, "option") {
		name, _ := stringProp(o, "name")
		desc, _ := stringProp(o, "description")
		typ, err := convertArgumentType(o, "type")
		if err != nil {
			return CustomUnion{}, err
		}
		options = append(options, UnionOption{Name: name, Description: desc, Type: typ})
	}
	return CustomUnion{Name: name, Description: description, Options: options}, nil
}

func convertStruct(n *rawNode) (CustomStruct, error) {
	name, err := stringAt(n, 0)
	if err != nil {
		return CustomStruct{}, err
	}
	description, err := descriptionOf(n)
	if err != nil {
		return CustomStruct{}, err
	}
	var fields []Argument
	for _, f := range filterNamed(n.children, "field") {
		arg, err := convertArgument(f)
		if err != nil {
			return CustomStruct{}, err
		}
		fields = append(fields, arg)
	}
	return CustomStruct{Name: name, Description: description, Fields: fields}, nil
}

func convertAspect(n *rawNode) (Aspect, error) {
	name, err := stringAt(n, 0)
	if err != nil {
		return Aspect{}, err
	}
	description, err := descriptionOf(n)
	if err != nil {
		return Aspect{}, err
	}
	var inherits []string
	for _, in := range filterNamed(n.children, "inherits") {
		s, err := stringAt(in, 0)
		if err != nil {
			return Aspect{}, err
		}
		inherits = append(inherits, s)
	}
	var memberNodes []*rawNode
	for _, c := range n.children {
		if c.name == "signal" || c.name == "method" {
			memberNodes = append(memberNodes, c)
		}
	}
	members, err := convertMembers(memberNodes)
	if err != nil {
		return Aspect{}, err
	}
	if err := checkOpcodeCollisions(members); err != nil {
		return Aspect{}, fmt.Errorf("%w: aspect %q", err, name)
	}
	return Aspect{
		Name:        name,
		ID:          hash.Name(name),
		Description: description,
		Inherits:    inherits,
		Members:     members,
	}, nil
}

// checkOpcodeCollisions rejects any two members of one aspect that hash
// to the same opcode, whether from an accidental hash collision between
// distinct names or the same member declared twice — either way, the
// opcode no longer uniquely addresses a member within the aspect.
func checkOpcodeCollisions(members []Member) error {
	seen := map[uint64]bool{}
	for _, m := range members {
		if seen[m.Opcode] {
			return ErrAspectOpcodeCollision
		}
		seen[m.Opcode] = true
	}
	return nil
}

func convertMembers(nodes []*rawNode) ([]Member, error) {
	var members []Member
	for _, n := range nodes {
		m, err := convertMember(n)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func convertMember(n *rawNode) (Member, error) {
	var kind MemberKind
	switch n.name {
	case "signal":
		kind = Signal
	case "method":
		kind = Method
	default:
		return Member{}, fmt.Errorf("%w: %q is not signal or method", ErrInvalidArgumentType, n.name)
	}

	sideStr, err := stringProp(n, "side")
	if err != nil {
		return Member{}, err
	}
	var side Side
	switch sideStr {
	case "server":
		side = Server
	case "client":
		side = Client
	default:
		return Member{}, fmt.Errorf("%w: side %q", ErrInvalidPropertyType, sideStr)
	}

	name, err := stringAt(n, 0)
	if err != nil {
		return Member{}, err
	}
	description, err := descriptionOf(n)
	if err != nil {
		return Member{}, err
	}

	var args []Argument
	for _, a := range filterNamed(n.children, "argument") {
		arg, err := convertArgument(a)
		if err != nil {
			return Member{}, err
		}
		args = append(args, arg)
	}

	var returnType *ArgumentType
	if rn := firstNamed(n.children, "return"); rn != nil {
		rt, err := convertArgumentType(rn, "type")
		if err != nil {
			return Member{}, err
		}
		returnType = &rt
	}

	return Member{
		Name:        name,
		Opcode:      hash.Name(name),
		Description: description,
		Side:        side,
		Kind:        kind,
		Arguments:   args,
		ReturnType:  returnType,
	}, nil
}

func convertArgument(n *rawNode) (Argument, error) {
	name, err := stringAt(n, 0)
	if err != nil {
		return Argument{}, err
	}
	description, _ := stringProp(n, "description")
	typ, err := convertArgumentType(n, "type")
	if err != nil {
		return Argument{}, err
	}
	optional, _ := boolProp(n, "optional")
	return Argument{Name: name, Description: description, Type: typ, Optional: optional}, nil
}

func convertArgumentType(n *rawNode, key string) (ArgumentType, error) {
	kind, err := stringProp(n, key)
	if err != nil {
		return ArgumentType{}, err
	}
	switch kind {
	case "empty":
		return ArgumentType{Kind: Empty}, nil
	case "bool":
		return ArgumentType{Kind: Bool}, nil
	case "int":
		return ArgumentType{Kind: Int}, nil
	case "uint":
		return ArgumentType{Kind: UInt}, nil
	case "float":
		return ArgumentType{Kind: Float}, nil
	case "vec2":
		comp := defaultComponent(n)
		return ArgumentType{Kind: Vec2, Component: comp}, nil
	case "vec3":
		comp := defaultComponent(n)
		return ArgumentType{Kind: Vec3, Component: comp}, nil
	case "quat":
		return ArgumentType{Kind: Quat}, nil
	case "mat4":
		return ArgumentType{Kind: Mat4}, nil
	case "string":
		return ArgumentType{Kind: String}, nil
	case "color":
		return ArgumentType{Kind: Color}, nil
	case "bytes":
		return ArgumentType{Kind: Bytes}, nil
	case "vec":
		member, err := convertArgumentType(n, "member_type")
		if err != nil {
			return ArgumentType{}, err
		}
		return ArgumentType{Kind: Vec, Member: &member}, nil
	case "map":
		value, err := convertArgumentType(n, "value_type")
		if err != nil {
			return ArgumentType{}, err
		}
		return ArgumentType{Kind: Map, Value: &value}, nil
	case "id":
		return ArgumentType{Kind: NodeID}, nil
	case "datamap":
		return ArgumentType{Kind: Datamap}, nil
	case "resource":
		return ArgumentType{Kind: ResourceID}, nil
	case "enum":
		ref, err := stringProp(n, "enum")
		if err != nil {
			return ArgumentType{}, err
		}
		return ArgumentType{Kind: EnumRef, RefName: ref}, nil
	case "union":
		ref, err := stringProp(n, "union")
		if err != nil {
			return ArgumentType{}, err
		}
		return ArgumentType{Kind: UnionRef, RefName: ref}, nil
	case "struct":
		ref, err := stringProp(n, "struct")
		if err != nil {
			return ArgumentType{}, err
		}
		return ArgumentType{Kind: StructRef, RefName: ref}, nil
	case "node":
		aspect, err := stringProp(n, "aspect")
		if err != nil {
			aspect, err = stringProp(n, "node")
			if err != nil {
				return ArgumentType{}, err
			}
		}
		retParam, _ := stringProp(n, "id_argument")
		return ArgumentType{Kind: NodeRef, NodeAspect: aspect, ReturnIDParamName: retParam}, nil
	case "fd":
		return ArgumentType{Kind: Fd}, nil
	default:
		return ArgumentType{}, fmt.Errorf("%w: %q", ErrInvalidArgumentType, kind)
	}
}

// defaultComponent resolves vec2/vec3's optional component_type,
// defaulting to Float when absent, matching original_source's
// unwrap_or(ArgumentType::Float).
func defaultComponent(n *rawNode) *ArgumentType {
	comp, err := convertArgumentType(n, "component_type")
	if err != nil {
		return &ArgumentType{Kind: Float}
	}
	return &comp
}

func descriptionOf(n *rawNode) (string, error) {
	d := firstNamed(n.children, "description")
	if d == nil {
		return "", fmt.Errorf("%w: %q", ErrMissingDescription, n.name)
	}
	return stringAt(d, 0)
}

func firstNamed(nodes []*rawNode, name string) *rawNode {
	for _, n := range nodes {
		if n.name == name {
			return n
		}
	}
	return nil
}

func filterNamed(nodes []*rawNode, name string) []*rawNode {
	var out []*rawNode
	for _, n := range nodes {
		if n.name == name {
			out = append(out, n)
		}
	}
	return out
}

func stringAt(n *rawNode, idx int) (string, error) {
	v, ok := n.get(idx)
	if !ok {
		return "", fmt.Errorf("%w: %q argument %d", ErrMissingProperty, n.name, idx)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q argument %d is not a string", ErrInvalidPropertyType, n.name, idx)
	}
	return s, nil
}

func intAt(n *rawNode, idx int) (int64, error) {
	v, ok := n.get(idx)
	if !ok {
		return 0, fmt.Errorf("%w: %q argument %d", ErrMissingProperty, n.name, idx)
	}
	i, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: %q argument %d is not an int", ErrInvalidPropertyType, n.name, idx)
	}
	return i, nil
}

func stringProp(n *rawNode, key string) (string, error) {
	v, ok := n.get(key)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingProperty, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q on %q", ErrInvalidPropertyType, key, n.name)
	}
	return s, nil
}

func boolProp(n *rawNode, key string) (bool, error) {
	v, ok := n.get(key)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrMissingProperty, key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q on %q", ErrInvalidPropertyType, key, n.name)
	}
	return b, nil
}
