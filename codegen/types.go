package codegen

import (
	"fmt"

	"github.com/stardustxr/client-go/idl"
)

// goType renders the Go type a value of argument type t is represented as
// in generated signatures. Custom enum/union/struct references resolve to
// the Go type codegen itself emits for that declaration elsewhere in the
// same file.
func goType(t idl.ArgumentType) (string, error) {
	switch t.Kind {
	case idl.Empty:
		return "struct{}", nil
	case idl.Bool:
		return "bool", nil
	case idl.Int:
		return "int64", nil
	case idl.UInt:
		return "uint64", nil
	case idl.Float:
		return "float32", nil
	case idl.Vec2:
		return "[2]float32", nil
	case idl.Vec3:
		return "[3]float32", nil
	case idl.Quat:
		return "[4]float32", nil
	case idl.Mat4:
		return "[16]float32", nil
	case idl.String:
		return "string", nil
	case idl.Color:
		return "[4]float32", nil
	case idl.Bytes:
		return "[]byte", nil
	case idl.NodeID, idl.NodeRef:
		return "uint64", nil
	case idl.Datamap:
		return "[]byte", nil
	case idl.ResourceID:
		return "string", nil
	case idl.Fd:
		return "int", nil
	case idl.Vec:
		if t.Member == nil {
			return "", fmt.Errorf("codegen: Vec argument type missing Member")
		}
		inner, err := goType(*t.Member)
		if err != nil {
			return "", err
		}
		return "[]" + inner, nil
	case idl.Map:
		if t.Value == nil {
			return "", fmt.Errorf("codegen: Map argument type missing Value")
		}
		inner, err := goType(*t.Value)
		if err != nil {
			return "", err
		}
		return "map[string]" + inner, nil
	case idl.EnumRef, idl.UnionRef, idl.StructRef:
		return exportIdent(t.RefName), nil
	default:
		return "", fmt.Errorf("codegen: unknown argument kind %d", t.Kind)
	}
}

// isCustom reports whether t is encoded/decoded through a generated
// per-type function (true) or through wireargs.Encode/Decode directly
// (false).
func isCustom(t idl.ArgumentType) bool {
	return t.Kind == idl.EnumRef || t.Kind == idl.UnionRef || t.Kind == idl.StructRef
}

// argTypeLiteral renders t as a Go expression constructing the matching
// idl.ArgumentType value, for embedding directly in generated calls to
// wireargs.Encode/Decode. Recurses for Vec/Map members.
func argTypeLiteral(t idl.ArgumentType) string {
	switch t.Kind {
	case idl.Vec:
		return fmt.Sprintf("idl.ArgumentType{Kind: idl.Vec, Member: &idl.ArgumentType{Kind: idl.%s}}", kindName(t.Member.Kind))
	case idl.Map:
		return fmt.Sprintf("idl.ArgumentType{Kind: idl.Map, Value: &idl.ArgumentType{Kind: idl.%s}}", kindName(t.Value.Kind))
	default:
		return fmt.Sprintf("idl.ArgumentType{Kind: idl.%s}", kindName(t.Kind))
	}
}

func kindName(k idl.ArgumentKind) string {
	switch k {
	case idl.Empty:
		return "Empty"
	case idl.Bool:
		return "Bool"
	case idl.Int:
		return "Int"
	case idl.UInt:
		return "UInt"
	case idl.Float:
		return "Float"
	case idl.Vec2:
		return "Vec2"
	case idl.Vec3:
		return "Vec3"
	case idl.Quat:
		return "Quat"
	case idl.Mat4:
		return "Mat4"
	case idl.String:
		return "String"
	case idl.Color:
		return "Color"
	case idl.Bytes:
		return "Bytes"
	case idl.Vec:
		return "Vec"
	case idl.Map:
		return "Map"
	case idl.NodeID:
		return "NodeID"
	case idl.Datamap:
		return "Datamap"
	case idl.ResourceID:
		return "ResourceID"
	case idl.EnumRef:
		return "EnumRef"
	case idl.UnionRef:
		return "UnionRef"
	case idl.StructRef:
		return "StructRef"
	case idl.NodeRef:
		return "NodeRef"
	case idl.Fd:
		return "Fd"
	default:
		return "Empty"
	}
}
