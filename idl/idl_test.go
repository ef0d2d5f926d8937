package idl

import (
	"testing"

	"github.com/stardustxr/client-go/hash"
)

const sampleDoc = `
version 1
description "sample protocol for tests"
interface 1

enum "Alignment" {
	description "text alignment"
	variant "left"
	variant "center"
	variant "right"
}

struct "Style" {
	description "a text style"
	field "size" type="float"
	field "align" type="enum" enum="Alignment"
}

union "Shape" {
	description "a field shape"
	option type="float" name="sphere" description="sphere radius"
	option type="struct" struct="Style" name="box"
}

aspect "Spatial" {
	description "a node with a transform"
	signal "setTransform" side="client" {
		description "sets the local transform"
		argument "position" type="vec3"
		argument "scale" type="vec3" optional=true
	}
}

aspect "Field" {
	description "a distance field"
	inherits "Spatial"
	method "distance" side="client" {
		description "queries distance to a point"
		argument "point" type="vec3"
		return type="float"
	}
}

signal "createSpatial" side="client" {
	description "creates a new spatial node"
	argument "id" type="node" node="Spatial" id_argument="id"
}
`

func TestParseSampleDocument(t *testing.T) {
	p, err := Parse(sampleDoc)
	if err != nil {
		t.Fatal(err)
	}

	if p.Version != 1 {
		t.Fatalf("expected version 1, got %d", p.Version)
	}
	if p.Description == "" {
		t.Fatal("expected a description")
	}
	if p.Interface == nil || p.Interface.NodeID != 1 {
		t.Fatalf("expected interface at node id 1, got %+v", p.Interface)
	}
	if len(p.Interface.Members) != 1 || p.Interface.Members[0].Name != "createSpatial" {
		t.Fatalf("expected one top-level member createSpatial, got %+v", p.Interface.Members)
	}

	if len(p.CustomEnums) != 1 || len(p.CustomEnums[0].Variants) != 3 {
		t.Fatalf("unexpected enums: %+v", p.CustomEnums)
	}
	if len(p.CustomStructs) != 1 || len(p.CustomStructs[0].Fields) != 2 {
		t.Fatalf("unexpected structs: %+v", p.CustomStructs)
	}
	if len(p.CustomUnions) != 1 || len(p.CustomUnions[0].Options) != 2 {
		t.Fatalf("unexpected unions: %+v", p.CustomUnions)
	}

	if len(p.Aspects) != 2 {
		t.Fatalf("expected 2 aspects, got %d", len(p.Aspects))
	}
	field, ok := p.AspectByName("Field")
	if !ok {
		t.Fatal("expected to find aspect Field")
	}
	if len(field.Inherits) != 1 || field.Inherits[0] != "Spatial" {
		t.Fatalf("expected Field to inherit Spatial, got %+v", field.Inherits)
	}

	distance := field.Members[0]
	if distance.ReturnType == nil || distance.ReturnType.Kind != Float {
		t.Fatalf("expected distance to return float, got %+v", distance.ReturnType)
	}
	if distance.Arguments[0].Type.Kind != Vec3 {
		t.Fatalf("expected point argument to be vec3, got %+v", distance.Arguments[0].Type)
	}
}

func TestAspectAndOpcodeIDsAreStableHashes(t *testing.T) {
	// I6
	p, err := Parse(sampleDoc)
	if err != nil {
		t.Fatal(err)
	}
	spatial, ok := p.AspectByName("Spatial")
	if !ok {
		t.Fatal("expected to find aspect Spatial")
	}
	if spatial.ID != hash.Name("Spatial") {
		t.Fatalf("expected aspect id to equal hash.Name(name), got %d vs %d", spatial.ID, hash.Name("Spatial"))
	}
	if spatial.Members[0].Opcode != hash.Name("setTransform") {
		t.Fatalf("expected member opcode to equal hash.Name(name)")
	}
}

func TestMissingVersionIsAnError(t *testing.T) {
	_, err := Parse(`description "no version"`)
	if err == nil {
		t.Fatal("expected an error for a document with no version")
	}
}

func TestMembersWithoutInterfaceIsAnError(t *testing.T) {
	_, err := Parse(`
version 1
description "dangling member"
signal "ping" side="client" {
	description "ping"
}
`)
	if err == nil {
		t.Fatal("expected an error: top-level members require an interface declaration")
	}
}

func TestDuplicateOpcodeWithinAspectIsRejected(t *testing.T) {
	_, err := Parse(`
version 1
description "colliding opcodes"
aspect "Bad" {
	description "aspect with a synthetic collision"
	signal "setTransform" side="client" {
		description "a"
	}
	method "setTransform" side="client" {
		description "b, same name, same hash, different kind: still a collision by opcode"
	}
}
`)
	if err == nil {
		t.Fatal("expected an opcode collision error")
	}
}
