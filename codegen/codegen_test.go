package codegen

import (
	"strings"
	"testing"

	"github.com/stardustxr/client-go/idl"
)

const sampleDoc = `
version 1
description "sample protocol for codegen tests"
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
	signal "setTransform" side="server" {
		description "sets the local transform"
		argument "position" type="vec3"
		argument "scale" type="vec3" optional=true
	}
}

aspect "Field" {
	description "a distance field"
	inherits "Spatial"
	method "distance" side="server" {
		description "queries distance to a point"
		argument "point" type="vec3"
		return type="float"
	}
	signal "onChanged" side="client" {
		description "the server tells the client the field changed"
	}
}

signal "createSpatial" side="server" {
	description "creates a new spatial node"
	argument "id" type="node" node="Spatial" id_argument="id"
	argument "style" type="struct" struct="Style"
}
`

func parseSample(t *testing.T) *idl.Protocol {
	t.Helper()
	p, err := idl.Parse(sampleDoc)
	if err != nil {
		t.Fatalf("idl.Parse: %v", err)
	}
	return p
}

func TestGenerateProducesFormattedSource(t *testing.T) {
	p := parseSample(t)
	src, err := Generate(p, Options{PackageName: "protocoltest"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	s := string(src)
	if !strings.HasPrefix(s, "// Code generated by protocolc. DO NOT EDIT.") {
		t.Fatalf("expected a generated-code header, got:\n%s", s)
	}
	if !strings.Contains(s, "package protocoltest") {
		t.Fatalf("expected the requested package clause, got:\n%s", s)
	}
}

func TestGenerateEmitsAspectConstantsAndWrapper(t *testing.T) {
	p := parseSample(t)
	src, err := Generate(p, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	s := string(src)
	for _, want := range []string{
		"const SpatialAspectID = uint64(",
		"const SpatialSetTransformOpcode = uint64(",
		"type Spatial struct",
		"func AsSpatial(n *node.Node) Spatial",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("expected generated source to contain %q, got:\n%s", want, s)
		}
	}
}

func TestGenerateEmitsServerSideInvocationStub(t *testing.T) {
	p := parseSample(t)
	src, err := Generate(p, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	s := string(src)
	if !strings.Contains(s, "func (n Spatial) SetTransform(") {
		t.Fatalf("expected a SetTransform invocation stub, got:\n%s", s)
	}
	if !strings.Contains(s, "func (n Field) Distance(") {
		t.Fatalf("expected a Distance method stub, got:\n%s", s)
	}
}

func TestGenerateEmitsClientSideEventAndDescriptor(t *testing.T) {
	p := parseSample(t)
	src, err := Generate(p, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	s := string(src)
	if !strings.Contains(s, "type FieldOnChangedEvent struct") {
		t.Fatalf("expected an OnChanged event type, got:\n%s", s)
	}
	if !strings.Contains(s, "aspect.Register(&aspect.Descriptor{") {
		t.Fatalf("expected a registered aspect descriptor, got:\n%s", s)
	}
}

func TestGenerateEmitsCustomTypes(t *testing.T) {
	p := parseSample(t)
	src, err := Generate(p, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	s := string(src)
	for _, want := range []string{
		"type Alignment uint32",
		"AlignmentLeft   Alignment = 0",
		"type Style struct",
		"type Shape interface",
		"type ShapeSphere struct",
		"type ShapeBox struct",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("expected generated source to contain %q, got:\n%s", want, s)
		}
	}
}

func TestGenerateEmitsConstructorStub(t *testing.T) {
	p := parseSample(t)
	src, err := Generate(p, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	s := string(src)
	if !strings.Contains(s, "func CreateSpatial(h *client.Handle") {
		t.Fatalf("expected a CreateSpatial constructor stub, got:\n%s", s)
	}
	if !strings.Contains(s, "const InterfaceNodeID = uint64(1)") {
		t.Fatalf("expected the interface node id constant, got:\n%s", s)
	}
}

func TestGenerateOmitsUnusedImports(t *testing.T) {
	enumOnly := `
version 1
description "enum only protocol"

enum "Alignment" {
	description "text alignment"
	variant "left"
	variant "right"
}
`
	p, err := idl.Parse(enumOnly)
	if err != nil {
		t.Fatalf("idl.Parse: %v", err)
	}
	src, err := Generate(p, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	s := string(src)
	for _, unwanted := range []string{
		`"context"`,
		`"github.com/stardustxr/client-go/aspect"`,
		`"github.com/stardustxr/client-go/client"`,
		`"github.com/stardustxr/client-go/fdctx"`,
		`"github.com/stardustxr/client-go/hash"`,
		`"github.com/stardustxr/client-go/idl"`,
		`"github.com/stardustxr/client-go/message"`,
		`"github.com/stardustxr/client-go/node"`,
		`"github.com/stardustxr/client-go/wireargs"`,
		`"fmt"`,
	} {
		if strings.Contains(s, unwanted) {
			t.Fatalf("expected an enum-only protocol to omit unused import %s, got:\n%s", unwanted, s)
		}
	}
	if !strings.Contains(s, `"github.com/stardustxr/client-go/codec"`) {
		t.Fatalf("expected codec import for enum encode/decode, got:\n%s", s)
	}
}
