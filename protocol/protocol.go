// Package protocol is a hand-adapted instance of what running
// `protocolc generate` against protocol.kdl produces: the client's own
// root node (persistent state, per-frame timing, disconnect) and the
// spatial-transform nodes every other node in the scenegraph builds on.
//
// It is written by hand rather than by codegen.Generate because this
// module never invokes its own generator at build time — but it follows
// codegen's rendering exactly: the same opcode/aspect-id derivation
// (hash.Name over the declared name, never the exported Go identifier),
// the same wireargs-mediated encode/decode shape, the same event/
// invocation-stub split on Member.Side. A human finishing a generated
// file would collapse its boilerplate and add doc comments the
// generator has no description text for; this file is that pass.
package protocol

import (
	"context"
	"fmt"

	"github.com/stardustxr/client-go/aspect"
	"github.com/stardustxr/client-go/client"
	"github.com/stardustxr/client-go/codec"
	"github.com/stardustxr/client-go/fdctx"
	"github.com/stardustxr/client-go/hash"
	"github.com/stardustxr/client-go/idl"
	wire "github.com/stardustxr/client-go/internal/wire"
	"github.com/stardustxr/client-go/message"
	"github.com/stardustxr/client-go/node"
	"github.com/stardustxr/client-go/wireargs"
)

// Transform is a local transform; any field left nil carries over the
// node's current value for that component.
type Transform struct {
	Translation *[3]float32
	Rotation    *[4]float32
	Scale       *[3]float32
}

func encodeTransform(v Transform, fdc *fdctx.EncodeContext) (wire.Value, error) {
	fields := make([]wire.Value, 0, 3)
	var fv wire.Value
	{
		if v.Translation == nil {
			fv = codec.EncodeOptional(false, nil)
		} else {
			val, err := wireargs.Encode(idl.ArgumentType{Kind: idl.Vec3}, *v.Translation, fdc)
			if err != nil {
				return nil, err
			}
			fv = codec.EncodeOptional(true, val)
		}
	}
	fields = append(fields, fv)
	{
		if v.Rotation == nil {
			fv = codec.EncodeOptional(false, nil)
		} else {
			val, err := wireargs.Encode(idl.ArgumentType{Kind: idl.Quat}, *v.Rotation, fdc)
			if err != nil {
				return nil, err
			}
			fv = codec.EncodeOptional(true, val)
		}
	}
	fields = append(fields, fv)
	{
		if v.Scale == nil {
			fv = codec.EncodeOptional(false, nil)
		} else {
			val, err := wireargs.Encode(idl.ArgumentType{Kind: idl.Vec3}, *v.Scale, fdc)
			if err != nil {
				return nil, err
			}
			fv = codec.EncodeOptional(true, val)
		}
	}
	fields = append(fields, fv)
	return codec.EncodeStruct(fields...), nil
}

func decodeTransform(v wire.Value, fdc *fdctx.DecodeContext) (Transform, error) {
	var out Transform
	fields, err := codec.DecodeStructFields(v)
	if err != nil {
		return out, err
	}
	if len(fields) != 3 {
		return out, fmt.Errorf("Transform: expected 3 fields, got %d", len(fields))
	}
	if present, src := codec.DecodeOptional(fields[0]); present {
		raw, err := wireargs.Decode(idl.ArgumentType{Kind: idl.Vec3}, src, fdc)
		if err != nil {
			return out, err
		}
		vv, _ := raw.([3]float32)
		out.Translation = &vv
	}
	if present, src := codec.DecodeOptional(fields[1]); present {
		raw, err := wireargs.Decode(idl.ArgumentType{Kind: idl.Quat}, src, fdc)
		if err != nil {
			return out, err
		}
		vv, _ := raw.([4]float32)
		out.Rotation = &vv
	}
	if present, src := codec.DecodeOptional(fields[2]); present {
		raw, err := wireargs.Decode(idl.ArgumentType{Kind: idl.Vec3}, src, fdc)
		if err != nil {
			return out, err
		}
		vv, _ := raw.([3]float32)
		out.Scale = &vv
	}
	return out, nil
}

// ClientState is a client's persistent state, handed back by Root's
// GetState and restored from a startup token on the next launch.
type ClientState struct {
	Data *[]byte
	Root uint64
}

func encodeClientState(v ClientState, fdc *fdctx.EncodeContext) (wire.Value, error) {
	fields := make([]wire.Value, 0, 2)
	var fv wire.Value
	{
		if v.Data == nil {
			fv = codec.EncodeOptional(false, nil)
		} else {
			val, err := wireargs.Encode(idl.ArgumentType{Kind: idl.Bytes}, *v.Data, fdc)
			if err != nil {
				return nil, err
			}
			fv = codec.EncodeOptional(true, val)
		}
	}
	fields = append(fields, fv)
	{
		val, err := wireargs.Encode(idl.ArgumentType{Kind: idl.NodeID}, v.Root, fdc)
		if err != nil {
			return nil, err
		}
		fv = val
	}
	fields = append(fields, fv)
	return codec.EncodeStruct(fields...), nil
}

func decodeClientState(v wire.Value, fdc *fdctx.DecodeContext) (ClientState, error) {
	var out ClientState
	fields, err := codec.DecodeStructFields(v)
	if err != nil {
		return out, err
	}
	if len(fields) != 2 {
		return out, fmt.Errorf("ClientState: expected 2 fields, got %d", len(fields))
	}
	if present, src := codec.DecodeOptional(fields[0]); present {
		raw, err := wireargs.Decode(idl.ArgumentType{Kind: idl.Bytes}, src, fdc)
		if err != nil {
			return out, err
		}
		vv, _ := raw.([]byte)
		out.Data = &vv
	}
	{
		raw, err := wireargs.Decode(idl.ArgumentType{Kind: idl.NodeID}, fields[1], fdc)
		if err != nil {
			return out, err
		}
		v, _ := raw.(uint64)
		out.Root = v
	}
	return out, nil
}

// SpatialRefAspectID, like every aspect/opcode id below, is hash.Name of
// the declared name — never recomputed from the exported Go identifier,
// so it stays wire-stable regardless of identifier casing choices here.
var SpatialRefAspectID = hash.Name("SpatialRef")
var spatialRefGetTransformOpcode = hash.Name("getTransform")

// SpatialRef is a reference to a node with spatial attributes (position,
// rotation, scale); lighter-weight than Spatial, usable for nodes this
// client doesn't own.
type SpatialRef struct {
	*node.Node
}

func AsSpatialRef(n *node.Node) SpatialRef { return SpatialRef{n} }

// GetTransform gets this spatial's transform relative to another
// spatial node.
func (n SpatialRef) GetTransform(relativeTo uint64) (Transform, error) {
	var zero Transform
	fdc := fdctx.NewEncodeContext()
	fields := make([]wire.Value, 0, 1)
	var fv wire.Value
	{
		v, err := wireargs.Encode(idl.ArgumentType{Kind: idl.NodeID}, relativeTo, fdc)
		if err != nil {
			return zero, err
		}
		fv = v
	}
	fields = append(fields, fv)
	payload, err := codec.Marshal(codec.EncodeStruct(fields...))
	if err != nil {
		return zero, err
	}
	respPayload, _, err := n.CallMethod(context.Background(), SpatialRefAspectID, spatialRefGetTransformOpcode, payload, fdc.FDs())
	if err != nil {
		return zero, err
	}
	respValue, err := codec.Unmarshal(respPayload)
	if err != nil {
		return zero, err
	}
	return decodeTransform(respValue, fdctx.NewDecodeContext(nil))
}

var SpatialAspectID = hash.Name("Spatial")
var spatialSetLocalTransformOpcode = hash.Name("setLocalTransform")
var spatialSetZoneableOpcode = hash.Name("setZoneable")
var spatialExportSpatialOpcode = hash.Name("exportSpatial")

// Spatial is a node with spatial attributes that can be manipulated
// directly; equivalent to a Transform in Unity or a Spatial in Godot.
// Every Spatial also implements SpatialRef; AsSpatialRef reaches those
// methods.
type Spatial struct {
	*node.Node
}

func AsSpatial(n *node.Node) Spatial { return Spatial{n} }

// AsSpatialRef upcasts to the lighter-weight reference aspect every
// Spatial also implements.
func (n Spatial) AsSpatialRef() SpatialRef { return SpatialRef{n.Node} }

// SetLocalTransform sets this spatial's transform relative to its
// current parent.
func (n Spatial) SetLocalTransform(transform Transform) error {
	fdc := fdctx.NewEncodeContext()
	fields := make([]wire.Value, 0, 1)
	var fv wire.Value
	{
		v, err := encodeTransform(transform, fdc)
		if err != nil {
			return err
		}
		fv = v
	}
	fields = append(fields, fv)
	payload, err := codec.Marshal(codec.EncodeStruct(fields...))
	if err != nil {
		return err
	}
	return n.SendSignal(SpatialAspectID, spatialSetLocalTransformOpcode, payload, fdc.FDs())
}

// SetZoneable sets whether a zone may capture this spatial.
func (n Spatial) SetZoneable(zoneable bool) error {
	fdc := fdctx.NewEncodeContext()
	fields := make([]wire.Value, 0, 1)
	var fv wire.Value
	{
		v, err := wireargs.Encode(idl.ArgumentType{Kind: idl.Bool}, zoneable, fdc)
		if err != nil {
			return err
		}
		fv = v
	}
	fields = append(fields, fv)
	payload, err := codec.Marshal(codec.EncodeStruct(fields...))
	if err != nil {
		return err
	}
	return n.SendSignal(SpatialAspectID, spatialSetZoneableOpcode, payload, fdc.FDs())
}

// ExportSpatial exports a reference id to this spatial that another
// client can import.
func (n Spatial) ExportSpatial() (uint64, error) {
	var zero uint64
	fdc := fdctx.NewEncodeContext()
	payload, err := codec.Marshal(codec.EncodeStruct())
	if err != nil {
		return zero, err
	}
	respPayload, _, err := n.CallMethod(context.Background(), SpatialAspectID, spatialExportSpatialOpcode, payload, fdc.FDs())
	if err != nil {
		return zero, err
	}
	respValue, err := codec.Unmarshal(respPayload)
	if err != nil {
		return zero, err
	}
	decodeCtx := fdctx.NewDecodeContext(nil)
	raw, err := wireargs.Decode(idl.ArgumentType{Kind: idl.NodeID}, respValue, decodeCtx)
	if err != nil {
		return zero, err
	}
	out, _ := raw.(uint64)
	return out, nil
}

var RootAspectID = hash.Name("Root")
var rootGetStateOpcode = hash.Name("getState")
var rootSetBasePrefixesOpcode = hash.Name("setBasePrefixes")
var rootFrameOpcode = hash.Name("frame")
var rootDisconnectOpcode = hash.Name("disconnect")

// Root is the client's own root node: persistent state, per-frame
// timing, and session teardown.
type Root struct {
	*node.Node
}

func AsRoot(n *node.Node) Root { return Root{n} }

// GetState gets the client's persistent state, to check before
// initializing.
func (n Root) GetState() (ClientState, error) {
	var zero ClientState
	fdc := fdctx.NewEncodeContext()
	payload, err := codec.Marshal(codec.EncodeStruct())
	if err != nil {
		return zero, err
	}
	respPayload, _, err := n.CallMethod(context.Background(), RootAspectID, rootGetStateOpcode, payload, fdc.FDs())
	if err != nil {
		return zero, err
	}
	respValue, err := codec.Unmarshal(respPayload)
	if err != nil {
		return zero, err
	}
	return decodeClientState(respValue, fdctx.NewDecodeContext(nil))
}

// SetBasePrefixes sets the list of folders to search for namespaced
// resources in.
func (n Root) SetBasePrefixes(prefixes []string) error {
	fdc := fdctx.NewEncodeContext()
	fields := make([]wire.Value, 0, 1)
	var fv wire.Value
	{
		boxed := make([]interface{}, len(prefixes))
		for i, x := range prefixes {
			boxed[i] = x
		}
		v, err := wireargs.Encode(idl.ArgumentType{Kind: idl.Vec, Member: &idl.ArgumentType{Kind: idl.String}}, boxed, fdc)
		if err != nil {
			return err
		}
		fv = v
	}
	fields = append(fields, fv)
	payload, err := codec.Marshal(codec.EncodeStruct(fields...))
	if err != nil {
		return err
	}
	return n.SendSignal(RootAspectID, rootSetBasePrefixesOpcode, payload, fdc.FDs())
}

// Disconnect cleanly disconnects this client from the server.
func (n Root) Disconnect() error {
	fdc := fdctx.NewEncodeContext()
	payload, err := codec.Marshal(codec.EncodeStruct())
	if err != nil {
		return err
	}
	return n.SendSignal(RootAspectID, rootDisconnectOpcode, payload, fdc.FDs())
}

// RootFrameEvent delivers per-frame timing info. The server originates
// this one (Member.Side == idl.Client in the declaration), so it is
// never called directly — poll it off the node with RecvEvent, or drain
// it via a select loop over several nodes' channels.
type RootFrameEvent struct {
	NodeID  uint64
	Delta   float32
	Elapsed float32
}

func (e RootFrameEvent) AspectID() uint64 { return RootAspectID }

func init() {
	aspect.Register(&aspect.Descriptor{
		ID:       RootAspectID,
		Name:     "Root",
		Inherits: nil,
		Parse: func(in message.Inbound, reply aspect.ReplySlot) (aspect.Event, error) {
			fdc := fdctx.NewDecodeContext(in.FDs)
			payloadValue, err := codec.Unmarshal(in.Payload)
			if err != nil {
				return nil, err
			}
			switch in.Opcode {
			case rootFrameOpcode:
				values, err := codec.DecodeStructFields(payloadValue)
				if err != nil {
					return nil, err
				}
				ev := RootFrameEvent{NodeID: in.NodeID}
				{
					raw, err := wireargs.Decode(idl.ArgumentType{Kind: idl.Float}, values[0], fdc)
					if err != nil {
						return nil, err
					}
					v, _ := raw.(float32)
					ev.Delta = v
				}
				{
					raw, err := wireargs.Decode(idl.ArgumentType{Kind: idl.Float}, values[1], fdc)
					if err != nil {
						return nil, err
					}
					v, _ := raw.(float32)
					ev.Elapsed = v
				}
				return ev, nil
			default:
				return nil, fmt.Errorf("Root: unknown opcode %d", in.Opcode)
			}
		},
	})
}

// InterfaceNodeID is the process-wide factory node every constructor
// stub below addresses, and the same id this client's own Root node is
// reachable at — the server hands out one reserved node per interface,
// and the client's root is simply the Root aspect of that node.
const InterfaceNodeID = uint64(1)

// InterfaceAspectID addresses every member declared at the protocol's
// top level (outside any aspect block): the grammar gives the interface
// node an id but no aspect name of its own, so every top-level member
// dispatches through this one synthetic, stable address instead.
var InterfaceAspectID = hash.Name("interface")
var createSpatialOpcode = hash.Name("createSpatial")

// CreateSpatial creates a spatial node relative to another spatial.
func CreateSpatial(h *client.Handle, parent uint64, transform Transform, zoneable bool) (*node.Node, error) {
	id := h.GenerateID()
	fdc := fdctx.NewEncodeContext()
	fields := make([]wire.Value, 0, 4)
	var fv wire.Value
	fv = codec.EncodeNodeID(id)
	fields = append(fields, fv)
	{
		v, err := wireargs.Encode(idl.ArgumentType{Kind: idl.NodeID}, parent, fdc)
		if err != nil {
			return nil, err
		}
		fv = v
	}
	fields = append(fields, fv)
	{
		v, err := encodeTransform(transform, fdc)
		if err != nil {
			return nil, err
		}
		fv = v
	}
	fields = append(fields, fv)
	{
		v, err := wireargs.Encode(idl.ArgumentType{Kind: idl.Bool}, zoneable, fdc)
		if err != nil {
			return nil, err
		}
		fv = v
	}
	fields = append(fields, fv)
	payload, err := codec.Marshal(codec.EncodeStruct(fields...))
	if err != nil {
		return nil, err
	}
	if err := h.Signal(InterfaceNodeID, InterfaceAspectID, createSpatialOpcode, payload, fdc.FDs()); err != nil {
		return nil, err
	}
	return node.Own(h, id, []uint64{SpatialAspectID}), nil
}

// RootHandle borrows the client's own root node — not created through a
// constructor stub, since the server always has one waiting at the
// reserved interface node id.
func RootHandle(h *client.Handle) (Root, error) {
	n, err := h.Interface(InterfaceNodeID, []uint64{RootAspectID})
	if err != nil {
		return Root{}, err
	}
	return AsRoot(n), nil
}
