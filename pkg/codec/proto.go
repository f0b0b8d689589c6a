package codec

import (
	"fmt"

	"github.com/aretw0/a11ybridge/pkg/domain"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// ProtoName is the registered name of the protobuf codec.
const ProtoName = "protobuf"

// Proto encodes messages as protobuf using this schema:
//
//	message Message {
//	  uint32 kind = 1;          // 1 update, 2 delete, 3 commit, 4 event
//	  repeated Node nodes = 2;
//	  repeated uint32 deleted_ids = 3;
//	  SemanticEvent event = 4;
//	}
//	message Node {
//	  uint32 node_id = 1;
//	  uint32 role = 2;
//	  States states = 3;
//	  Attributes attributes = 4;
//	  repeated uint32 actions = 5;
//	  repeated uint32 child_ids = 6;
//	  BoundingBox location = 7;
//	  repeated float transform = 8; // column-major, 16 values
//	}
//	message States { uint32 checked_state = 1; bool selected = 2; string value = 3; uint32 toggled_state = 4; }
//	message Attributes { string label = 1; bool is_keyboard_key = 2; }
//	message BoundingBox { Vec3 min = 1; Vec3 max = 2; }
//	message Vec3 { float x = 1; float y = 2; float z = 3; }
//	message SemanticEvent { AnnounceEvent announce = 1; }
//	message AnnounceEvent { string message = 1; }
//
// The schema is built at init time and messages go through dynamicpb, so no
// generated code is needed. ProtoSchema exposes it to remote peers.
type Proto struct{}

// Name implements Codec.
func (Proto) Name() string { return ProtoName }

var kindNumbers = map[Kind]uint32{
	KindUpdate: 1,
	KindDelete: 2,
	KindCommit: 3,
	KindEvent:  4,
}

const protoPackage = "a11ybridge.v1"

type protoSchema struct {
	file    protoreflect.FileDescriptor
	message protoreflect.MessageDescriptor
}

var schema = buildSchema()

// ProtoSchema returns the descriptor of the protobuf wire schema.
func ProtoSchema() protoreflect.FileDescriptor {
	return schema.file
}

func buildSchema() protoSchema {
	type (
		kind  = descriptorpb.FieldDescriptorProto_Type
		label = descriptorpb.FieldDescriptorProto_Label
	)
	field := func(name string, num int32, k kind, l label, typeName string) *descriptorpb.FieldDescriptorProto {
		f := &descriptorpb.FieldDescriptorProto{
			Name:   proto.String(name),
			Number: proto.Int32(num),
			Type:   k.Enum(),
			Label:  l.Enum(),
		}
		if typeName != "" {
			f.TypeName = proto.String("." + protoPackage + "." + typeName)
		}
		return f
	}
	const (
		optional = descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
		repeated = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
		u32      = descriptorpb.FieldDescriptorProto_TYPE_UINT32
		boolean  = descriptorpb.FieldDescriptorProto_TYPE_BOOL
		str      = descriptorpb.FieldDescriptorProto_TYPE_STRING
		float    = descriptorpb.FieldDescriptorProto_TYPE_FLOAT
		msg      = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
	)
	message := func(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
		return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
	}

	fdp := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("a11ybridge/v1/message.proto"),
		Package: proto.String(protoPackage),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			message("Message",
				field("kind", 1, u32, optional, ""),
				field("nodes", 2, msg, repeated, "Node"),
				field("deleted_ids", 3, u32, repeated, ""),
				field("event", 4, msg, optional, "SemanticEvent"),
			),
			message("Node",
				field("node_id", 1, u32, optional, ""),
				field("role", 2, u32, optional, ""),
				field("states", 3, msg, optional, "States"),
				field("attributes", 4, msg, optional, "Attributes"),
				field("actions", 5, u32, repeated, ""),
				field("child_ids", 6, u32, repeated, ""),
				field("location", 7, msg, optional, "BoundingBox"),
				field("transform", 8, float, repeated, ""),
			),
			message("States",
				field("checked_state", 1, u32, optional, ""),
				field("selected", 2, boolean, optional, ""),
				field("value", 3, str, optional, ""),
				field("toggled_state", 4, u32, optional, ""),
			),
			message("Attributes",
				field("label", 1, str, optional, ""),
				field("is_keyboard_key", 2, boolean, optional, ""),
			),
			message("BoundingBox",
				field("min", 1, msg, optional, "Vec3"),
				field("max", 2, msg, optional, "Vec3"),
			),
			message("Vec3",
				field("x", 1, float, optional, ""),
				field("y", 2, float, optional, ""),
				field("z", 3, float, optional, ""),
			),
			message("SemanticEvent",
				field("announce", 1, msg, optional, "AnnounceEvent"),
			),
			message("AnnounceEvent",
				field("message", 1, str, optional, ""),
			),
		},
	}

	file, err := protodesc.NewFile(fdp, new(protoregistry.Files))
	if err != nil {
		panic(fmt.Sprintf("codec: invalid protobuf schema: %v", err))
	}
	return protoSchema{file: file, message: file.Messages().ByName("Message")}
}

func fieldOf(m protoreflect.Message, name string) protoreflect.FieldDescriptor {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		panic(fmt.Sprintf("codec: %s has no field %q", m.Descriptor().FullName(), name))
	}
	return fd
}

func set(m protoreflect.Message, name string, v protoreflect.Value) {
	m.Set(fieldOf(m, name), v)
}

func get(m protoreflect.Message, name string) protoreflect.Value {
	return m.Get(fieldOf(m, name))
}

func child(m protoreflect.Message, name string) protoreflect.Message {
	return m.Mutable(fieldOf(m, name)).Message()
}

// sub returns a populated message field.
func sub(m protoreflect.Message, name string) (protoreflect.Message, bool) {
	fd := fieldOf(m, name)
	if !m.Has(fd) {
		return nil, false
	}
	return m.Get(fd).Message(), true
}

func appendUint32s(m protoreflect.Message, name string, vs []uint32) {
	if len(vs) == 0 {
		return
	}
	list := m.Mutable(fieldOf(m, name)).List()
	for _, v := range vs {
		list.Append(protoreflect.ValueOfUint32(v))
	}
}

func uint32s(m protoreflect.Message, name string) []uint32 {
	list := get(m, name).List()
	if list.Len() == 0 {
		return nil
	}
	out := make([]uint32, list.Len())
	for i := range out {
		out[i] = uint32(list.Get(i).Uint())
	}
	return out
}

// Marshal implements Codec.
func (Proto) Marshal(m Message) ([]byte, error) {
	num, ok := kindNumbers[m.Kind]
	if !ok {
		return nil, fmt.Errorf("protobuf encode: unknown kind %q", m.Kind)
	}
	msg := dynamicpb.NewMessage(schema.message)
	set(msg, "kind", protoreflect.ValueOfUint32(num))

	if len(m.Nodes) > 0 {
		nodes := msg.Mutable(fieldOf(msg, "nodes")).List()
		for _, n := range m.Nodes {
			elem := nodes.NewElement()
			encodeNode(elem.Message(), n)
			nodes.Append(elem)
		}
	}
	appendUint32s(msg, "deleted_ids", m.DeletedIDs)

	if m.Event != nil {
		event := child(msg, "event")
		if m.Event.Announce != nil {
			set(child(event, "announce"), "message", protoreflect.ValueOfString(m.Event.Announce.Message))
		}
	}

	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("protobuf encode: %w", err)
	}
	return data, nil
}

func encodeNode(m protoreflect.Message, n domain.WireNode) {
	set(m, "node_id", protoreflect.ValueOfUint32(n.NodeID))
	set(m, "role", protoreflect.ValueOfUint32(uint32(n.Role)))

	states := child(m, "states")
	set(states, "checked_state", protoreflect.ValueOfUint32(uint32(n.States.CheckedState)))
	set(states, "selected", protoreflect.ValueOfBool(n.States.Selected))
	set(states, "value", protoreflect.ValueOfString(n.States.Value))
	set(states, "toggled_state", protoreflect.ValueOfUint32(uint32(n.States.ToggledState)))

	attrs := child(m, "attributes")
	set(attrs, "label", protoreflect.ValueOfString(n.Attributes.Label))
	set(attrs, "is_keyboard_key", protoreflect.ValueOfBool(n.Attributes.IsKeyboardKey))

	actions := make([]uint32, len(n.Actions))
	for i, a := range n.Actions {
		actions[i] = uint32(a)
	}
	appendUint32s(m, "actions", actions)
	appendUint32s(m, "child_ids", n.ChildIDs)

	location := child(m, "location")
	encodeVec3(child(location, "min"), n.Location.Min)
	encodeVec3(child(location, "max"), n.Location.Max)

	transform := m.Mutable(fieldOf(m, "transform")).List()
	for _, v := range n.Transform {
		transform.Append(protoreflect.ValueOfFloat32(v))
	}
}

func encodeVec3(m protoreflect.Message, v domain.Vec3) {
	set(m, "x", protoreflect.ValueOfFloat32(v.X))
	set(m, "y", protoreflect.ValueOfFloat32(v.Y))
	set(m, "z", protoreflect.ValueOfFloat32(v.Z))
}

// Unmarshal implements Codec. Unknown fields are ignored.
func (Proto) Unmarshal(data []byte) (Message, error) {
	msg := dynamicpb.NewMessage(schema.message)
	if err := proto.Unmarshal(data, msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var m Message
	num := uint32(get(msg, "kind").Uint())
	for kind, k := range kindNumbers {
		if k == num {
			m.Kind = kind
		}
	}
	if m.Kind == "" {
		return Message{}, fmt.Errorf("%w: missing or unknown kind %d", ErrMalformed, num)
	}

	nodes := get(msg, "nodes").List()
	for i := range nodes.Len() {
		m.Nodes = append(m.Nodes, decodeNode(nodes.Get(i).Message()))
	}
	m.DeletedIDs = uint32s(msg, "deleted_ids")

	if event, ok := sub(msg, "event"); ok {
		m.Event = &domain.SemanticEvent{}
		if announce, ok := sub(event, "announce"); ok {
			m.Event.Announce = &domain.AnnounceEvent{Message: get(announce, "message").String()}
		}
	}
	return m, nil
}

func decodeNode(m protoreflect.Message) domain.WireNode {
	n := domain.WireNode{
		NodeID:   uint32(get(m, "node_id").Uint()),
		Role:     domain.Role(get(m, "role").Uint()),
		ChildIDs: uint32s(m, "child_ids"),
	}
	if states, ok := sub(m, "states"); ok {
		n.States = domain.States{
			CheckedState: domain.CheckedState(get(states, "checked_state").Uint()),
			Selected:     get(states, "selected").Bool(),
			Value:        get(states, "value").String(),
			ToggledState: domain.ToggledState(get(states, "toggled_state").Uint()),
		}
	}
	if attrs, ok := sub(m, "attributes"); ok {
		n.Attributes = domain.Attributes{
			Label:         get(attrs, "label").String(),
			IsKeyboardKey: get(attrs, "is_keyboard_key").Bool(),
		}
	}
	for _, a := range uint32s(m, "actions") {
		n.Actions = append(n.Actions, domain.RemoteAction(a))
	}
	if location, ok := sub(m, "location"); ok {
		n.Location.Min = decodeVec3(location, "min")
		n.Location.Max = decodeVec3(location, "max")
	}
	transform := get(m, "transform").List()
	for i := 0; i < transform.Len() && i < len(n.Transform); i++ {
		n.Transform[i] = float32(transform.Get(i).Float())
	}
	return n
}

func decodeVec3(m protoreflect.Message, name string) domain.Vec3 {
	v, ok := sub(m, name)
	if !ok {
		return domain.Vec3{}
	}
	return domain.Vec3{
		X: float32(get(v, "x").Float()),
		Y: float32(get(v, "y").Float()),
		Z: float32(get(v, "z").Float()),
	}
}
