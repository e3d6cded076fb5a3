// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Kind is the closed set of field kinds the engine knows how to edit.
type Kind int

const (
	KindUnsupported Kind = iota
	KindInt32
	KindInt64
	KindUint32
	KindUint64
	KindFloat
	KindDouble
	KindBool
	KindEnum
	KindMessage
)

var kindNames = [...]string{
	KindUnsupported: "unsupported",
	KindInt32:       "int32",
	KindInt64:       "int64",
	KindUint32:      "uint32",
	KindUint64:      "uint64",
	KindFloat:       "float",
	KindDouble:      "double",
	KindBool:        "bool",
	KindEnum:        "enum",
	KindMessage:     "message",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// KindOf classifies a field descriptor. Strings, bytes and maps are unsupported.
func KindOf(fd protoreflect.FieldDescriptor) Kind {
	if fd.IsMap() {
		return KindUnsupported
	}
	switch fd.Kind() {
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return KindInt32
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return KindInt64
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return KindUint32
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return KindUint64
	case protoreflect.FloatKind:
		return KindFloat
	case protoreflect.DoubleKind:
		return KindDouble
	case protoreflect.BoolKind:
		return KindBool
	case protoreflect.EnumKind:
		return KindEnum
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return KindMessage
	default:
		return KindUnsupported
	}
}

func supported(fd protoreflect.FieldDescriptor) bool {
	return KindOf(fd) != KindUnsupported
}

// implicit says that the field has no presence: a proto3 scalar that is always
// considered set, holding the zero value when absent on the wire.
func implicit(fd protoreflect.FieldDescriptor) bool {
	return !fd.IsList() && !fd.HasPresence()
}

// realOneof returns the oneof group of the field, ignoring synthetic proto3 optional groups.
func realOneof(fd protoreflect.FieldDescriptor) protoreflect.OneofDescriptor {
	od := fd.ContainingOneof()
	if od == nil || od.IsSynthetic() {
		return nil
	}
	return od
}

// Enum is an enum value as an index into the declared values of its enum type.
type Enum struct {
	Index int
	Count int
}

// Value is a tagged union holding one field value. Only the payload selected by Kind is meaningful.
type Value struct {
	Kind  Kind
	Int   int64
	Uint  uint64
	Float float64
	Bool  bool
	Enum  Enum
	Msg   protoreflect.Message
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt32, KindInt64:
		return fmt.Sprint(v.Int)
	case KindUint32, KindUint64:
		return fmt.Sprint(v.Uint)
	case KindFloat, KindDouble:
		return fmt.Sprint(v.Float)
	case KindBool:
		return fmt.Sprint(v.Bool)
	case KindEnum:
		return fmt.Sprintf("enum %v/%v", v.Enum.Index, v.Enum.Count)
	case KindMessage:
		return fmt.Sprintf("message %v", v.Msg.Descriptor().FullName())
	default:
		return "unsupported"
	}
}

// Equal compares two values of the same kind. Floats are compared by their bits,
// so that NaN equals itself and -0 differs from 0 (they encode differently).
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindInt32, KindInt64:
		return v.Int == other.Int
	case KindUint32, KindUint64:
		return v.Uint == other.Uint
	case KindFloat, KindDouble:
		return math.Float64bits(v.Float) == math.Float64bits(other.Float)
	case KindBool:
		return v.Bool == other.Bool
	case KindEnum:
		return v.Enum == other.Enum
	case KindMessage:
		return proto.Equal(v.Msg.Interface(), other.Msg.Interface())
	default:
		return true
	}
}

// Field addresses one field of one message, or one element of a repeated field.
// It is a short-lived capability and must not be retained across edits of the message.
type Field struct {
	msg   protoreflect.Message
	desc  protoreflect.FieldDescriptor
	index int
}

func singularField(msg protoreflect.Message, fd protoreflect.FieldDescriptor) Field {
	if fd.IsList() {
		panic(fmt.Sprintf("field %v is repeated", fd.FullName()))
	}
	return Field{msg: msg, desc: fd}
}

func elementField(msg protoreflect.Message, fd protoreflect.FieldDescriptor, index int) Field {
	if !fd.IsList() {
		panic(fmt.Sprintf("field %v is not repeated", fd.FullName()))
	}
	return Field{msg: msg, desc: fd, index: index}
}

func (f Field) Desc() protoreflect.FieldDescriptor {
	return f.desc
}

func (f Field) Kind() Kind {
	return KindOf(f.desc)
}

func (f Field) String() string {
	if f.desc.IsList() {
		return fmt.Sprintf("%v[%v]", f.desc.FullName(), f.index)
	}
	return string(f.desc.FullName())
}

// Len returns the length of a repeated field, or 0/1 for a singular one depending on presence.
func (f Field) Len() int {
	if f.desc.IsList() {
		return f.msg.Get(f.desc).List().Len()
	}
	if f.msg.Has(f.desc) {
		return 1
	}
	return 0
}

func (f Field) Has() bool {
	if f.desc.IsList() {
		return f.index < f.Len()
	}
	return f.msg.Has(f.desc)
}

// Load returns the field value. Messages are deep copies owned by the caller.
func (f Field) Load() Value {
	v := f.peek()
	if v.Kind == KindMessage {
		v.Msg = proto.Clone(v.Msg.Interface()).ProtoReflect()
	}
	return v
}

// peek is Load without the copy. The returned message aliases the field.
func (f Field) peek() Value {
	if !f.desc.IsList() && f.Kind() == KindMessage && !f.msg.Has(f.desc) {
		return f.Default()
	}
	return f.fromProto(f.raw())
}

func (f Field) raw() protoreflect.Value {
	if f.desc.IsList() {
		return f.msg.Get(f.desc).List().Get(f.index)
	}
	return f.msg.Get(f.desc)
}

// Store overwrites the field value. Repeated fields overwrite the addressed element.
func (f Field) Store(v Value) {
	pv := f.toProto(v)
	if f.desc.IsList() {
		f.msg.Mutable(f.desc).List().Set(f.index, pv)
		return
	}
	f.msg.Set(f.desc, pv)
}

// Create sets a singular field or appends to a repeated one.
func (f Field) Create(v Value) {
	pv := f.toProto(v)
	if f.desc.IsList() {
		f.msg.Mutable(f.desc).List().Append(pv)
		return
	}
	f.msg.Set(f.desc, pv)
}

// Delete clears a singular field. For repeated fields it removes the addressed element
// preserving the order of the remaining ones.
func (f Field) Delete() {
	if !f.desc.IsList() {
		f.msg.Clear(f.desc)
		return
	}
	list := f.msg.Mutable(f.desc).List()
	n := list.Len()
	for i := f.index; i < n-1; i++ {
		list.Set(i, list.Get(i+1))
	}
	list.Truncate(n - 1)
}

// Default returns the value a newly created field gets: the declared default
// for scalars and an empty message for messages.
func (f Field) Default() Value {
	switch f.Kind() {
	case KindMessage:
		return Value{Kind: KindMessage, Msg: f.newMessage()}
	case KindEnum:
		values := f.desc.Enum().Values()
		idx := 0
		if ev := f.desc.DefaultEnumValue(); ev != nil && !f.desc.IsList() {
			idx = ev.Index()
		}
		return Value{Kind: KindEnum, Enum: Enum{Index: idx, Count: values.Len()}}
	case KindUnsupported:
		panic(fmt.Sprintf("field %v is not supported", f.desc.FullName()))
	}
	if f.desc.IsList() {
		return Value{Kind: f.Kind()}
	}
	return f.fromProto(f.desc.Default())
}

func (f Field) newMessage() protoreflect.Message {
	if f.desc.IsList() {
		return f.msg.NewField(f.desc).List().NewElement().Message()
	}
	return f.msg.NewField(f.desc).Message()
}

func (f Field) fromProto(pv protoreflect.Value) Value {
	kind := f.Kind()
	v := Value{Kind: kind}
	switch kind {
	case KindInt32, KindInt64:
		v.Int = pv.Int()
	case KindUint32, KindUint64:
		v.Uint = pv.Uint()
	case KindFloat, KindDouble:
		v.Float = pv.Float()
	case KindBool:
		v.Bool = pv.Bool()
	case KindEnum:
		values := f.desc.Enum().Values()
		ev := values.ByNumber(pv.Enum())
		if ev == nil {
			// Undeclared number of an open enum.
			return f.Default()
		}
		v.Enum = Enum{Index: ev.Index(), Count: values.Len()}
	case KindMessage:
		v.Msg = pv.Message()
	case KindUnsupported:
		panic(fmt.Sprintf("field %v is not supported", f.desc.FullName()))
	}
	return v
}

func (f Field) toProto(v Value) protoreflect.Value {
	if v.Kind != f.Kind() {
		panic(fmt.Sprintf("storing %v value into %v field %v", v.Kind, f.Kind(), f.desc.FullName()))
	}
	switch v.Kind {
	case KindInt32:
		return protoreflect.ValueOfInt32(int32(v.Int))
	case KindInt64:
		return protoreflect.ValueOfInt64(v.Int)
	case KindUint32:
		return protoreflect.ValueOfUint32(uint32(v.Uint))
	case KindUint64:
		return protoreflect.ValueOfUint64(v.Uint)
	case KindFloat:
		return protoreflect.ValueOfFloat32(float32(v.Float))
	case KindDouble:
		return protoreflect.ValueOfFloat64(v.Float)
	case KindBool:
		return protoreflect.ValueOfBool(v.Bool)
	case KindEnum:
		return protoreflect.ValueOfEnum(f.desc.Enum().Values().Get(v.Enum.Index).Number())
	case KindMessage:
		return protoreflect.ValueOfMessage(f.adopt(v.Msg))
	default:
		panic(fmt.Sprintf("field %v is not supported", f.desc.FullName()))
	}
}

// adopt returns m if it can be stored into the field as is,
// otherwise a copy of m of the concrete message type the field expects
// (e.g. a dynamic message copied into a generated one).
func (f Field) adopt(m protoreflect.Message) protoreflect.Message {
	if m.Descriptor().FullName() != f.desc.Message().FullName() {
		panic(fmt.Sprintf("storing message %v into field %v of type %v",
			m.Descriptor().FullName(), f.desc.FullName(), f.desc.Message().FullName()))
	}
	dst := f.newMessage()
	if dst.Type() == m.Type() {
		return m
	}
	proto.Merge(dst.Interface(), m.Interface())
	return dst
}
