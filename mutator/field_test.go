// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/protomut/protomut/pkg/testutil"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/testing/protocmp"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

func fieldByName(msg protoreflect.Message, name string) protoreflect.FieldDescriptor {
	fd := msg.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		panic("no field " + name)
	}
	return fd
}

func TestKindOf(t *testing.T) {
	msg := testutil.NewMessage("protomut.test.Scalars")
	want := map[string]Kind{
		"i32":    KindInt32,
		"i64":    KindInt64,
		"u32":    KindUint32,
		"u64":    KindUint64,
		"f":      KindFloat,
		"d":      KindDouble,
		"b":      KindBool,
		"color":  KindEnum,
		"single": KindEnum,
		"s":      KindUnsupported,
		"raw":    KindUnsupported,
	}
	got := make(map[string]Kind)
	fields := msg.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		got[string(fields.Get(i).Name())] = KindOf(fields.Get(i))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatal(diff)
	}
	node := testutil.NewMessage("protomut.test.Node")
	require.Equal(t, KindMessage, KindOf(fieldByName(node, "child")))
	require.Equal(t, KindMessage, KindOf(fieldByName(node, "children")))
	require.Equal(t, KindUnsupported, KindOf(fieldByName(node, "tags")), "maps are not supported")
	require.Equal(t, "uint32", KindOf(fieldByName(node, "id")).String())
}

func TestFieldScalars(t *testing.T) {
	msg := testutil.NewMessage("protomut.test.Scalars")
	f := singularField(msg, fieldByName(msg, "i64"))
	require.False(t, f.Has())
	require.Equal(t, Value{Kind: KindInt64}, f.Load())
	f.Create(Value{Kind: KindInt64, Int: -5})
	require.True(t, f.Has())
	require.Equal(t, int64(-5), f.Load().Int)
	f.Store(Value{Kind: KindInt64, Int: 7})
	require.Equal(t, int64(7), msg.Get(f.Desc()).Int())
	f.Delete()
	require.False(t, f.Has())

	u := singularField(msg, fieldByName(msg, "u32"))
	u.Create(Value{Kind: KindUint32, Uint: 1 << 31})
	require.Equal(t, uint32(1<<31), uint32(msg.Get(u.Desc()).Uint()))

	fl := singularField(msg, fieldByName(msg, "f"))
	fl.Create(Value{Kind: KindFloat, Float: 0.5})
	require.Equal(t, 0.5, fl.Load().Float)

	require.Panics(t, func() { f.Store(Value{Kind: KindBool, Bool: true}) })
}

func TestFieldEnum(t *testing.T) {
	msg := testutil.NewMessage("protomut.test.Scalars")
	f := singularField(msg, fieldByName(msg, "color"))
	require.Equal(t, Value{Kind: KindEnum, Enum: Enum{Index: 0, Count: 3}}, f.Default())
	f.Create(Value{Kind: KindEnum, Enum: Enum{Index: 2, Count: 3}})
	require.Equal(t, protoreflect.EnumNumber(2), msg.Get(f.Desc()).Enum())

	single := singularField(msg, fieldByName(msg, "single"))
	require.Equal(t, 1, single.Default().Enum.Count)

	// Open enums may hold undeclared numbers, those load as the default.
	msg3 := testutil.NewMessage("protomut.test3.Implicit")
	level := fieldByName(msg3, "level")
	msg3.Set(level, protoreflect.ValueOfEnum(42))
	require.Equal(t, Enum{Index: 0, Count: 3}, singularField(msg3, level).Load().Enum)
}

func TestFieldRepeated(t *testing.T) {
	msg := testutil.ParseText(t, "protomut.test.Ints", "values: [10, 20, 30, 40]")
	fd := fieldByName(msg, "values")
	require.Equal(t, 4, elementField(msg, fd, 0).Len())
	require.Equal(t, int64(30), elementField(msg, fd, 2).Load().Int)
	require.True(t, elementField(msg, fd, 3).Has())
	require.False(t, elementField(msg, fd, 4).Has())

	elementField(msg, fd, 1).Delete()
	want := testutil.ParseText(t, "protomut.test.Ints", "values: [10, 30, 40]")
	if diff := cmp.Diff(want.Interface(), msg.Interface(), protocmp.Transform()); diff != "" {
		t.Fatal(diff)
	}
	elementField(msg, fd, 3).Create(Value{Kind: KindInt32, Int: 50})
	elementField(msg, fd, 0).Store(Value{Kind: KindInt32, Int: 5})
	want = testutil.ParseText(t, "protomut.test.Ints", "values: [5, 30, 40, 50]")
	if diff := cmp.Diff(want.Interface(), msg.Interface(), protocmp.Transform()); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, Value{Kind: KindInt32}, elementField(msg, fd, 0).Default())
	require.Panics(t, func() { singularField(msg, fd) })
}

func TestFieldMessage(t *testing.T) {
	msg := testutil.ParseText(t, "protomut.test.Node", "id: 1 child { id: 2 value: 3 }")
	f := singularField(msg, fieldByName(msg, "child"))
	v := f.Load()
	require.Equal(t, KindMessage, v.Kind)
	// Loaded messages are copies.
	v.Msg.Set(fieldByName(v.Msg, "value"), protoreflect.ValueOfInt32(100))
	require.Equal(t, int32(3), int32(msg.Get(f.Desc()).Message().Get(fieldByName(v.Msg, "value")).Int()))
	f.Store(v)
	require.Equal(t, int32(100), int32(msg.Get(f.Desc()).Message().Get(fieldByName(v.Msg, "value")).Int()))

	// Absent messages load as empty ones.
	empty := singularField(v.Msg, fieldByName(v.Msg, "child"))
	require.False(t, empty.Has())
	require.Zero(t, proto.Size(empty.Load().Msg.Interface()))

	require.Equal(t, 1, messageDepth(empty.Default().Msg))
	require.Equal(t, 2, messageDepth(msg))
	require.Panics(t, func() {
		f.Store(Value{Kind: KindMessage, Msg: testutil.NewMessage("protomut.test.Scalars")})
	})
}

func TestFieldAdopt(t *testing.T) {
	// Values of dynamic messages can be stored into generated ones and vice versa.
	md := (&descriptorpb.DescriptorProto{}).ProtoReflect().Descriptor()
	dyn := dynamicpb.NewMessage(md)
	gen := (&descriptorpb.DescriptorProto{}).ProtoReflect()
	ranges := md.Fields().ByName("reserved_range")
	src := elementField(dyn, ranges, 0)
	src.Create(src.Default())
	rng := src.Load().Msg
	rng.Set(rng.Descriptor().Fields().ByName("start"), protoreflect.ValueOfInt32(5))
	src.Store(Value{Kind: KindMessage, Msg: rng})

	dst := elementField(gen, ranges, 0)
	dst.Create(src.Load())
	want := &descriptorpb.DescriptorProto{
		ReservedRange: []*descriptorpb.DescriptorProto_ReservedRange{{Start: proto.Int32(5)}},
	}
	if diff := cmp.Diff(want, gen.Interface(), protocmp.Transform()); diff != "" {
		t.Fatal(diff)
	}
}

func TestValueEqual(t *testing.T) {
	nan := Value{Kind: KindDouble, Float: math.NaN()}
	require.True(t, nan.Equal(nan))
	require.False(t, Value{Kind: KindDouble, Float: 0}.Equal(Value{Kind: KindDouble, Float: math.Copysign(0, -1)}))
	require.False(t, Value{Kind: KindInt32, Int: 1}.Equal(Value{Kind: KindInt64, Int: 1}))
	require.True(t, Value{Kind: KindEnum, Enum: Enum{1, 3}}.Equal(Value{Kind: KindEnum, Enum: Enum{1, 3}}))
}
