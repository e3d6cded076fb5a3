// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/protomut/protomut/pkg/testutil"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// randomMessage creates a message of the named type by mutating an empty one.
func randomMessage(m *Mutator, name string, maxSize int) protoreflect.Message {
	msg := testutil.NewMessage(name)
	for i := 0; i < 10; i++ {
		m.Mutate(msg, maxSize)
	}
	return msg
}

func TestCrossOverInvariants(t *testing.T) {
	for _, name := range testMessages {
		t.Run(name, func(t *testing.T) {
			m := New(testutil.RandSource(t))
			for i := 0; i < testutil.IterCount()/10; i++ {
				src := randomMessage(m, name, 200)
				dst := randomMessage(m, name, 200)
				srcData := encode(t, src)
				for j := 0; j < 10; j++ {
					limit := proto.Size(dst.Interface()) + m.r.Intn(100)
					m.CrossOver(src, dst, limit)
					checkMessage(t, dst, limit)
				}
				require.Equal(t, srcData, encode(t, src), "source was changed")
			}
		})
	}
}

func TestCrossOverAtLimit(t *testing.T) {
	rs := testutil.RandSource(t)
	for i := 0; i < testutil.IterCount(); i++ {
		m := New(rand.NewSource(rs.Int63()))
		src := testutil.ParseText(t, "protomut.test.Ints", "values: [3, 4]")
		dst := testutil.ParseText(t, "protomut.test.Ints", "values: [1, 2]")
		orig := encode(t, dst)
		require.False(t, m.CrossOver(src, dst, proto.Size(dst.Interface())))
		require.Equal(t, orig, encode(t, dst))

		src = randomMessage(m, "protomut.test.Node", 100)
		dst = randomMessage(m, "protomut.test.Node", 100)
		orig = encode(t, dst)
		require.False(t, m.CrossOver(src, dst, proto.Size(dst.Interface())))
		require.Equal(t, orig, encode(t, dst))
	}
}

func TestCrossOverOneof(t *testing.T) {
	rs := testutil.RandSource(t)
	outcomes := make(map[string]int)
	for i := 0; i < testutil.IterCount(); i++ {
		m := New(rand.NewSource(rs.Int63()))
		src := testutil.ParseText(t, "protomut.test.Choice", "x: 5")
		dst := testutil.ParseText(t, "protomut.test.Choice", "y: 7")
		m.CrossOver(src, dst, 100)
		checkOneofs(t, dst)
		got := protoText(t, dst)
		switch got {
		case "y:7", "x:5":
		default:
			t.Fatalf("unexpected result %q", got)
		}
		outcomes[got]++
	}
	require.Len(t, outcomes, 2, "both outcomes happen: %v", outcomes)
}

func TestCrossOverAdd(t *testing.T) {
	rs := testutil.RandSource(t)
	src := testutil.ParseText(t, "protomut.test.Scalars", `i32: -1 i64: 2 u32: 3 u64: 4 f: 0.5 d: 0.25 b: true color: BLUE s: "x"`)
	added := 0
	for i := 0; i < testutil.IterCount()/10; i++ {
		m := New(rand.NewSource(rs.Int63()))
		dst := testutil.NewMessage("protomut.test.Scalars")
		m.CrossOver(src, dst, 1000)
		// Everything that appears in dst must come from src.
		dst.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
			require.True(t, src.Get(fd).Equal(v), "field %v", fd.Name())
			added++
			return true
		})
		require.False(t, dst.Has(fieldByName(dst, "s")), "strings are not copied")
	}
	require.NotZero(t, added)
}

func TestCrossOverRepeated(t *testing.T) {
	rs := testutil.RandSource(t)
	allowed := map[int64]bool{1: true, 2: true, 10: true, 20: true, 30: true}
	for i := 0; i < testutil.IterCount(); i++ {
		m := New(rand.NewSource(rs.Int63()))
		src := testutil.ParseText(t, "protomut.test.Ints", "values: [10, 20, 30]")
		dst := testutil.ParseText(t, "protomut.test.Ints", "values: [1, 2]")
		m.CrossOver(src, dst, 100)
		list := dst.Get(fieldByName(dst, "values")).List()
		require.GreaterOrEqual(t, list.Len(), 2)
		require.LessOrEqual(t, list.Len(), 5)
		for j := 0; j < list.Len(); j++ {
			require.True(t, allowed[list.Get(j).Int()], "value %v", list.Get(j).Int())
		}
	}
}

func TestCrossOverRecurse(t *testing.T) {
	// Submessages present in both messages are crossed recursively.
	rs := testutil.RandSource(t)
	src := testutil.ParseText(t, "protomut.test.Node", "id: 1 child { id: 2 value: 42 }")
	seen := false
	for i := 0; i < testutil.IterCount() && !seen; i++ {
		m := New(rand.NewSource(rs.Int63()))
		dst := testutil.ParseText(t, "protomut.test.Node", "id: 1 child { id: 2 child { id: 3 } }")
		m.CrossOver(src, dst, 100)
		child := dst.Get(fieldByName(dst, "child")).Message()
		seen = child.Has(fieldByName(child, "value")) && child.Has(fieldByName(child, "child"))
	}
	require.True(t, seen)
}

func TestCrossOverSchemaMismatch(t *testing.T) {
	m := New(testutil.RandSource(t))
	require.Panics(t, func() {
		m.CrossOver(testutil.NewMessage("protomut.test.Ints"), testutil.NewMessage("protomut.test.Scalars"), 100)
	})
	// Same name but a field of another kind.
	ints := testutil.DescriptorSet().File[0]
	for _, msg := range ints.MessageType {
		if msg.GetName() == "Ints" {
			msg.Field[0].Type = descriptorpb.FieldDescriptorProto_TYPE_DOUBLE.Enum()
		}
	}
	src := otherSchemaMessage(t, ints, "protomut.test.Ints")
	require.Panics(t, func() {
		m.CrossOver(src, testutil.NewMessage("protomut.test.Ints"), 100)
	})
}

func TestCrossOverDynamicToGenerated(t *testing.T) {
	md := (&descriptorpb.DescriptorProto{}).ProtoReflect().Descriptor()
	src := dynamicpb.NewMessage(md)
	ranges := elementField(src, md.Fields().ByName("reserved_range"), 0)
	for _, start := range []int32{1, 5} {
		rng := ranges.Default().Msg
		rng.Set(rng.Descriptor().Fields().ByName("start"), protoreflect.ValueOfInt32(start))
		ranges.Create(Value{Kind: KindMessage, Msg: rng})
	}
	rs := testutil.RandSource(t)
	copied := false
	for i := 0; i < 100; i++ {
		m := New(rand.NewSource(rs.Int63()))
		dst := &descriptorpb.DescriptorProto{}
		m.CrossOver(src, dst.ProtoReflect(), 100)
		for _, rng := range dst.ReservedRange {
			require.Contains(t, []int32{1, 5}, rng.GetStart())
			copied = true
		}
	}
	require.True(t, copied)
}

// otherSchemaMessage creates a message from a separately built copy of a test schema.
func otherSchemaMessage(t *testing.T, fdp *descriptorpb.FileDescriptorProto, name string) protoreflect.Message {
	fd, err := protodesc.NewFile(fdp, new(protoregistry.Files))
	require.NoError(t, err)
	md := fd.Messages().ByName(protoreflect.FullName(name).Name())
	require.NotNil(t, md)
	return dynamicpb.NewMessage(md)
}

func protoText(t testing.TB, msg protoreflect.Message) string {
	var res []string
	fields := msg.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if msg.Has(fd) {
			res = append(res, string(fd.Name())+":"+msg.Get(fd).String())
		}
	}
	if len(res) != 1 {
		t.Fatalf("expected exactly one field, got %v", res)
	}
	return res[0]
}

func TestCrossOverDeterminism(t *testing.T) {
	seed := testutil.RandSource(t).Int63()
	run := func() []byte {
		m := New(rand.NewSource(seed))
		src := randomMessage(m, "protomut.test.Node", 300)
		dst := randomMessage(m, "protomut.test.Node", 300)
		for i := 0; i < 10; i++ {
			m.CrossOver(src, dst, 400)
		}
		return encode(t, dst)
	}
	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Fatal(diff)
	}
}
