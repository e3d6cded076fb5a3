// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package testutil

import (
	"fmt"
	"sync"
	"testing"

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Test schemas are described in text form so that tests need no generated code.
// protomut.test covers proto2 semantics (explicit presence, required fields, groups of oneof arms),
// protomut.test3 covers proto3 implicit presence and synthetic oneofs.
var testProtos = []string{`
name: "protomut/test.proto"
package: "protomut.test"
syntax: "proto2"
enum_type {
  name: "Color"
  value { name: "RED" number: 0 }
  value { name: "GREEN" number: 1 }
  value { name: "BLUE" number: 2 }
}
enum_type {
  name: "Single"
  value { name: "ONLY" number: 0 }
}
message_type {
  name: "Scalars"
  field { name: "i32" number: 1 label: LABEL_OPTIONAL type: TYPE_INT32 }
  field { name: "i64" number: 2 label: LABEL_OPTIONAL type: TYPE_SINT64 }
  field { name: "u32" number: 3 label: LABEL_OPTIONAL type: TYPE_FIXED32 }
  field { name: "u64" number: 4 label: LABEL_OPTIONAL type: TYPE_UINT64 }
  field { name: "f" number: 5 label: LABEL_OPTIONAL type: TYPE_FLOAT }
  field { name: "d" number: 6 label: LABEL_OPTIONAL type: TYPE_DOUBLE }
  field { name: "b" number: 7 label: LABEL_OPTIONAL type: TYPE_BOOL }
  field { name: "color" number: 8 label: LABEL_OPTIONAL type: TYPE_ENUM type_name: ".protomut.test.Color" }
  field { name: "single" number: 9 label: LABEL_OPTIONAL type: TYPE_ENUM type_name: ".protomut.test.Single" }
  field { name: "s" number: 10 label: LABEL_OPTIONAL type: TYPE_STRING }
  field { name: "raw" number: 11 label: LABEL_OPTIONAL type: TYPE_BYTES }
}
message_type {
  name: "Repeated"
  field { name: "ints" number: 1 label: LABEL_REPEATED type: TYPE_INT32 }
  field { name: "colors" number: 2 label: LABEL_REPEATED type: TYPE_ENUM type_name: ".protomut.test.Color" }
  field { name: "doubles" number: 3 label: LABEL_REPEATED type: TYPE_DOUBLE options { packed: true } }
  field { name: "msgs" number: 4 label: LABEL_REPEATED type: TYPE_MESSAGE type_name: ".protomut.test.Scalars" }
  field { name: "names" number: 5 label: LABEL_REPEATED type: TYPE_STRING }
}
message_type {
  name: "Ints"
  field { name: "values" number: 1 label: LABEL_REPEATED type: TYPE_INT32 }
}
message_type {
  name: "Node"
  field { name: "value" number: 1 label: LABEL_OPTIONAL type: TYPE_INT32 }
  field { name: "child" number: 2 label: LABEL_OPTIONAL type: TYPE_MESSAGE type_name: ".protomut.test.Node" }
  field { name: "children" number: 3 label: LABEL_REPEATED type: TYPE_MESSAGE type_name: ".protomut.test.Node" }
  field { name: "num" number: 4 label: LABEL_OPTIONAL type: TYPE_INT64 oneof_index: 0 }
  field { name: "scalars" number: 5 label: LABEL_OPTIONAL type: TYPE_MESSAGE type_name: ".protomut.test.Scalars" oneof_index: 0 }
  field { name: "shade" number: 6 label: LABEL_OPTIONAL type: TYPE_ENUM type_name: ".protomut.test.Color" oneof_index: 0 }
  field { name: "id" number: 7 label: LABEL_REQUIRED type: TYPE_UINT32 }
  field { name: "tags" number: 8 label: LABEL_REPEATED type: TYPE_MESSAGE type_name: ".protomut.test.Node.TagsEntry" }
  nested_type {
    name: "TagsEntry"
    field { name: "key" number: 1 label: LABEL_OPTIONAL type: TYPE_STRING }
    field { name: "value" number: 2 label: LABEL_OPTIONAL type: TYPE_INT32 }
    options { map_entry: true }
  }
  oneof_decl { name: "payload" }
}
message_type {
  name: "Choice"
  field { name: "x" number: 1 label: LABEL_OPTIONAL type: TYPE_INT32 oneof_index: 0 }
  field { name: "y" number: 2 label: LABEL_OPTIONAL type: TYPE_INT32 oneof_index: 0 }
  field { name: "other" number: 3 label: LABEL_OPTIONAL type: TYPE_BOOL }
  oneof_decl { name: "arm" }
}
message_type {
  name: "Strings"
  field { name: "s" number: 1 label: LABEL_OPTIONAL type: TYPE_STRING }
  field { name: "raw" number: 2 label: LABEL_REPEATED type: TYPE_BYTES }
}
message_type {
  name: "Empty"
}
`, `
name: "protomut/test3.proto"
package: "protomut.test3"
syntax: "proto3"
enum_type {
  name: "Level"
  value { name: "LEVEL_UNSPECIFIED" number: 0 }
  value { name: "LOW" number: 1 }
  value { name: "HIGH" number: 2 }
}
message_type {
  name: "Implicit"
  field { name: "a" number: 1 label: LABEL_OPTIONAL type: TYPE_INT32 }
  field { name: "b" number: 2 label: LABEL_REPEATED type: TYPE_UINT64 }
  field { name: "c" number: 3 label: LABEL_OPTIONAL type: TYPE_BOOL }
  field { name: "level" number: 4 label: LABEL_OPTIONAL type: TYPE_ENUM type_name: ".protomut.test3.Level" }
  field { name: "opt" number: 5 label: LABEL_OPTIONAL type: TYPE_DOUBLE oneof_index: 0 proto3_optional: true }
  oneof_decl { name: "_opt" }
}
`}

var (
	schemaOnce  sync.Once
	schemaFiles *protoregistry.Files
	schemaSet   *descriptorpb.FileDescriptorSet
)

func buildSchema() {
	schemaFiles = new(protoregistry.Files)
	schemaSet = new(descriptorpb.FileDescriptorSet)
	for _, text := range testProtos {
		fdp := new(descriptorpb.FileDescriptorProto)
		if err := prototext.Unmarshal([]byte(text), fdp); err != nil {
			panic(fmt.Sprintf("bad test proto: %v", err))
		}
		fd, err := protodesc.NewFile(fdp, schemaFiles)
		if err != nil {
			panic(fmt.Sprintf("bad test proto %v: %v", fdp.GetName(), err))
		}
		if err := schemaFiles.RegisterFile(fd); err != nil {
			panic(err)
		}
		schemaSet.File = append(schemaSet.File, fdp)
	}
}

// Files returns the registry holding the test schemas.
func Files() *protoregistry.Files {
	schemaOnce.Do(buildSchema)
	return schemaFiles
}

// DescriptorSet returns a copy of the test schemas as a FileDescriptorSet.
func DescriptorSet() *descriptorpb.FileDescriptorSet {
	schemaOnce.Do(buildSchema)
	return proto.Clone(schemaSet).(*descriptorpb.FileDescriptorSet)
}

func MessageType(name string) protoreflect.MessageType {
	desc, err := Files().FindDescriptorByName(protoreflect.FullName(name))
	if err != nil {
		panic(fmt.Sprintf("unknown test message %v: %v", name, err))
	}
	md, ok := desc.(protoreflect.MessageDescriptor)
	if !ok {
		panic(fmt.Sprintf("%v is not a message", name))
	}
	return dynamicpb.NewMessageType(md)
}

func NewMessage(name string) protoreflect.Message {
	return MessageType(name).New()
}

// ParseText creates a message of the named type from its text form.
func ParseText(t testing.TB, name, text string) protoreflect.Message {
	t.Helper()
	msg := NewMessage(name)
	opts := prototext.UnmarshalOptions{AllowPartial: true}
	if err := opts.Unmarshal([]byte(text), msg.Interface()); err != nil {
		t.Fatalf("failed to parse %v: %v\n%s", name, err, text)
	}
	return msg
}
