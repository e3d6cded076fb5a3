// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package schema loads message schemas from serialized descriptor sets
// (the output of protoc --descriptor_set_out --include_imports).
package schema

import (
	"fmt"
	"os"

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

type Schema struct {
	files *protoregistry.Files
}

// LoadFile loads a descriptor set in binary or text format.
// An empty file name gives a schema with only the types linked into the binary.
func LoadFile(file string) (*Schema, error) {
	if file == "" {
		return &Schema{}, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	s, err := LoadData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema %v: %w", file, err)
	}
	return s, nil
}

func LoadData(data []byte) (*Schema, error) {
	set := new(descriptorpb.FileDescriptorSet)
	if err := proto.Unmarshal(data, set); err != nil {
		if err1 := prototext.Unmarshal(data, set); err1 != nil {
			return nil, fmt.Errorf("not a binary (%w) or text (%w) descriptor set", err, err1)
		}
	}
	return FromSet(set)
}

func FromSet(set *descriptorpb.FileDescriptorSet) (*Schema, error) {
	files, err := protodesc.NewFiles(set)
	if err != nil {
		return nil, err
	}
	return &Schema{files: files}, nil
}

// MessageType returns the type of the named message. Types from the descriptor set take
// precedence over the ones linked into the binary.
func (s *Schema) MessageType(name string) (protoreflect.MessageType, error) {
	fullName := protoreflect.FullName(name)
	if !fullName.IsValid() {
		return nil, fmt.Errorf("bad message name %q", name)
	}
	if s.files != nil {
		desc, err := s.files.FindDescriptorByName(fullName)
		if err == nil {
			md, ok := desc.(protoreflect.MessageDescriptor)
			if !ok {
				return nil, fmt.Errorf("%v is not a message", name)
			}
			return dynamicpb.NewMessageType(md), nil
		}
	}
	mt, err := protoregistry.GlobalTypes.FindMessageByName(fullName)
	if err != nil {
		return nil, fmt.Errorf("unknown message %v: %w", name, err)
	}
	return mt, nil
}

// Messages returns full names of all messages in the descriptor set.
func (s *Schema) Messages() []string {
	var res []string
	if s.files == nil {
		return res
	}
	var walk func(protoreflect.MessageDescriptors)
	walk = func(mds protoreflect.MessageDescriptors) {
		for i := 0; i < mds.Len(); i++ {
			md := mds.Get(i)
			if md.IsMapEntry() {
				continue
			}
			res = append(res, string(md.FullName()))
			walk(md.Messages())
		}
	}
	s.files.RangeFiles(func(fd protoreflect.FileDescriptor) bool {
		walk(fd.Messages())
		return true
	})
	return res
}
