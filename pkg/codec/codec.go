// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package codec converts messages to and from the binary and text protobuf wire formats
// and ties the mutator to raw fuzzer inputs.
package codec

import (
	"errors"
	"fmt"

	"github.com/protomut/protomut/mutator"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

type Format int

const (
	Binary Format = iota
	Text
)

func (f Format) String() string {
	switch f {
	case Binary:
		return "binary"
	case Text:
		return "text"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

func ParseFormat(s string) (Format, error) {
	switch s {
	case "binary", "":
		return Binary, nil
	case "text":
		return Text, nil
	}
	return 0, fmt.Errorf("unknown format %q, expected binary or text", s)
}

var (
	ErrDecode   = errors.New("failed to decode message")
	ErrTooLarge = errors.New("encoded message exceeds capacity")
)

// Decode parses data into msg. Unknown fields and missing required fields are tolerated.
// On failure msg is left empty and the error wraps ErrDecode.
func Decode(f Format, data []byte, msg protoreflect.Message) error {
	proto.Reset(msg.Interface())
	var err error
	switch f {
	case Binary:
		opts := proto.UnmarshalOptions{
			AllowPartial:   true,
			RecursionLimit: mutator.MaxDepth,
		}
		err = opts.Unmarshal(data, msg.Interface())
	case Text:
		if err = checkTextDepth(data, mutator.MaxDepth); err != nil {
			break
		}
		opts := prototext.UnmarshalOptions{
			AllowPartial:   true,
			DiscardUnknown: true,
		}
		err = opts.Unmarshal(data, msg.Interface())
	default:
		panic(fmt.Sprintf("unknown format %v", f))
	}
	if err != nil {
		proto.Reset(msg.Interface())
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

// Encode serializes msg. Binary output is deterministic.
// Returns ErrTooLarge if the result is longer than capacity.
func Encode(f Format, msg protoreflect.Message, capacity int) ([]byte, error) {
	var data []byte
	var err error
	switch f {
	case Binary:
		opts := proto.MarshalOptions{
			AllowPartial:  true,
			Deterministic: true,
		}
		data, err = opts.Marshal(msg.Interface())
	case Text:
		opts := prototext.MarshalOptions{
			AllowPartial: true,
			Multiline:    true,
		}
		data, err = opts.Marshal(msg.Interface())
	default:
		panic(fmt.Sprintf("unknown format %v", f))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %v: %w", msg.Descriptor().FullName(), err)
	}
	if len(data) > capacity {
		return nil, fmt.Errorf("%w: %v > %v", ErrTooLarge, len(data), capacity)
	}
	return data, nil
}
