// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package mutconfig describes the configuration of the mutator tools.
package mutconfig

import (
	"github.com/protomut/protomut/pkg/codec"
	"google.golang.org/protobuf/reflect/protoreflect"
)

type Config struct {
	// Descriptor set with the message definitions, binary or text format
	// (protoc --include_imports --descriptor_set_out=set.pb).
	// May be empty if the message type is linked into the binary.
	Schema string `json:"schema,omitempty"`
	// Full name of the top-level message (e.g. "foo.bar.Request").
	Message string `json:"message"`
	// Serialization of inputs: "binary" (default) or "text".
	RawFormat string `json:"format,omitempty"`
	// Maximum size of produced inputs in bytes (default: 4096).
	MaxSize int `json:"max_size,omitempty"`
	// Random seed, -1 means to seed from the current time.
	Seed int64 `json:"seed"`
	// Never remove required fields and fill in missing ones.
	KeepInitialized bool `json:"keep_initialized,omitempty"`
	// Max number of elements appended to a repeated field at once (default: 5).
	MaxRepeatedAdd int `json:"max_repeated_add,omitempty"`
	// Probability to cross over two inputs instead of mutating one (default: 0.8).
	CrossOverProb float64 `json:"crossover_prob,omitempty"`

	// Implementation details beyond this point. Filled after parsing.
	Format codec.Format             `json:"-"`
	Type   protoreflect.MessageType `json:"-"`
}
