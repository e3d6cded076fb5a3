// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package afl provides the glue between a fuzzer custom mutator interface
// (init/fuzz/post_process/deinit in AFL++ terms) and the message adapter.
package afl

import (
	"math"
	"math/rand"

	"github.com/protomut/protomut/pkg/codec"
	"github.com/protomut/protomut/pkg/log"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// DefaultCrossOverProb is the probability to cross over two inputs rather than mutate one.
const DefaultCrossOverProb = 0.8

// Transform turns a test case message into the bytes the target consumes.
// index is the sequence number of the post-processed test case starting at 1.
type Transform func(msg protoreflect.Message, index int) ([]byte, error)

// Helper holds the per-fuzzer state. It is not safe for concurrent use.
type Helper struct {
	CrossOverProb float64
	Transform     Transform

	adapter *codec.Adapter
	rnd     *rand.Rand
	index   int
}

func New(adapter *codec.Adapter, seed int64) *Helper {
	log.Logf(0, "custom mutator seed %v", seed)
	return &Helper{
		CrossOverProb: DefaultCrossOverProb,
		Transform:     encodeBinary,
		adapter:       adapter,
		rnd:           rand.New(rand.NewSource(seed)),
		index:         1,
	}
}

// Fuzz produces a new test case from buf, crossing it with addBuf if present.
// The result is never longer than maxSize, and is empty if nothing fit.
func (h *Helper) Fuzz(buf, addBuf []byte, maxSize int) []byte {
	seed := h.rnd.Int63()
	if len(addBuf) != 0 && h.rnd.Float64() < h.CrossOverProb {
		return h.adapter.CrossOver(seed, buf, addBuf, maxSize)
	}
	return h.adapter.Mutate(seed, buf, maxSize)
}

// PostProcess converts a test case into the target input with Transform.
// Inputs that don't decode, or fail to transform, result in an empty output.
func (h *Helper) PostProcess(buf []byte) []byte {
	msg, err := h.adapter.Load(buf)
	if err != nil {
		return []byte{}
	}
	out, err := h.Transform(msg, h.index)
	h.index++
	if err != nil {
		log.Logf(1, "test case %v: %v", h.index-1, err)
		return []byte{}
	}
	return out
}

// Index returns the sequence number the next post-processed test case gets.
func (h *Helper) Index() int {
	return h.index
}

func encodeBinary(msg protoreflect.Message, index int) ([]byte, error) {
	return codec.Encode(codec.Binary, msg, math.MaxInt)
}
