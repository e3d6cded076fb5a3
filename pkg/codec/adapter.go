// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package codec

import (
	"errors"

	"github.com/protomut/protomut/mutator"
	"github.com/protomut/protomut/pkg/log"
	"github.com/protomut/protomut/pkg/stat"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

var (
	statDecodeErrors = stat.New("decode errors", "Inputs that failed to decode and were replaced by an empty message",
		stat.Prometheus("protomut_decode_errors"))
	statOverflows = stat.New("encode overflows", "Results that did not fit into the output",
		stat.Prometheus("protomut_encode_overflows"))
	statCacheHits = stat.New("cache hits", "Inputs served from the last result cache",
		stat.Prometheus("protomut_cache_hits"))
	statOutputSize = stat.New("output size", "Size of produced inputs",
		stat.Distribution{}, stat.Simple)
)

// Adapter mutates serialized inputs of a single message type.
// It is not safe for concurrent use.
type Adapter struct {
	typ    protoreflect.MessageType
	format Format
	mut    *mutator.Mutator
	cache  Cache
}

func NewAdapter(typ protoreflect.MessageType, format Format, mut *mutator.Mutator) *Adapter {
	return &Adapter{
		typ:    typ,
		format: format,
		mut:    mut,
	}
}

func (a *Adapter) Format() Format {
	return a.format
}

func (a *Adapter) Mutator() *mutator.Mutator {
	return a.mut
}

// Load returns the message for data as the harness sees it. The result of the previous
// Mutate/CrossOver call is returned without decoding, other inputs are decoded and
// passed through Fix with the engine seeded by the input length.
// If decoding fails, the returned message is empty and the error wraps ErrDecode.
func (a *Adapter) Load(data []byte) (protoreflect.Message, error) {
	if msg, ok := a.cache.Load(data); ok {
		statCacheHits.Add(1)
		return msg, nil
	}
	msg, err := a.decode(data)
	if err != nil {
		return msg, err
	}
	a.mut.Seed(int64(len(data)))
	a.mut.Fix(msg)
	return msg, nil
}

// Mutate produces a mutated version of data no longer than maxSize.
// The result is deterministic for the same seed, data and maxSize.
// An empty result means the mutated message did not fit.
func (a *Adapter) Mutate(seed int64, data []byte, maxSize int) []byte {
	a.mut.Seed(seed)
	msg := a.read(data)
	a.mut.Mutate(msg, limit(msg, data, maxSize))
	return a.store(msg, maxSize)
}

// CrossOver produces the result of crossing data2 into data1 no longer than maxSize.
func (a *Adapter) CrossOver(seed int64, data1, data2 []byte, maxSize int) []byte {
	a.mut.Seed(seed)
	dst := a.read(data1)
	src := a.read(data2)
	a.mut.CrossOver(src, dst, limit(dst, data1, maxSize))
	return a.store(dst, maxSize)
}

// read is Load without Fix, undecodable data gives an empty message.
func (a *Adapter) read(data []byte) protoreflect.Message {
	if msg, ok := a.cache.Load(data); ok {
		statCacheHits.Add(1)
		return msg
	}
	msg, _ := a.decode(data)
	return msg
}

func (a *Adapter) decode(data []byte) (protoreflect.Message, error) {
	msg := a.typ.New()
	if err := Decode(a.format, data, msg); err != nil {
		statDecodeErrors.Add(1)
		log.Logf(1, "%v", err)
		return msg, err
	}
	return msg, nil
}

func (a *Adapter) store(msg protoreflect.Message, maxSize int) []byte {
	data, err := Encode(a.format, msg, maxSize)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			statOverflows.Add(1)
			log.Logf(1, "%v", err)
		} else {
			log.Errorf("%v", err)
		}
		return []byte{}
	}
	statOutputSize.Add(len(data))
	a.cache.Store(data, msg)
	return data
}

// limit converts the output capacity into a limit on the serialized message size.
// The input length is what the message occupies in the output format, which may
// differ from its binary size (text format, unknown or dropped fields).
func limit(msg protoreflect.Message, data []byte, maxSize int) int {
	return max(proto.Size(msg.Interface())+maxSize-len(data), 0)
}
