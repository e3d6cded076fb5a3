// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package codec

import (
	"bytes"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// Cache remembers the last produced output together with its message,
// so that when the fuzzer feeds the output back the message need not be decoded again.
type Cache struct {
	data []byte
	msg  protoreflect.Message
}

// Store takes ownership of msg; the caller must not use it afterwards.
func (c *Cache) Store(data []byte, msg protoreflect.Message) {
	c.data = append(c.data[:0], data...)
	c.msg = msg
}

// Load returns the cached message if data is byte-identical to the stored input.
// Ownership of the message passes to the caller and the cache becomes empty.
func (c *Cache) Load(data []byte) (protoreflect.Message, bool) {
	if c.msg == nil || !bytes.Equal(c.data, data) {
		return nil, false
	}
	msg := c.msg
	c.Reset()
	return msg, true
}

func (c *Cache) Reset() {
	c.data = c.data[:0]
	c.msg = nil
}
