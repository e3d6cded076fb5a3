// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"google.golang.org/protobuf/reflect/protoreflect"
)

// PostProcessor adjusts a message of a particular type after it was loaded.
// seed is drawn from the engine random source, so post-processing is reproducible.
type PostProcessor func(msg protoreflect.Message, seed int64)

// RegisterPostProcessor registers fn to be called by Fix for every message of the named type.
// Several post-processors for the same type are called in registration order.
func (m *Mutator) RegisterPostProcessor(name protoreflect.FullName, fn PostProcessor) {
	if m.postProcessors == nil {
		m.postProcessors = make(map[protoreflect.FullName][]PostProcessor)
	}
	m.postProcessors[name] = append(m.postProcessors[name], fn)
}

// Fix brings a loaded message into the shape the engine maintains:
// nested messages deeper than MaxDepth are dropped, missing required fields are
// created if KeepInitialized is set. Then the registered post-processors are
// applied bottom-up.
func (m *Mutator) Fix(msg protoreflect.Message) {
	statFixed.Add(1)
	m.fix(msg, 0)
}

func (m *Mutator) fix(msg protoreflect.Message, depth int) {
	fields := msg.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		required := m.KeepInitialized && fd.Cardinality() == protoreflect.Required
		if required && !msg.Has(fd) && canNest(fd, depth) {
			if fd.Message() != nil {
				msg.Set(fd, msg.NewField(fd))
			} else {
				msg.Set(fd, fd.Default())
			}
		}
		if fd.Message() == nil || fd.IsMap() {
			continue
		}
		if depth+1 >= MaxDepth {
			if !required {
				msg.Clear(fd)
			}
			continue
		}
		if fd.IsList() {
			if msg.Get(fd).List().Len() == 0 {
				continue
			}
			list := msg.Mutable(fd).List()
			for j := 0; j < list.Len(); j++ {
				m.fix(list.Get(j).Message(), depth+1)
			}
		} else if msg.Has(fd) {
			m.fix(msg.Mutable(fd).Message(), depth+1)
		}
	}
	for _, fn := range m.postProcessors[msg.Descriptor().FullName()] {
		fn(msg, m.r.Int63())
	}
}
