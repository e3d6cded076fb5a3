// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// budget tracks serialized size of the root message against the size limit of a pass.
// size always equals proto.Size(root) as of the last accepted edit.
type budget struct {
	root  protoreflect.Message
	limit int
	size  int
}

func newBudget(root protoreflect.Message, limit int) *budget {
	return &budget{
		root:  root,
		limit: limit,
		size:  proto.Size(root.Interface()),
	}
}

func (b *budget) remaining() int {
	return b.limit - b.size
}

// commit re-measures the root after an edit and says if the edit can stay.
// Edits that do not grow the message are always accepted, so that a message
// that is already over the limit can still shrink. On rejection the caller
// must undo the edit; the recorded size stays as it was.
func (b *budget) commit() bool {
	size := proto.Size(b.root.Interface())
	if size > b.limit && size > b.size {
		statRejected.Add(1)
		return false
	}
	b.size = size
	return true
}

// snapshot holds the state of one field (singular value with presence, or the whole list)
// so that a rejected edit can be undone.
type snapshot struct {
	msg   protoreflect.Message
	desc  protoreflect.FieldDescriptor
	has   bool
	value protoreflect.Value
	list  []protoreflect.Value
}

func takeSnapshot(msg protoreflect.Message, fd protoreflect.FieldDescriptor) *snapshot {
	s := &snapshot{
		msg:  msg,
		desc: fd,
		has:  msg.Has(fd),
	}
	if fd.IsList() {
		list := msg.Get(fd).List()
		for i := 0; i < list.Len(); i++ {
			s.list = append(s.list, list.Get(i))
		}
	} else if s.has {
		s.value = msg.Get(fd)
	}
	return s
}

func (s *snapshot) restore() {
	if !s.has {
		s.msg.Clear(s.desc)
		return
	}
	if !s.desc.IsList() {
		s.msg.Set(s.desc, s.value)
		return
	}
	list := s.msg.Mutable(s.desc).List()
	list.Truncate(0)
	for _, v := range s.list {
		list.Append(v)
	}
}

// oneofSnapshot holds a copy of the active arm of a oneof group.
// Message arms are deep copied, so the restored arm is unaffected by any edit made in between.
type oneofSnapshot struct {
	msg    protoreflect.Message
	oneof  protoreflect.OneofDescriptor
	active protoreflect.FieldDescriptor
	value  protoreflect.Value
}

func takeOneofSnapshot(msg protoreflect.Message, od protoreflect.OneofDescriptor) *oneofSnapshot {
	s := &oneofSnapshot{
		msg:    msg,
		oneof:  od,
		active: msg.WhichOneof(od),
	}
	if s.active != nil {
		s.value = msg.Get(s.active)
		if s.active.Message() != nil {
			s.value = protoreflect.ValueOfMessage(proto.Clone(s.value.Message().Interface()).ProtoReflect())
		}
	}
	return s
}

func (s *oneofSnapshot) restore() {
	if cur := s.msg.WhichOneof(s.oneof); cur != nil {
		s.msg.Clear(cur)
	}
	if s.active != nil {
		s.msg.Set(s.active, s.value)
	}
}

// messageDepth returns the number of nested message levels in m (1 for a message without submessages).
func messageDepth(m protoreflect.Message) int {
	depth := 0
	m.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		switch {
		case fd.IsMap():
			if fd.MapValue().Message() != nil {
				v.Map().Range(func(_ protoreflect.MapKey, mv protoreflect.Value) bool {
					depth = max(depth, messageDepth(mv.Message()))
					return true
				})
			}
		case fd.Message() == nil:
		case fd.IsList():
			list := v.List()
			for i := 0; i < list.Len(); i++ {
				depth = max(depth, messageDepth(list.Get(i).Message()))
			}
		default:
			depth = max(depth, messageDepth(v.Message()))
		}
		return true
	})
	return depth + 1
}
