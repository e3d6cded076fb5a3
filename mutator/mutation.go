// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"fmt"

	"github.com/protomut/protomut/pkg/log"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Mutate applies one randomly chosen edit to every supported field of msg and of all
// its submessages, keeping the serialized size of msg within maxSize
// (or not growing it further if it is already larger).
// Returns false if no edit was applied.
func (m *Mutator) Mutate(msg protoreflect.Message, maxSize int) bool {
	ctx := &mutation{
		pass: pass{
			Mutator: m,
			b:       newBudget(msg, maxSize),
			stat:    statMutations,
		},
		sources: []protoreflect.Message{msg},
	}
	ctx.mutateMessage(msg, 0)
	log.Logf(2, "mutate %v: %v edits, size %v/%v",
		msg.Descriptor().FullName(), ctx.applied, ctx.b.size, maxSize)
	return ctx.applied != 0
}

type mutation struct {
	pass
	// Messages searched for copy and clone sources.
	sources []protoreflect.Message
}

func (ctx *mutation) mutateMessage(msg protoreflect.Message, depth int) {
	fields := msg.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if od := realOneof(fd); od != nil {
			// The whole group is handled on its first member.
			if od.Fields().Get(0) == fd {
				ctx.mutateOneof(msg, od, depth)
			}
			continue
		}
		if !supported(fd) {
			continue
		}
		ctx.mutateField(msg, fd, depth)
		ctx.recurse(msg, fd, depth)
	}
}

func (ctx *mutation) recurse(msg protoreflect.Message, fd protoreflect.FieldDescriptor, depth int) {
	if KindOf(fd) != KindMessage {
		return
	}
	if fd.IsList() {
		if msg.Get(fd).List().Len() == 0 {
			return
		}
		list := msg.Mutable(fd).List()
		for i := 0; i < list.Len(); i++ {
			ctx.mutateMessage(list.Get(i).Message(), depth+1)
		}
		return
	}
	if msg.Has(fd) {
		ctx.mutateMessage(msg.Mutable(fd).Message(), depth+1)
	}
}

func (ctx *mutation) mutateField(msg protoreflect.Message, fd protoreflect.FieldDescriptor, depth int) {
	s := newSampler[op](ctx.r)
	isMsg := KindOf(fd) == KindMessage
	nest := canNest(fd, depth)
	switch {
	case fd.IsList():
		if nest {
			s.Try(1, opAdd)
			s.Try(1, opClone)
		}
		if msg.Get(fd).List().Len() != 0 {
			if !isMsg {
				s.Try(1, opMutate)
			}
			s.Try(1, opDelete)
			s.Try(1, opCopy)
			s.Try(1, opShuffle)
		}
	case msg.Has(fd) || implicit(fd):
		if !isMsg {
			s.Try(1, opMutate)
		}
		if !implicit(fd) && (!ctx.KeepInitialized || fd.Cardinality() != protoreflect.Required) {
			s.Try(1, opDelete)
		}
		s.Try(1, opCopy)
	case nest:
		s.Try(1, opAdd)
		s.Try(1, opClone)
	}
	if s.Empty() {
		return
	}
	if fd.IsList() {
		ctx.applyList(msg, fd, s.Selected(), depth)
	} else {
		ctx.applySingular(singularField(msg, fd), s.Selected(), depth)
	}
}

func (ctx *mutation) applySingular(f Field, o op, depth int) {
	snap := takeSnapshot(f.msg, f.desc)
	switch o {
	case opAdd:
		f.Create(ctx.newValue(f))
	case opClone:
		f.Create(f.Default())
		if src, ok := ctx.findSource(f, depth); ok {
			f.Store(src.Load())
		}
	case opMutate:
		v := f.Load()
		if !ctx.mutateValue(&v) {
			return
		}
		f.Store(v)
	case opDelete:
		f.Delete()
	case opCopy:
		src, ok := ctx.findSource(f, depth)
		if !ok {
			return
		}
		f.Store(src.Load())
	default:
		panic(fmt.Sprintf("unexpected op %v", o))
	}
	ctx.commit(o, f, snap.restore)
}

func (ctx *mutation) applyList(msg protoreflect.Message, fd protoreflect.FieldDescriptor, o op, depth int) {
	list := msg.Mutable(fd).List()
	n := list.Len()
	switch o {
	case opAdd:
		count := 1 + ctx.r.Intn(ctx.MaxRepeatedAdd)
		for i := 0; i < count; i++ {
			f := elementField(msg, fd, list.Len())
			f.Create(ctx.newValue(f))
			if !ctx.commit(o, f, func() { list.Truncate(f.index) }) {
				break
			}
		}
		return
	case opClone:
		f := elementField(msg, fd, n)
		f.Create(f.Default())
		if src, ok := ctx.findSource(f, depth); ok {
			f.Store(src.Load())
		}
		ctx.commit(o, f, func() { list.Truncate(n) })
		return
	}
	f := elementField(msg, fd, ctx.r.index(n))
	old := f.raw()
	undo := func() { list.Set(f.index, old) }
	switch o {
	case opMutate:
		v := f.Load()
		if !ctx.mutateValue(&v) {
			return
		}
		f.Store(v)
	case opDelete:
		undo = takeSnapshot(msg, fd).restore
		f.Delete()
	case opCopy:
		src, ok := ctx.findSource(f, depth)
		if !ok {
			return
		}
		f.Store(src.Load())
	case opShuffle:
		undo = takeSnapshot(msg, fd).restore
		ctx.shuffle(list, f.Kind() == KindMessage)
	default:
		panic(fmt.Sprintf("unexpected op %v", o))
	}
	ctx.commit(o, f, undo)
}

// shuffle permutes a list. Message lists are reordered with a series of random swaps.
func (ctx *mutation) shuffle(list protoreflect.List, messages bool) {
	n := list.Len()
	swap := func(i, j int) {
		a, b := list.Get(i), list.Get(j)
		list.Set(i, b)
		list.Set(j, a)
	}
	if !messages {
		ctx.r.Shuffle(n, swap)
		return
	}
	for i := 0; i < n; i++ {
		swap(ctx.r.index(n), ctx.r.index(n))
	}
}

func (ctx *mutation) mutateOneof(msg protoreflect.Message, od protoreflect.OneofDescriptor, depth int) {
	var arms []protoreflect.FieldDescriptor
	fields := od.Fields()
	for i := 0; i < fields.Len(); i++ {
		if fd := fields.Get(i); supported(fd) && canNest(fd, depth) {
			arms = append(arms, fd)
		}
	}
	active := msg.WhichOneof(od)
	s := newSampler[op](ctx.r)
	if active == nil {
		if len(arms) != 0 {
			s.Try(1, opAdd)
		}
	} else {
		if len(arms) != 0 {
			s.Try(1, opMutate)
		}
		s.Try(1, opDelete)
		if supported(active) {
			s.Try(1, opCopy)
		}
	}
	if !s.Empty() {
		ctx.applyOneof(msg, od, active, arms, s.Selected(), depth)
	}
	if arm := msg.WhichOneof(od); arm != nil && KindOf(arm) == KindMessage {
		ctx.recurse(msg, arm, depth)
	}
}

func (ctx *mutation) applyOneof(msg protoreflect.Message, od protoreflect.OneofDescriptor,
	active protoreflect.FieldDescriptor, arms []protoreflect.FieldDescriptor, o op, depth int) {
	snap := takeOneofSnapshot(msg, od)
	var f Field
	switch o {
	case opAdd:
		f = singularField(msg, arms[ctx.r.index(len(arms))])
		f.Create(ctx.newValue(f))
	case opMutate:
		arm := arms[ctx.r.index(len(arms))]
		f = singularField(msg, arm)
		if arm != active {
			// Setting another arm clears the active one.
			f.Create(ctx.newValue(f))
			break
		}
		if f.Kind() == KindMessage {
			// The arm contents are mutated by the recursion that follows.
			return
		}
		v := f.Load()
		if !ctx.mutateValue(&v) {
			return
		}
		f.Store(v)
	case opDelete:
		f = singularField(msg, active)
		f.Delete()
	case opCopy:
		f = singularField(msg, active)
		src, ok := ctx.findSource(f, depth)
		if !ok {
			return
		}
		f.Store(src.Load())
	default:
		panic(fmt.Sprintf("unexpected op %v", o))
	}
	ctx.commit(o, f, snap.restore)
}

// newValue returns a value for a newly created field: usually a mutated default.
func (ctx *mutation) newValue(f Field) Value {
	v := f.Default()
	if v.Kind != KindMessage && !ctx.r.oneOf(defaultRatio) {
		ctx.mutateValue(&v)
	}
	return v
}

// mutateValue changes a scalar value, returns false if it failed to do so
// (e.g. the enum has a single value).
func (ctx *mutation) mutateValue(v *Value) bool {
	orig := *v
	for i := 0; i < maxFlipAttempts; i++ {
		switch v.Kind {
		case KindInt32:
			v.Int = int64(flipBit(ctx.r, int32(v.Int)))
		case KindInt64:
			v.Int = flipBit(ctx.r, v.Int)
		case KindUint32:
			v.Uint = uint64(flipBit(ctx.r, uint32(v.Uint)))
		case KindUint64:
			v.Uint = flipBit(ctx.r, v.Uint)
		case KindFloat:
			v.Float = float64(ctx.r.flipFloat32(float32(v.Float)))
		case KindDouble:
			v.Float = ctx.r.flipFloat64(v.Float)
		case KindBool:
			v.Bool = !v.Bool
		case KindEnum:
			if v.Enum.Count <= 1 {
				return false
			}
			v.Enum.Index = (v.Enum.Index + 1 + ctx.r.Intn(v.Enum.Count-1)) % v.Enum.Count
		case KindMessage, KindUnsupported:
			panic(fmt.Sprintf("can't mutate %v value", v.Kind))
		}
		if !v.Equal(orig) {
			return true
		}
	}
	return false
}

// findSource looks through all source messages for a value that can be copied into dst:
// a present field of the same kind and type holding a different value that fits
// into the remaining budget. Repeated fields are weighted by their length.
func (ctx *mutation) findSource(dst Field, depth int) (Field, bool) {
	cur := dst.peek()
	curSize := 0
	if cur.Kind == KindMessage {
		curSize = proto.Size(cur.Msg.Interface())
	}
	s := newSampler[Field](ctx.r)
	// walk returns the height of msg as messageDepth does, so that candidates
	// nested too deep are skipped without walking their subtrees again.
	var walk func(msg protoreflect.Message) int
	walk = func(msg protoreflect.Message) int {
		height := 0
		fields := msg.Descriptor().Fields()
		for i := 0; i < fields.Len(); i++ {
			fd := fields.Get(i)
			var heights []int
			switch {
			case fd.IsMap():
				if fd.MapValue().Message() != nil {
					msg.Get(fd).Map().Range(func(_ protoreflect.MapKey, v protoreflect.Value) bool {
						height = max(height, messageDepth(v.Message()))
						return true
					})
				}
			case KindOf(fd) != KindMessage:
			case fd.IsList():
				list := msg.Get(fd).List()
				heights = make([]int, list.Len())
				for j := range heights {
					heights[j] = walk(list.Get(j).Message())
					height = max(height, heights[j])
				}
			case msg.Has(fd):
				heights = []int{walk(msg.Get(fd).Message())}
				height = max(height, heights[0])
			}
			if !compatible(fd, dst.desc) {
				continue
			}
			if fd.IsList() {
				n := msg.Get(fd).List().Len()
				if n == 0 {
					continue
				}
				j := ctx.r.index(n)
				if src := elementField(msg, fd, j); ctx.canCopy(src, cur, curSize, at(heights, j), depth) {
					s.Try(n, src)
				}
			} else if msg.Has(fd) {
				if src := singularField(msg, fd); ctx.canCopy(src, cur, curSize, at(heights, 0), depth) {
					s.Try(1, src)
				}
			}
		}
		return height + 1
	}
	for _, msg := range ctx.sources {
		walk(msg)
	}
	if s.Empty() {
		return Field{}, false
	}
	return s.Selected(), true
}

// canCopy checks src against the current value. For messages height is the
// nesting height of src and curSize the size of cur; the cheap checks go first.
func (ctx *mutation) canCopy(src Field, cur Value, curSize, height, depth int) bool {
	v := src.peek()
	if v.Kind != KindMessage {
		return !v.Equal(cur)
	}
	if depth+height >= MaxDepth {
		return false
	}
	size := proto.Size(v.Msg.Interface())
	if size-curSize > ctx.b.remaining() {
		return false
	}
	// Equal messages have equal sizes.
	return size != curSize || !v.Equal(cur)
}

func at(heights []int, i int) int {
	if i < len(heights) {
		return heights[i]
	}
	return 0
}

// compatible says if values of field a can be stored into field b.
func compatible(a, b protoreflect.FieldDescriptor) bool {
	kind := KindOf(a)
	if kind != KindOf(b) {
		return false
	}
	switch kind {
	case KindEnum:
		return a.Enum().FullName() == b.Enum().FullName()
	case KindMessage:
		return a.Message().FullName() == b.Message().FullName()
	}
	return true
}
