// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"fmt"

	"github.com/protomut/protomut/pkg/log"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// CrossOver copies random parts of src into dst, keeping the serialized size of dst within maxSize.
// Every field may also be kept as is, and submessages present in both messages are crossed recursively.
// A destination without room left is not changed at all.
// src and dst must be messages of the same type, otherwise CrossOver panics.
// Returns false if no edit was applied.
func (m *Mutator) CrossOver(src, dst protoreflect.Message, maxSize int) bool {
	checkSchema(src.Descriptor(), dst.Descriptor())
	ctx := &crossover{
		pass: pass{
			Mutator: m,
			b:       newBudget(dst, maxSize),
			stat:    statCrossover,
		},
	}
	if ctx.b.remaining() <= 0 {
		return false
	}
	ctx.crossMessage(src, dst, 0)
	log.Logf(2, "crossover %v: %v edits, size %v/%v",
		dst.Descriptor().FullName(), ctx.applied, ctx.b.size, maxSize)
	return ctx.applied != 0
}

type crossover struct {
	pass
}

func checkSchema(src, dst protoreflect.MessageDescriptor) {
	if src.FullName() != dst.FullName() {
		panic(fmt.Sprintf("crossover of different messages %v and %v", src.FullName(), dst.FullName()))
	}
	fields := dst.Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		sfd := src.Fields().ByNumber(fd.Number())
		if sfd == nil {
			continue
		}
		if sfd.Kind() != fd.Kind() || sfd.Cardinality() != fd.Cardinality() || sfd.IsMap() != fd.IsMap() {
			panic(fmt.Sprintf("crossover of mismatching fields %v (%v %v) and %v (%v %v)",
				sfd.FullName(), sfd.Cardinality(), sfd.Kind(), fd.FullName(), fd.Cardinality(), fd.Kind()))
		}
	}
}

func (ctx *crossover) crossMessage(src, dst protoreflect.Message, depth int) {
	checkSchema(src.Descriptor(), dst.Descriptor())
	sfields := src.Descriptor().Fields()
	fields := dst.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		sfd := sfields.ByNumber(fd.Number())
		if sfd == nil {
			continue
		}
		if od := realOneof(fd); od != nil {
			if od.Fields().Get(0) == fd {
				ctx.crossOneof(src, dst, od, depth)
			}
			continue
		}
		if !supported(fd) {
			continue
		}
		if fd.IsList() {
			ctx.crossList(src, sfd, dst, fd, depth)
		} else {
			ctx.crossSingular(src, sfd, dst, fd, depth)
		}
	}
}

func (ctx *crossover) crossSingular(src protoreflect.Message, sfd protoreflect.FieldDescriptor,
	dst protoreflect.Message, fd protoreflect.FieldDescriptor, depth int) {
	if !src.Has(sfd) {
		return
	}
	sf, df := singularField(src, sfd), singularField(dst, fd)
	has := dst.Has(fd)
	s := newSampler[op](ctx.r)
	s.Try(1, opKeep)
	if fits(sf.peek(), depth) {
		if has {
			s.Try(1, opReplace)
		} else {
			s.Try(1, opAdd)
		}
	}
	switch o := s.Selected(); o {
	case opKeep:
		if has && df.Kind() == KindMessage {
			ctx.crossMessage(src.Get(sfd).Message(), dst.Mutable(fd).Message(), depth+1)
		}
	case opAdd, opReplace:
		v := sf.Load()
		if has && df.peek().Equal(v) {
			return
		}
		snap := takeSnapshot(dst, fd)
		df.Store(v)
		ctx.commit(o, df, snap.restore)
	}
}

func (ctx *crossover) crossList(src protoreflect.Message, sfd protoreflect.FieldDescriptor,
	dst protoreflect.Message, fd protoreflect.FieldDescriptor, depth int) {
	n := src.Get(sfd).List().Len()
	if n == 0 {
		return
	}
	list := dst.Mutable(fd).List()
	s := newSampler[op](ctx.r)
	s.Try(1, opKeep)
	if list.Len() != 0 {
		s.Try(1, opReplace)
	}
	if canNest(fd, depth) {
		s.Try(1, opAdd)
	}
	switch o := s.Selected(); o {
	case opKeep:
		if KindOf(fd) != KindMessage {
			return
		}
		slist := src.Get(sfd).List()
		for i := 0; i < list.Len(); i++ {
			ctx.crossMessage(slist.Get(ctx.r.index(n)).Message(), list.Get(i).Message(), depth+1)
		}
	case opReplace:
		for _, i := range ctx.r.subset(list.Len()) {
			v := elementField(src, sfd, ctx.r.index(n)).Load()
			df := elementField(dst, fd, i)
			if !fits(v, depth) || df.peek().Equal(v) {
				continue
			}
			old := df.raw()
			df.Store(v)
			ctx.commit(o, df, func() { list.Set(i, old) })
		}
	case opAdd:
		for _, i := range ctx.r.subset(n) {
			sf := elementField(src, sfd, i)
			if v := sf.peek(); !fits(v, depth) || contains(dst, fd, v) {
				continue
			}
			df := elementField(dst, fd, list.Len())
			df.Create(sf.Load())
			ctx.commit(o, df, func() { list.Truncate(df.index) })
		}
	}
}

func contains(msg protoreflect.Message, fd protoreflect.FieldDescriptor, v Value) bool {
	n := msg.Get(fd).List().Len()
	for i := 0; i < n; i++ {
		if elementField(msg, fd, i).peek().Equal(v) {
			return true
		}
	}
	return false
}

func (ctx *crossover) crossOneof(src, dst protoreflect.Message, od protoreflect.OneofDescriptor, depth int) {
	sod := src.Descriptor().Oneofs().ByName(od.Name())
	if sod == nil {
		return
	}
	sarm := src.WhichOneof(sod)
	if sarm == nil || !supported(sarm) {
		return
	}
	arm := dst.Descriptor().Fields().ByNumber(sarm.Number())
	if arm == nil || arm.ContainingOneof() != od {
		panic(fmt.Sprintf("crossover of mismatching oneofs %v and %v", sod.FullName(), od.FullName()))
	}
	active := dst.WhichOneof(od)
	sf, df := singularField(src, sarm), singularField(dst, arm)
	s := newSampler[op](ctx.r)
	s.Try(1, opKeep)
	if fits(sf.peek(), depth) {
		if active == nil {
			s.Try(1, opAdd)
		} else {
			s.Try(1, opReplace)
		}
	}
	sameArm := active != nil && active.Number() == arm.Number()
	switch o := s.Selected(); o {
	case opKeep:
		if sameArm && df.Kind() == KindMessage {
			ctx.crossMessage(src.Get(sarm).Message(), dst.Mutable(arm).Message(), depth+1)
		}
	case opAdd, opReplace:
		v := sf.Load()
		if sameArm && df.peek().Equal(v) {
			return
		}
		snap := takeOneofSnapshot(dst, od)
		df.Store(v)
		ctx.commit(o, df, snap.restore)
	}
}
