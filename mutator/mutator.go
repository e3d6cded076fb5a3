// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package mutator implements structure-aware mutation and crossover of protobuf messages.
// It works over any message type through protobuf reflection and never lets the
// serialized size of the edited message exceed the given limit.
package mutator

import (
	"math/rand"

	"github.com/protomut/protomut/pkg/log"
	"github.com/protomut/protomut/pkg/stat"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	// MaxDepth is the maximum nesting of messages the engine creates.
	// It matches the recursion limit used to decode inputs, so outputs always decode.
	MaxDepth = 100
	// MaxRepeatedAdd is the default upper bound on elements appended by one Add.
	MaxRepeatedAdd = 5

	// New scalar fields keep their plain default with probability 1/defaultRatio.
	defaultRatio    = 100
	maxFlipAttempts = 10
)

var (
	statMutations = stat.New("mutations", "Mutation edits applied",
		stat.Console, stat.Rate{}, stat.Prometheus("protomut_mutations"))
	statCrossover = stat.New("crossover edits", "Crossover edits applied",
		stat.Console, stat.Rate{}, stat.Prometheus("protomut_crossover_edits"))
	statRejected = stat.New("budget rejections", "Edits undone because the message outgrew the size limit",
		stat.Prometheus("protomut_budget_rejections"))
	statFixed = stat.New("fixed messages", "Messages passed through Fix")
)

// Mutator holds the engine configuration and its random source.
// It is not safe for concurrent use; use one Mutator per goroutine.
type Mutator struct {
	// KeepInitialized forbids deleting required fields, and makes Fix create missing ones.
	KeepInitialized bool
	// MaxRepeatedAdd bounds the number of elements appended to a repeated field at once.
	MaxRepeatedAdd int

	r              *randGen
	postProcessors map[protoreflect.FullName][]PostProcessor
}

func New(rs rand.Source) *Mutator {
	return &Mutator{
		MaxRepeatedAdd: MaxRepeatedAdd,
		r:              newRand(rs),
	}
}

// Seed restarts the random source, so that the following calls are reproducible.
func (m *Mutator) Seed(seed int64) {
	m.r = newRand(rand.NewSource(seed))
}

type op int

const (
	opAdd op = iota + 1
	opMutate
	opDelete
	opCopy
	opClone
	opShuffle
	opKeep
	opReplace
)

var opNames = map[op]string{
	opAdd:     "add",
	opMutate:  "mutate",
	opDelete:  "delete",
	opCopy:    "copy",
	opClone:   "clone",
	opShuffle: "shuffle",
	opKeep:    "keep",
	opReplace: "replace",
}

func (o op) String() string {
	return opNames[o]
}

// pass is the state shared by one Mutate or CrossOver call.
type pass struct {
	*Mutator
	b       *budget
	applied int
	stat    *stat.Val
}

// commit accepts the edit just made to f, or undoes it if the message outgrew the limit.
func (p *pass) commit(o op, f Field, undo func()) bool {
	if !p.b.commit() {
		undo()
		log.Logf(4, "%v %v: rejected, limit %v", o, f, p.b.limit)
		return false
	}
	p.applied++
	p.stat.Add(1)
	log.Logf(3, "%v %v: size %v/%v", o, f, p.b.size, p.b.limit)
	return true
}

// fits says if value v can be placed into a field of a message at the given depth.
func fits(v Value, depth int) bool {
	return v.Kind != KindMessage || depth+messageDepth(v.Msg) < MaxDepth
}

// canNest says if a new value of field fd can be created in a message at the given depth.
func canNest(fd protoreflect.FieldDescriptor, depth int) bool {
	return KindOf(fd) != KindMessage || depth+1 < MaxDepth
}
