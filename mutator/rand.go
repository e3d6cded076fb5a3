// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"math"
	"math/rand"
	"unsafe"

	"golang.org/x/exp/constraints"
)

type randGen struct {
	*rand.Rand
}

func newRand(rs rand.Source) *randGen {
	return &randGen{
		Rand: rand.New(rs),
	}
}

// index returns a random index in [0, n).
// It does not consume randomness when there is only one choice.
func (r *randGen) index(n int) int {
	if n <= 0 {
		panic("index of an empty range")
	}
	if n == 1 {
		return 0
	}
	return r.Intn(n)
}

func (r *randGen) bin() bool {
	return r.Intn(2) == 0
}

func (r *randGen) oneOf(n int) bool {
	return r.Intn(n) == 0
}

// subset returns sorted indices of a random subset of [0, n), each included with probability 1/2.
func (r *randGen) subset(n int) []int {
	var res []int
	for i := 0; i < n; i++ {
		if r.bin() {
			res = append(res, i)
		}
	}
	return res
}

func flipBit[T constraints.Integer](r *randGen, v T) T {
	bits := int(unsafe.Sizeof(v)) * 8
	return v ^ T(1)<<uint(r.index(bits))
}

func (r *randGen) flipFloat32(v float32) float32 {
	return math.Float32frombits(flipBit(r, math.Float32bits(v)))
}

func (r *randGen) flipFloat64(v float64) float64 {
	return math.Float64frombits(flipBit(r, math.Float64bits(v)))
}
