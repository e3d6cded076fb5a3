// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

// sampler selects one item out of a stream of weighted items without buffering them
// (weighted reservoir sampling, Chao 1982). Each item ends up selected with
// probability weight/total.
type sampler[T any] struct {
	r        *randGen
	total    int64
	selected T
}

func newSampler[T any](r *randGen) *sampler[T] {
	return &sampler[T]{r: r}
}

func (s *sampler[T]) Try(weight int, item T) {
	if weight <= 0 {
		return
	}
	s.total += int64(weight)
	if int64(weight) == s.total || s.r.Int63n(s.total) < int64(weight) {
		s.selected = item
	}
}

func (s *sampler[T]) Selected() T {
	if s.Empty() {
		panic("no items were sampled")
	}
	return s.selected
}

func (s *sampler[T]) Empty() bool {
	return s.total == 0
}
