// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qnewton

import (
	"slices"

	"github.com/curioloop/manopt/manifold"
)

// history is the limited-memory correction window: two equal-length
// sequences of (sₖ, yₖ) pairs plus the number of valid entries.
// Index 0 holds the oldest pair, count-1 the newest. Every valid entry is
// anchored at the current iterate after each update. Valid pairs satisfy
// ⟨sᵢ, yᵢ⟩ ≠ 0; the update engine rejects pairs violating it before they
// can reach the two-loop recursion.
type history struct {
	capacity int
	count    int
	s, y     []manifold.TanVec
}

func newHistory(capacity int, init *Corrections) *history {
	h := &history{
		capacity: capacity,
		s:        make([]manifold.TanVec, capacity),
		y:        make([]manifold.TanVec, capacity),
	}
	if init != nil {
		for i := range init.Steps {
			h.s[i] = slices.Clone(init.Steps[i])
			h.y[i] = slices.Clone(init.GradDiffs[i])
		}
		h.count = len(init.Steps)
	}
	return h
}

// push inserts the newest pair. When the window is full the oldest pair is
// evicted and all others shift one position down (FIFO).
func (h *history) push(s, y manifold.TanVec) {
	if h.count == h.capacity {
		copy(h.s, h.s[1:h.count])
		copy(h.y, h.y[1:h.count])
		h.count--
	}
	h.s[h.count] = s
	h.y[h.count] = y
	h.count++
}

// transport moves every valid pair into the tangent space at to.
func (h *history) transport(man manifold.Manifold, from, to manifold.Point) {
	for i := 0; i < h.count; i++ {
		h.s[i] = man.Transport(h.s[i], from, to)
		h.y[i] = man.Transport(h.y[i], from, to)
	}
}
