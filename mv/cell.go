// Copyright 2025 go-multiversion Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mv

import "sync/atomic"

// Slot values stored in an Index cell.
const (
	// SlotUnresolved means no resolver has run yet.
	SlotUnresolved uint32 = 0

	// SlotGeneric selects the portable reference implementation.
	SlotGeneric uint32 = 1

	// SlotSpecialized is the slot of the first declared specialization.
	// The Nth declared specialization (counting from zero) lives in slot
	// SlotSpecialized + N.
	SlotSpecialized uint32 = 2
)

// Cell caches the implementation chosen by a resolver as a directly callable
// function value. The zero Cell is unresolved; a nil load is the "unresolved"
// sentinel and tells the dispatcher to run the resolver.
//
// Multiple goroutines may race to resolve the same Cell. That is safe: every
// resolver run stores an identical answer, so the last write wins without
// changing observable behavior.
type Cell[F any] struct {
	p atomic.Pointer[F]
}

// Get returns the cached function and true, or the zero value and false if
// the cell has not been resolved yet.
func (c *Cell[F]) Get() (fn F, ok bool) {
	if p := c.p.Load(); p != nil {
		return *p, true
	}
	return fn, false
}

// Store records the resolved function. Later Get calls return it.
func (c *Cell[F]) Store(fn F) {
	c.p.Store(&fn)
}

// Index caches the implementation chosen by a resolver as a slot number.
// It is used instead of Cell when the callee cannot be named as a concrete
// function type, i.e. for generic reference functions. The zero Index holds
// SlotUnresolved.
type Index struct {
	v atomic.Uint32
}

// Load returns the cached slot, or SlotUnresolved if no resolver has run.
func (x *Index) Load() uint32 {
	return x.v.Load()
}

// Store records the resolved slot.
func (x *Index) Store(slot uint32) {
	x.v.Store(slot)
}
