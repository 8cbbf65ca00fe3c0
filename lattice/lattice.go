// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package lattice implements §3's disjoint-union abstract domain: a
// four-element-per-register lattice (Bottom, Number, Pointer(k), Top) and
// the total abstract environment mapping register names to it. The shape
// (a closed Kind enum plus a String() switch, package-level helper
// constructors) follows ast/type.go's Type in the teacher repo, generalized
// from a language type system to a join-semilattice.
package lattice

import (
	"fmt"

	"golang.org/x/exp/maps"

	"asmlattice/ir"
)

// Kind names which region of the disjoint union a Value occupies.
type Kind int

const (
	BottomKind Kind = iota
	NumberKind
	PointerKind
	TopKind
)

// Value is one element of the per-register lattice. For PointerKind,
// Indirection is the pointer's indirection count k >= 1 (§3); it is
// meaningless for the other kinds.
type Value struct {
	Kind        Kind
	Indirection int
}

// Bottom is ⊥: no information, identity of Join.
func Bottom() Value { return Value{Kind: BottomKind} }

// Top is ⊤: the value returned for a register missing from an environment,
// and the join of incompatible constants.
func Top() Value { return Value{Kind: TopKind} }

// Number is the constant 0 of the number sub-lattice.
func Number() Value { return Value{Kind: NumberKind} }

// PointerTo builds a Pointer(k) value. k must be >= 1 (§3 invariant).
func PointerTo(indirection int) Value {
	if indirection < 1 {
		panic(fmt.Sprintf("pointer indirection must be >= 1, got %d", indirection))
	}
	return Value{Kind: PointerKind, Indirection: indirection}
}

func (v Value) IsBottom() bool  { return v.Kind == BottomKind }
func (v Value) IsTop() bool     { return v.Kind == TopKind }
func (v Value) IsNumber() bool  { return v.Kind == NumberKind }
func (v Value) IsPointer() bool { return v.Kind == PointerKind }

// Equal reports whether two values denote the same lattice element.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	if v.Kind == PointerKind {
		return v.Indirection == o.Indirection
	}
	return true
}

// LessEqual is the lattice order: ⊥ ⊑ everything, everything ⊑ ⊤, and a
// value is ⊑ itself. Within a sub-lattice distinct constants are unordered.
func (v Value) LessEqual(o Value) bool {
	if v.IsBottom() || o.IsTop() {
		return true
	}
	return v.Equal(o)
}

// Join computes the least upper bound. Distinct constants within the same
// sub-lattice (e.g. Pointer(1) and Pointer(2)) are unordered and join to ⊤,
// as do values from different sub-lattices (§3).
func Join(a, b Value) Value {
	if a.IsBottom() {
		return b
	}
	if b.IsBottom() {
		return a
	}
	if a.IsTop() || b.IsTop() {
		return Top()
	}
	if a.Kind != b.Kind {
		return Top()
	}
	if a.Equal(b) {
		return a
	}
	return Top()
}

func (v Value) String() string {
	switch v.Kind {
	case BottomKind:
		return "⊥"
	case TopKind:
		return "⊤"
	case NumberKind:
		return "Number"
	case PointerKind:
		return fmt.Sprintf("Pointer(%d)", v.Indirection)
	}
	return "<unknown>"
}

// Environment is a total map from canonical register to Value. Keys absent
// from the backing map read as ⊤ (§3): an environment only needs explicit
// entries for registers actually tracked by the analysis (NewBottom/NewTop
// populate every tracked register explicitly so the distinction between
// "not yet analyzed" (⊥) and "genuinely unknown" (⊤) is preserved).
type Environment struct {
	vals map[ir.Reg]Value
}

// NewEnvironment returns an environment with no explicit entries; every
// register reads as ⊤ until Set.
func NewEnvironment() *Environment {
	return &Environment{vals: make(map[ir.Reg]Value)}
}

// NewBottom returns an environment with every register in regs explicitly
// mapped to ⊥ — the fixpoint engine's initial state for every block but
// the entry.
func NewBottom(regs []ir.Reg) *Environment {
	env := NewEnvironment()
	for _, r := range regs {
		env.vals[r] = Bottom()
	}
	return env
}

// NewTop returns an environment with every register in regs explicitly
// mapped to ⊤ — the fixpoint engine's initial entry in-state.
func NewTop(regs []ir.Reg) *Environment {
	env := NewEnvironment()
	for _, r := range regs {
		env.vals[r] = Top()
	}
	return env
}

// Get reads a register's abstract value, defaulting to ⊤ when unmapped.
func (e *Environment) Get(r ir.Reg) Value {
	if v, ok := e.vals[r]; ok {
		return v
	}
	return Top()
}

// Set performs the strong (destructive) assignment §3 describes.
func (e *Environment) Set(r ir.Reg, v Value) {
	e.vals[r] = v
}

// Clone returns an independent copy, giving transfer functions the
// by-value semantics §5 requires (copy-on-join is acceptable; environments
// are small).
func (e *Environment) Clone() *Environment {
	return &Environment{vals: maps.Clone(e.vals)}
}

// Join returns the pointwise join of e and o over the union of their keys.
func (e *Environment) Join(o *Environment) *Environment {
	out := NewEnvironment()
	seen := make(map[ir.Reg]bool, len(e.vals)+len(o.vals))
	for r := range e.vals {
		seen[r] = true
	}
	for r := range o.vals {
		seen[r] = true
	}
	for r := range seen {
		out.vals[r] = Join(e.Get(r), o.Get(r))
	}
	return out
}

// Equal reports whether e and o agree on every register mentioned by
// either (registers absent from both read as ⊤ on both sides, so they
// never cause a spurious mismatch).
func (e *Environment) Equal(o *Environment) bool {
	seen := make(map[ir.Reg]bool, len(e.vals)+len(o.vals))
	for r := range e.vals {
		seen[r] = true
	}
	for r := range o.vals {
		seen[r] = true
	}
	for r := range seen {
		if !e.Get(r).Equal(o.Get(r)) {
			return false
		}
	}
	return true
}

// Registers returns the explicit keys of the environment, sorted for
// deterministic diagnostics and tests.
func (e *Environment) Registers() []ir.Reg {
	regs := maps.Keys(e.vals)
	// Deterministic order regardless of map iteration.
	for i := 1; i < len(regs); i++ {
		for j := i; j > 0 && regs[j-1] > regs[j]; j-- {
			regs[j-1], regs[j] = regs[j], regs[j-1]
		}
	}
	return regs
}

func (e *Environment) String() string {
	s := "{"
	for i, r := range e.Registers() {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s=%v", r, e.Get(r))
	}
	return s + "}"
}
