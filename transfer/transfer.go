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

// Package transfer implements §4.4: one pure function per normalized
// mnemonic tag, each a total function over an abstract environment that
// either mutates a working copy or raises a *diag.TypeCheckError.
//
// The original implementation's Mnemonic::analyze_mnemonic dispatched on
// destination type before handing off to a subclass-overridable
// analyze_dest_number/analyze_dest_pointer pair (see
// original_source/llvm/tools/llvm-mc/fixpoint_instructions.h). That
// two-phase shape — classify dst, then branch — is kept, but inlined
// directly into each tag's function instead of routed through virtual
// dispatch, per spec.md §9's redesign note.
package transfer

import (
	"asmlattice/diag"
	"asmlattice/ir"
	"asmlattice/lattice"
)

// StrictMulDiv additionally requires Mul/Div's source operand to be Number,
// not just the implicit destination r1. The shipped system (and the
// original this spec was distilled from — QMulHandler/QDivHandler only ever
// inspect the destination) leaves this off; flip it on for the stricter
// alternative spec.md §9 calls out as an open question.
var StrictMulDiv = false

// Apply runs instr's transfer function over env, returning the resulting
// environment (a fresh copy; env is never mutated in place) or a
// *diag.TypeCheckError.
func Apply(instr ir.Instruction, env *lattice.Environment) (*lattice.Environment, error) {
	switch instr.Tag {
	case ir.TagSetType:
		return setType(instr, env)
	case ir.TagMov:
		return mov(instr, env)
	case ir.TagAdd:
		return add(instr, env)
	case ir.TagSub:
		return sub(instr, env)
	case ir.TagMul:
		return mulDiv(instr, env)
	case ir.TagDiv:
		return mulDiv(instr, env)
	case ir.TagCmp:
		return cmp(instr, env)
	case ir.TagLogicalOp:
		return logicalOp(instr, env)
	case ir.TagNope:
		return env.Clone(), nil
	}
	return nil, diag.NewTypeMismatch(diag.TypeMismatch, instr, "", "", "unhandled tag")
}

func setType(instr ir.Instruction, env *lattice.Environment) (*lattice.Environment, error) {
	out := env.Clone()
	if instr.SetTypeKind == ir.Pointer {
		out.Set(instr.SetTypeReg, lattice.PointerTo(1))
	} else {
		out.Set(instr.SetTypeReg, lattice.Number())
	}
	return out, nil
}

// mov implements both Mov forms from the §4.4 table: a direct (non-mem)
// move is a strong, unconditional assignment, env[dst] <- env[src] (§3:
// "Assignment is strong (destructive) at a point"); a Mem-indirected move
// requires src to be Pointer and collapses to Number on the destination
// (the open question on decrementing vs. collapsing the indirection count
// — resolved to collapse, see SPEC_FULL.md). The dereference check only
// ever applies to the Mem-kind operand; a non-mem Mov never dereferences
// anything, so it never rejects a Number dst receiving a Pointer src.
func mov(instr ir.Instruction, env *lattice.Environment) (*lattice.Environment, error) {
	dstVal := env.Get(instr.Dst)
	srcVal := env.Get(instr.Src)
	out := env.Clone()

	if instr.SrcIsMem {
		if srcVal.IsNumber() {
			return nil, diag.NewTypeMismatch(diag.DerefOfNumber, instr, string(instr.Src), "Pointer", srcVal.String())
		}
		switch {
		case dstVal.IsPointer() || dstVal.IsTop() || dstVal.IsBottom():
			out.Set(instr.Dst, lattice.Number())
		case dstVal.IsNumber():
			return nil, diag.NewTypeMismatch(diag.TypeMismatch, instr, string(instr.Dst), "Pointer", "Number")
		}
		return out, nil
	}

	out.Set(instr.Dst, srcVal)
	return out, nil
}

// add implements dst <- dst + src: pointer arithmetic is allowed when
// exactly one side is a pointer (the result inherits the pointer's type);
// adding two pointers is rejected.
func add(instr ir.Instruction, env *lattice.Environment) (*lattice.Environment, error) {
	dstVal := env.Get(instr.BinDst)
	srcVal := env.Get(instr.BinSrc)
	out := env.Clone()

	switch {
	case dstVal.IsPointer() && srcVal.IsPointer():
		return nil, diag.NewTypeMismatch(diag.TypeMismatch, instr, string(instr.BinDst), "Number", "Pointer")
	case dstVal.IsNumber() && srcVal.IsPointer():
		out.Set(instr.BinDst, srcVal)
	}
	return out, nil
}

// sub implements dst <- dst - src: pointer - pointer yields Number,
// pointer - number keeps the pointer type, number - pointer is rejected.
func sub(instr ir.Instruction, env *lattice.Environment) (*lattice.Environment, error) {
	dstVal := env.Get(instr.BinDst)
	srcVal := env.Get(instr.BinSrc)
	out := env.Clone()

	switch {
	case dstVal.IsNumber() && srcVal.IsPointer():
		return nil, diag.NewTypeMismatch(diag.TypeMismatch, instr, string(instr.BinSrc), "Number", "Pointer")
	case dstVal.IsPointer() && srcVal.IsPointer():
		out.Set(instr.BinDst, lattice.Number())
	}
	return out, nil
}

// mulDiv implements both Mul and Div: the implicit destination r1 must be
// Number. With StrictMulDiv set, the source operand is held to the same
// requirement.
func mulDiv(instr ir.Instruction, env *lattice.Environment) (*lattice.Environment, error) {
	dstVal := env.Get(instr.BinDst)
	if dstVal.IsPointer() {
		return nil, diag.NewTypeMismatch(diag.TypeMismatch, instr, string(instr.BinDst), "Number", "Pointer")
	}
	if StrictMulDiv {
		srcVal := env.Get(instr.BinSrc)
		if srcVal.IsPointer() {
			return nil, diag.NewTypeMismatch(diag.TypeMismatch, instr, string(instr.BinSrc), "Number", "Pointer")
		}
	}
	return env.Clone(), nil
}

// cmp requires both operands to agree in kind; it never writes.
func cmp(instr ir.Instruction, env *lattice.Environment) (*lattice.Environment, error) {
	dstVal := env.Get(instr.BinDst)
	srcVal := env.Get(instr.BinSrc)
	if mismatched(dstVal, srcVal) {
		return nil, diag.NewTypeMismatch(diag.TypeMismatch, instr, string(instr.BinSrc), dstVal.String(), srcVal.String())
	}
	return env.Clone(), nil
}

// logicalOp covers and|or|xor|not|shl|shr: both operands must be Number,
// uniformly including the unary `not` form (spec.md §9: the original is
// silent, this spec forbids pointer operands on every member).
func logicalOp(instr ir.Instruction, env *lattice.Environment) (*lattice.Environment, error) {
	dstVal := env.Get(instr.BinDst)
	srcVal := env.Get(instr.BinSrc)
	if dstVal.IsPointer() {
		return nil, diag.NewTypeMismatch(diag.TypeMismatch, instr, string(instr.BinDst), "Number", "Pointer")
	}
	if srcVal.IsPointer() {
		return nil, diag.NewTypeMismatch(diag.TypeMismatch, instr, string(instr.BinSrc), "Number", "Pointer")
	}
	return env.Clone(), nil
}

// mismatched reports whether a and b are both resolved (Number or Pointer)
// but belong to different sub-lattices; ⊤/⊥ are never considered mismatched
// since the two-phase dispatch treats them as "not yet known" (§4.4).
func mismatched(a, b lattice.Value) bool {
	if a.IsTop() || a.IsBottom() || b.IsTop() || b.IsBottom() {
		return false
	}
	return a.IsNumber() != b.IsNumber()
}
