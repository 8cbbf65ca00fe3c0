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

// Package ir is the minimal intermediate instruction set the normalizer
// lowers tokenized source lines into: a closed tagged union (Tag) of
// Instruction payloads over an abstract register file, replacing the
// open QElement/QInstruction class hierarchy the language was originally
// expressed with. Exhaustive switches over Tag stand in for the subclass
// dispatch the original used.
package ir

import "fmt"

// Reg is a canonical register name, e.g. "r0", "r1", ... Equality is string
// equality; the canon package owns the source-name -> Reg mapping.
type Reg string

// Kind distinguishes a bare register operand from a one-level memory
// indirection through it.
type Kind int

const (
	RegKind Kind = iota
	MemKind
)

func (k Kind) String() string {
	if k == MemKind {
		return "Mem"
	}
	return "Reg"
}

// Operand carries a canonical register and whether it is accessed directly
// or through one level of indirection.
type Operand struct {
	Reg  Reg
	Kind Kind
}

func (o Operand) String() string {
	return fmt.Sprintf("%v:%v", o.Kind, o.Reg)
}

// TypeAnnotation is the declared type carried by a SetType instruction.
type TypeAnnotation int

const (
	Number TypeAnnotation = iota
	Pointer
)

func (t TypeAnnotation) String() string {
	if t == Pointer {
		return "pointer"
	}
	return "number"
}

// Tag identifies which normalized instruction an Instruction carries.
type Tag int

const (
	TagSetType Tag = iota
	TagMov
	TagAdd
	TagSub
	TagMul
	TagDiv
	TagCmp
	TagLogicalOp
	TagNope
)

func (t Tag) String() string {
	switch t {
	case TagSetType:
		return "SetType"
	case TagMov:
		return "Mov"
	case TagAdd:
		return "Add"
	case TagSub:
		return "Sub"
	case TagMul:
		return "Mul"
	case TagDiv:
		return "Div"
	case TagCmp:
		return "Cmp"
	case TagLogicalOp:
		return "LogicalOp"
	case TagNope:
		return "Nope"
	}
	return "<Unknown>"
}

// ImplicitDest is the fixed destination register of unary Mul/Div forms.
const ImplicitDest Reg = "r1"

// Instruction is the normalized node the CFG and the transfer functions
// operate on — the re-architected replacement for QElement.
type Instruction struct {
	Tag Tag

	// SetType
	SetTypeReg  Reg
	SetTypeKind TypeAnnotation

	// Mov
	Src      Reg
	SrcIsMem bool
	Dst      Reg

	// Add, Sub, Cmp, LogicalOp share (BinSrc, BinDst); Mul, Div take only a
	// source and always set BinDst to the implicit r1.
	BinSrc Reg
	BinDst Reg

	// Label carried by a Nope produced from a `label:` line, empty otherwise.
	Label string

	// JumpTarget is set on a Nope produced from a jmp-family mnemonic to the
	// name of the label it targets; Conditional distinguishes je/jne/... from
	// a plain unconditional jmp. Both are the CFG builder's jump-resolution
	// extension (§4.3/§9) — in the base linear system they're inert payload.
	JumpTarget  string
	Conditional bool
}

func (i Instruction) String() string {
	switch i.Tag {
	case TagSetType:
		return fmt.Sprintf("settype %v %v", i.SetTypeKind, i.SetTypeReg)
	case TagMov:
		return fmt.Sprintf("mov src=%v mem=%v dst=%v", i.Src, i.SrcIsMem, i.Dst)
	case TagAdd, TagSub, TagCmp, TagLogicalOp:
		return fmt.Sprintf("%v %v, %v", i.Tag, i.BinSrc, i.BinDst)
	case TagMul, TagDiv:
		return fmt.Sprintf("%v %v", i.Tag, i.BinSrc)
	case TagNope:
		if i.JumpTarget != "" {
			return fmt.Sprintf("nope jmp(cond=%v)->%s", i.Conditional, i.JumpTarget)
		}
		if i.Label != "" {
			return fmt.Sprintf("nope label=%s", i.Label)
		}
		return "nope"
	}
	return "<unknown instruction>"
}

// SetType builds a SetType instruction.
func SetType(reg Reg, kind TypeAnnotation) Instruction {
	return Instruction{Tag: TagSetType, SetTypeReg: reg, SetTypeKind: kind}
}

// Mov builds a Mov instruction.
func Mov(src Reg, srcIsMem bool, dst Reg) Instruction {
	return Instruction{Tag: TagMov, Src: src, SrcIsMem: srcIsMem, Dst: dst}
}

// Add builds an Add instruction (dst <- dst + src).
func Add(src, dst Reg) Instruction {
	return Instruction{Tag: TagAdd, BinSrc: src, BinDst: dst}
}

// Sub builds a Sub instruction (dst <- dst - src).
func Sub(src, dst Reg) Instruction {
	return Instruction{Tag: TagSub, BinSrc: src, BinDst: dst}
}

// Mul builds a Mul instruction; destination is always ImplicitDest.
func Mul(src Reg) Instruction {
	return Instruction{Tag: TagMul, BinSrc: src, BinDst: ImplicitDest}
}

// Div builds a Div instruction; destination is always ImplicitDest.
func Div(src Reg) Instruction {
	return Instruction{Tag: TagDiv, BinSrc: src, BinDst: ImplicitDest}
}

// Cmp builds a Cmp instruction (no write).
func Cmp(src, dst Reg) Instruction {
	return Instruction{Tag: TagCmp, BinSrc: src, BinDst: dst}
}

// LogicalOp builds an and/or/xor/not/shl/shr instruction.
func LogicalOp(src, dst Reg) Instruction {
	return Instruction{Tag: TagLogicalOp, BinSrc: src, BinDst: dst}
}

// Nope builds an identity instruction, optionally tagged with a label name
// for the CFG builder's jump-resolution extension.
func Nope(label string) Instruction {
	return Instruction{Tag: TagNope, Label: label}
}

// Jump builds a Nope carrying a jump target, the CFG builder's jump
// resolution extension (§4.3, §9). conditional distinguishes je/jne/...
// (which also fall through) from a plain unconditional jmp.
func Jump(target string, conditional bool) Instruction {
	return Instruction{Tag: TagNope, JumpTarget: target, Conditional: conditional}
}
