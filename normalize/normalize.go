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

// Package normalize implements §4.2: a dispatch table keyed by leading
// mnemonic token that lowers one tokenized source line into exactly one or
// a small fixed sequence of ir.Instruction values. It replaces the original
// implementation's chain-of-responsibility handler objects
// (QAddHandler -> QSubHandler -> ... -> QErrorInstructionHandler) with a
// single map, per the redesign note in spec.md §4.2/§9.
package normalize

import (
	"asmlattice/canon"
	"asmlattice/diag"
	"asmlattice/ir"
	"asmlattice/token"
)

// jumpMnemonics are the jmp-family tokens the normalizer tolerates (§4.2);
// all but plain "jmp" also fall through to the next instruction.
var jumpMnemonics = map[string]bool{
	"jmp": false,
	"je":  true,
	"jne": true,
	"jg":  true,
	"jge": true,
	"jl":  true,
	"jle": true,
}

// logicalMnemonics stands in for the full and|or|xor|not|shl|shr set (§4.2).
var logicalMnemonics = map[string]bool{
	"and": true,
	"or":  true,
	"xor": true,
	"not": true,
	"shl": true,
	"shr": true,
}

// Normalizer lowers tokenized lines using a shared Canonicalizer, so that
// registers seen across the whole token-vector program map to a single
// dense symbolic space.
type Normalizer struct {
	canon *canon.Canonicalizer
}

// New returns a Normalizer that canonicalizes operands through c.
func New(c *canon.Canonicalizer) *Normalizer {
	return &Normalizer{canon: c}
}

// Line lowers a single tokenized line to the QElements it produces. Unknown
// mnemonics are a hard error (UnknownMnemonic); malformed operand tokens
// surface as MalformedOperand, both aborting normalization before the CFG
// is built (§7).
func (n *Normalizer) Line(l token.Line) ([]ir.Instruction, error) {
	mnemonic := l.Mnemonic()
	switch {
	case mnemonic == "label":
		return []ir.Instruction{ir.Nope(l.Arg(1))}, nil
	case mnemonic == "settype":
		return n.settype(l)
	case mnemonic == "add":
		return n.binary(l, ir.Add)
	case mnemonic == "sub":
		return n.binary(l, ir.Sub)
	case mnemonic == "cmp":
		return n.binary(l, ir.Cmp)
	case mnemonic == "mul":
		return n.unary(l, ir.Mul)
	case mnemonic == "div":
		return n.unary(l, ir.Div)
	case mnemonic == "mov":
		return n.mov(l)
	case mnemonic == "lea":
		return n.lea(l)
	case mnemonic == "not" && len(l) == 2:
		return n.unary(l, func(r ir.Reg) ir.Instruction { return ir.LogicalOp(r, r) })
	case logicalMnemonics[mnemonic]:
		return n.binary(l, ir.LogicalOp)
	case isJump(mnemonic):
		return []ir.Instruction{ir.Jump(l.Arg(1), jumpMnemonics[mnemonic])}, nil
	default:
		return nil, diag.WrapUnknownMnemonic(mnemonic)
	}
}

func isJump(mnemonic string) bool {
	_, ok := jumpMnemonics[mnemonic]
	return ok
}

func (n *Normalizer) settype(l token.Line) ([]ir.Instruction, error) {
	var kind ir.TypeAnnotation
	switch l.Arg(1) {
	case "pointer":
		kind = ir.Pointer
	case "number":
		kind = ir.Number
	default:
		return nil, diag.WrapMalformedOperand(l.Arg(1))
	}
	name := l.Arg(2)
	if name == "" {
		return nil, diag.WrapMalformedOperand(l.String())
	}
	return []ir.Instruction{ir.SetType(n.canon.Canonicalize(name), kind)}, nil
}

func (n *Normalizer) binary(l token.Line, build func(src, dst ir.Reg) ir.Instruction) ([]ir.Instruction, error) {
	src, err := n.canon.ParseOperand(l.Arg(1))
	if err != nil {
		return nil, err
	}
	dst, err := n.canon.ParseOperand(l.Arg(2))
	if err != nil {
		return nil, err
	}
	return []ir.Instruction{build(src.Reg, dst.Reg)}, nil
}

func (n *Normalizer) unary(l token.Line, build func(src ir.Reg) ir.Instruction) ([]ir.Instruction, error) {
	src, err := n.canon.ParseOperand(l.Arg(1))
	if err != nil {
		return nil, err
	}
	return []ir.Instruction{build(src.Reg)}, nil
}

func (n *Normalizer) mov(l token.Line) ([]ir.Instruction, error) {
	src, err := n.canon.ParseOperand(l.Arg(1))
	if err != nil {
		return nil, err
	}
	dst, err := n.canon.ParseOperand(l.Arg(2))
	if err != nil {
		return nil, err
	}
	return []ir.Instruction{ir.Mov(src.Reg, src.Kind == ir.MemKind, dst.Reg)}, nil
}

// lea lowers `lea base, index?, dst` (3 or 4 tokens). If an index register
// is present it scales it with a Mul before the effective-address Mov;
// otherwise only the Mov is emitted (§4.2).
func (n *Normalizer) lea(l token.Line) ([]ir.Instruction, error) {
	base, err := n.canon.ParseOperand(l.Arg(1))
	if err != nil {
		return nil, err
	}
	var dstTok string
	var out []ir.Instruction
	switch len(l) {
	case 3:
		dstTok = l.Arg(2)
	case 4:
		index, err := n.canon.ParseOperand(l.Arg(2))
		if err != nil {
			return nil, err
		}
		out = append(out, ir.Mul(index.Reg))
		dstTok = l.Arg(3)
	default:
		return nil, diag.WrapMalformedOperand(l.String())
	}
	dst, err := n.canon.ParseOperand(dstTok)
	if err != nil {
		return nil, err
	}
	out = append(out, ir.Mov(base.Reg, base.Kind == ir.MemKind, dst.Reg))
	return out, nil
}

// Program lowers every line of a token-vector program in order, short
// circuiting on the first normalization error.
func (n *Normalizer) Program(p token.Program) ([]ir.Instruction, error) {
	var out []ir.Instruction
	for _, line := range p {
		instrs, err := n.Line(line)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
	}
	return out, nil
}
