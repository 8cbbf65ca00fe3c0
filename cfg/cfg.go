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

// Package cfg builds the basic-block arena the fixpoint engine walks (§4.3).
// The Program/Block shape — a dense vector of blocks owned by the Program,
// edges stored symmetrically as Succs/Preds slices on their endpoints — is
// adapted from compile/ssa/hir.go's Func/Block, dropping the SSA value graph
// (this language has no phi nodes) and replacing BlockKind's branch-arity
// bookkeeping with the label/jump resolution extension described in §9.
package cfg

import (
	"fmt"

	"golang.org/x/exp/slices"

	"asmlattice/diag"
	"asmlattice/ir"
)

// Block owns an ordered sequence of normalized instructions plus its
// successor/predecessor edges.
type Block struct {
	Program *Program
	Id      int
	Instrs  []ir.Instruction
	Succs   []*Block
	Preds   []*Block
}

func (b *Block) String() string {
	return fmt.Sprintf("b%d", b.Id)
}

// WireTo adds a symmetric edge from b to to, the same helper hir.go's
// Block.WireTo provides for SSA blocks.
func (b *Block) WireTo(to *Block) {
	b.Succs = append(b.Succs, to)
	to.Preds = append(to.Preds, b)
}

// Program is the arena: a designated entry block and the dense vector of
// every block built, including blocks a jump leaves unreachable.
type Program struct {
	Entry  *Block
	Blocks []*Block
}

func (p *Program) newBlock() *Block {
	b := &Block{Program: p, Id: len(p.Blocks)}
	p.Blocks = append(p.Blocks, b)
	return b
}

// Exit returns the program's sole exit block — the last block in program
// order, matching the base linear-chain design (§4.3). Callers after the
// jump-resolution extension should prefer GetExitStateAt on every block with
// no successors instead of assuming a single exit when branches are present.
func (p *Program) Exit() *Block {
	if len(p.Blocks) == 0 {
		return nil
	}
	return p.Blocks[len(p.Blocks)-1]
}

// Build lifts a flat normalized instruction stream into the block arena
// (§4.3). The first block is synthetic, installing `SetType r2 Number`
// because the immediate pseudo-register always denotes a numeric constant;
// every subsequent instruction becomes its own block, chained linearly.
//
// Label and jump instructions are then resolved into real edges: a label's
// block becomes a jump target, and a Nope with JumpTarget set rewires its
// successor set to the labeled block — additively, when Conditional is true,
// so the fallthrough edge the linear chain already installed survives.
func Build(instrs []ir.Instruction, immediate ir.Reg) (*Program, error) {
	p := &Program{}
	seed := p.newBlock()
	seed.Instrs = []ir.Instruction{ir.SetType(immediate, ir.Number)}
	p.Entry = seed

	prev := seed
	labels := make(map[string]*Block)
	for _, instr := range instrs {
		b := p.newBlock()
		b.Instrs = []ir.Instruction{instr}
		prev.WireTo(b)
		if instr.Tag == ir.TagNope && instr.Label != "" {
			labels[instr.Label] = b
		}
		prev = b
	}

	for _, b := range p.Blocks {
		if len(b.Instrs) != 1 {
			continue
		}
		instr := b.Instrs[0]
		if instr.Tag != ir.TagNope || instr.JumpTarget == "" {
			continue
		}
		target, ok := labels[instr.JumpTarget]
		if !ok {
			return nil, diag.NewUnresolvedLabel(instr.JumpTarget)
		}
		if !instr.Conditional {
			// Unconditional jump: the fixed linear successor is unreachable
			// through control flow, so replace it with the real target.
			for _, succ := range b.Succs {
				succ.removePred(b)
			}
			b.Succs = nil
		}
		b.WireTo(target)
	}
	return p, nil
}

func (b *Block) removePred(pred *Block) {
	if i := slices.Index(b.Preds, pred); i >= 0 {
		b.Preds = slices.Delete(b.Preds, i, i+1)
	}
}
