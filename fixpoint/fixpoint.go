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

// Package fixpoint implements §4.5: a monotone fixpoint iterator over a
// cfg.Program, driving transfer.Apply to convergence per block.
//
// The outer "changed" convergence loop is the same shape
// compile/ssa/domtree.go's BuildDomTree uses to compute dominator sets
// iteratively (loop until no block's value changes). Ordering blocks so
// loops converge without endless re-analysis of everything upstream of a
// back edge reuses compile/ssa/loop.go's LoopBuilder DFS
// (traverse/taggingHeader) to flag loop headers — here only to bias the
// worklist, since this engine has no loop tree to build, just a queue.
package fixpoint

import (
	"github.com/sirupsen/logrus"

	"asmlattice/cfg"
	"asmlattice/ir"
	"asmlattice/lattice"
	"asmlattice/transfer"
)

// Engine runs the fixpoint iteration over one cfg.Program and retains the
// in/out-state environments it converged to, so callers can inspect any
// node's exit state after Run.
type Engine struct {
	program   *cfg.Program
	registers []ir.Reg
	in        map[*cfg.Block]*lattice.Environment
	out       map[*cfg.Block]*lattice.Environment
}

// New builds an Engine for program, tracking exactly the registers named in
// registers across every block's in/out-state.
func New(program *cfg.Program, registers []ir.Reg) *Engine {
	return &Engine{program: program, registers: registers}
}

// Run drives every block's transfer to a least fixed point, starting the
// entry's in-state at ⊤ and every other block's in-state at ⊥ (§4.5). A
// transfer error short-circuits the run and is returned as is; it carries
// no environment. The in/out-states reached before the failure stay on the
// Engine and can be read with GetExitStateAt.
func (e *Engine) Run() error {
	e.in = make(map[*cfg.Block]*lattice.Environment, len(e.program.Blocks))
	e.out = make(map[*cfg.Block]*lattice.Environment, len(e.program.Blocks))
	for _, b := range e.program.Blocks {
		if b == e.program.Entry {
			e.in[b] = lattice.NewTop(e.registers)
		} else {
			e.in[b] = lattice.NewBottom(e.registers)
		}
		e.out[b] = lattice.NewBottom(e.registers)
	}

	order := e.worklistOrder()
	changed := true
	rounds := 0
	for changed {
		changed = false
		rounds++
		for _, b := range order {
			merged := e.mergeIn(b)
			if !merged.Equal(e.in[b]) {
				e.in[b] = merged
				changed = true
			}
			outState, err := e.transferBlock(b, merged)
			if err != nil {
				return err
			}
			if !outState.Equal(e.out[b]) {
				e.out[b] = outState
				changed = true
			}
		}
		logrus.WithField("round", rounds).Debug("fixpoint: converging")
	}
	logrus.WithField("rounds", rounds).Debug("fixpoint: converged")
	return nil
}

// mergeIn computes the pointwise join of every predecessor's out-state,
// or, for a node with no predecessors, its own initial in-state (⊤ for the
// entry, ⊥ for any other block).
func (e *Engine) mergeIn(b *cfg.Block) *lattice.Environment {
	if len(b.Preds) == 0 {
		return e.in[b]
	}
	merged := e.out[b.Preds[0]]
	for _, pred := range b.Preds[1:] {
		merged = merged.Join(e.out[pred])
	}
	return merged
}

// transferBlock runs every instruction in b in order over a working copy of
// in, yielding the block's out-state (§4.5 node transfer; edge transfer is
// identity, so no adjustment happens on the edges themselves).
func (e *Engine) transferBlock(b *cfg.Block, in *lattice.Environment) (*lattice.Environment, error) {
	env := in
	for _, instr := range b.Instrs {
		next, err := transfer.Apply(instr, env)
		if err != nil {
			return nil, err
		}
		env = next
	}
	return env, nil
}

// GetExitStateAt returns the converged out-state of b. Run must have
// returned successfully first.
func (e *Engine) GetExitStateAt(b *cfg.Block) *lattice.Environment {
	return e.out[b]
}

// worklistOrder returns program's blocks in program order, annotated so
// that loop headers are processed only after the rest of their body has a
// chance to settle in the within-round pass — a weak topological order in
// the sense §4.5 asks for, cheap enough given the shipped system's linear
// chain and occasional back edge.
func (e *Engine) worklistOrder() []*cfg.Block {
	headers := loopHeaders(e.program)
	var plain, loopy []*cfg.Block
	for _, b := range e.program.Blocks {
		if headers[b] {
			loopy = append(loopy, b)
		} else {
			plain = append(plain, b)
		}
	}
	return append(plain, loopy...)
}

// loopHeaders runs the DFS loop-header detection adapted from
// compile/ssa/loop.go's LoopBuilder: any block reached via a back edge (an
// edge to an ancestor still on the current DFS path) is a loop header.
func loopHeaders(p *cfg.Program) map[*cfg.Block]bool {
	visited := make(map[*cfg.Block]bool)
	onPath := make(map[*cfg.Block]bool)
	headers := make(map[*cfg.Block]bool)
	entry := p.Entry
	if entry == nil {
		return headers
	}
	var visit func(b *cfg.Block)
	visit = func(b *cfg.Block) {
		visited[b] = true
		onPath[b] = true
		for _, succ := range b.Succs {
			if onPath[succ] {
				headers[succ] = true
				continue
			}
			if !visited[succ] {
				visit(succ)
			}
		}
		onPath[b] = false
	}
	visit(entry)
	return headers
}
