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

// Package canon implements §4.1: mapping source-architecture register names
// (rax, rdi, rsp, Imm, ...) to a dense symbolic register space r0, r1, ...,
// deterministically allocating a fresh name on first sight. The pre-seeded
// bindings (rsp, rax, Imm) mirror QProgram's `registers` map in the original
// implementation this spec was distilled from.
package canon

import (
	"fmt"
	"strings"

	"asmlattice/diag"
	"asmlattice/ir"
)

// Reserved canonical registers, visible in the exit environment (§6).
const (
	StackPointer ir.Reg = "r0" // r0 = stack pointer
	Multiplicand ir.Reg = "r1" // r1 = implicit multiplicand/dividend, lea sink
	Immediate    ir.Reg = "r2" // r2 = immediate-operand pseudo-register
)

// Canonicalizer owns the source-name -> canonical-name mapping for the
// lifetime of one program. It never errors: canonicalize always succeeds
// by allocating a fresh name when one doesn't already exist (§4.1).
type Canonicalizer struct {
	names map[string]ir.Reg
	next  int
}

// New returns a Canonicalizer pre-seeded with the stack pointer, the
// implicit multiplicand/dividend register, and the immediate pseudo
// register, in that order, so their canonical names are fixed regardless
// of the program under analysis.
func New() *Canonicalizer {
	c := &Canonicalizer{names: make(map[string]ir.Reg)}
	c.seed("rsp", StackPointer)
	c.seed("rax", Multiplicand)
	c.seed("Imm", Immediate)
	return c
}

func (c *Canonicalizer) seed(name string, canonical ir.Reg) {
	c.names[name] = canonical
	c.next++
}

// Canonicalize returns name's canonical register, allocating a fresh one
// ("r" + insertion count) the first time name is seen. Determinism depends
// only on the insertion order of new names (§4.1).
func (c *Canonicalizer) Canonicalize(name string) ir.Reg {
	if r, ok := c.names[name]; ok {
		return r
	}
	r := ir.Reg(fmt.Sprintf("r%d", c.next))
	c.names[name] = r
	c.next++
	return r
}

// Mapping returns a snapshot of the source-name -> canonical-name table
// built so far, for tests that want to assert on insertion order.
func (c *Canonicalizer) Mapping() map[string]ir.Reg {
	out := make(map[string]ir.Reg, len(c.names))
	for k, v := range c.names {
		out[k] = v
	}
	return out
}

// ParseOperand splits an operand token of shape "Kind:Name" and
// canonicalizes Name. It is the only place the canonicalizer can fail
// (§7 MalformedOperand): the split must produce exactly two parts and Kind
// must be one of Reg or Mem.
func (c *Canonicalizer) ParseOperand(token string) (ir.Operand, error) {
	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 {
		return ir.Operand{}, diag.WrapMalformedOperand(token)
	}
	var kind ir.Kind
	switch parts[0] {
	case "Reg":
		kind = ir.RegKind
	case "Mem":
		kind = ir.MemKind
	default:
		return ir.Operand{}, diag.WrapMalformedOperand(token)
	}
	if parts[1] == "" {
		return ir.Operand{}, diag.WrapMalformedOperand(token)
	}
	return ir.Operand{Reg: c.Canonicalize(parts[1]), Kind: kind}, nil
}
