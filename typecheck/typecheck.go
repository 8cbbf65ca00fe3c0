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

// Package typecheck is the top-level orchestrator: it chains canon ->
// normalize -> cfg -> fixpoint over a token.Program the way
// compile/compiler.go's CompileTheWorld chains parse -> infer -> typecheck
// -> codegen -> link, with the same debug-gated narration (there via
// fmt.Printf guarded by DebugDumpSSA-style booleans, here via logrus at
// Debug level).
package typecheck

import (
	"github.com/sirupsen/logrus"

	"asmlattice/canon"
	"asmlattice/cfg"
	"asmlattice/diag"
	"asmlattice/fixpoint"
	"asmlattice/ir"
	"asmlattice/lattice"
	"asmlattice/normalize"
	"asmlattice/token"
)

// Run type-checks a full token-vector program (§6), returning the exit
// environment or the first *diag.TypeCheckError encountered. Normalization
// errors (UnknownMnemonic, MalformedOperand) abort before a CFG is ever
// built (§7); CFG resolution errors (UnresolvedLabel) abort before the
// fixpoint engine runs; transfer errors abort the fixpoint itself.
func Run(program token.Program) (*lattice.Environment, error) {
	c := canon.New()
	n := normalize.New(c)

	logrus.WithField("lines", len(program)).Debug("typecheck: normalizing")
	instrs, err := n.Program(program)
	if err != nil {
		return nil, err
	}

	logrus.WithField("instructions", len(instrs)).Debug("typecheck: building cfg")
	p, err := cfg.Build(instrs, canon.Immediate)
	if err != nil {
		return nil, err
	}

	registers := trackedRegisters(c)
	logrus.WithField("blocks", len(p.Blocks)).WithField("registers", len(registers)).Debug("typecheck: running fixpoint")
	engine := fixpoint.New(p, registers)
	if err := engine.Run(); err != nil {
		if tcErr, ok := err.(*diag.TypeCheckError); ok {
			logrus.WithField("kind", tcErr.Kind).Debug("typecheck: rejected")
		}
		return nil, err
	}

	exit := engine.GetExitStateAt(p.Exit())
	logrus.WithField("exit", exit.String()).Debug("typecheck: accepted")
	return exit, nil
}

func trackedRegisters(c *canon.Canonicalizer) []ir.Reg {
	mapping := c.Mapping()
	regs := make([]ir.Reg, 0, len(mapping))
	for _, r := range mapping {
		regs = append(regs, r)
	}
	return regs
}
