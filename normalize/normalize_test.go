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
package normalize

import (
	"testing"

	"github.com/pkg/errors"

	"asmlattice/canon"
	"asmlattice/diag"
	"asmlattice/ir"
	"asmlattice/token"
)

func TestSetType(t *testing.T) {
	n := New(canon.New())
	instrs, err := n.Line(token.Line{"settype", "pointer", "rdi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(instrs) != 1 || instrs[0].Tag != ir.TagSetType || instrs[0].SetTypeKind != ir.Pointer {
		t.Fatalf("got %+v", instrs)
	}
}

func TestMovExtractsMemKind(t *testing.T) {
	n := New(canon.New())
	instrs, err := n.Line(token.Line{"mov", "Mem:rdi", "Reg:rax"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(instrs) != 1 || !instrs[0].SrcIsMem {
		t.Fatalf("got %+v, want SrcIsMem=true", instrs)
	}
}

func TestLeaWithIndexEmitsMulThenMov(t *testing.T) {
	n := New(canon.New())
	instrs, err := n.Line(token.Line{"lea", "Reg:rdi", "Reg:rsi", "Reg:rax"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(instrs) != 2 || instrs[0].Tag != ir.TagMul || instrs[1].Tag != ir.TagMov {
		t.Fatalf("got %+v, want [Mul, Mov]", instrs)
	}
}

func TestLeaWithoutIndexEmitsOnlyMov(t *testing.T) {
	n := New(canon.New())
	instrs, err := n.Line(token.Line{"lea", "Reg:rdi", "Reg:rax"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(instrs) != 1 || instrs[0].Tag != ir.TagMov {
		t.Fatalf("got %+v, want [Mov]", instrs)
	}
}

func TestJumpFamilyRecognized(t *testing.T) {
	n := New(canon.New())
	for mnemonic, conditional := range jumpMnemonics {
		instrs, err := n.Line(token.Line{mnemonic, "loop"})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", mnemonic, err)
		}
		if len(instrs) != 1 || instrs[0].JumpTarget != "loop" || instrs[0].Conditional != conditional {
			t.Fatalf("%s: got %+v", mnemonic, instrs)
		}
	}
}

func TestLogicalOpFamilyRecognized(t *testing.T) {
	n := New(canon.New())
	for mnemonic := range logicalMnemonics {
		instrs, err := n.Line(token.Line{mnemonic, "Reg:rdi", "Reg:rax"})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", mnemonic, err)
		}
		if len(instrs) != 1 || instrs[0].Tag != ir.TagLogicalOp {
			t.Fatalf("%s: got %+v", mnemonic, instrs)
		}
	}
}

func TestUnknownMnemonicIsHardError(t *testing.T) {
	n := New(canon.New())
	_, err := n.Line(token.Line{"vmovaps", "Reg:rdi", "Reg:rax"})
	if err == nil {
		t.Fatalf("expected an error for an unrecognized mnemonic")
	}
	var tcErr *diag.TypeCheckError
	if !errors.As(err, &tcErr) {
		t.Fatalf("error is not a *diag.TypeCheckError: %v", err)
	}
	if tcErr.Kind != diag.UnknownMnemonic {
		t.Fatalf("kind = %v, want UnknownMnemonic", tcErr.Kind)
	}
}

func TestProgramShortCircuitsOnFirstError(t *testing.T) {
	n := New(canon.New())
	program := token.Program{
		{"settype", "pointer", "rdi"},
		{"bogus", "Reg:rdi"},
		{"mov", "Reg:rdi", "Reg:rax"},
	}
	if _, err := n.Program(program); err == nil {
		t.Fatalf("expected an error")
	}
}
