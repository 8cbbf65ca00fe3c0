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
package transfer

import (
	"testing"

	"asmlattice/diag"
	"asmlattice/ir"
	"asmlattice/lattice"
)

func newEnv(kv map[ir.Reg]lattice.Value) *lattice.Environment {
	env := lattice.NewEnvironment()
	for r, v := range kv {
		env.Set(r, v)
	}
	return env
}

func mustErr(t *testing.T, err error, kind diag.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error")
	}
	tcErr, ok := err.(*diag.TypeCheckError)
	if !ok {
		t.Fatalf("error is not a *diag.TypeCheckError: %v", err)
	}
	if tcErr.Kind != kind {
		t.Fatalf("kind = %v, want %v", tcErr.Kind, kind)
	}
}

func TestMovDirectPropagatesSrcType(t *testing.T) {
	env := newEnv(map[ir.Reg]lattice.Value{"rdi": lattice.PointerTo(1)})
	out, err := Apply(ir.Mov("rdi", false, "rax"), env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.Get("rax"); !got.Equal(lattice.PointerTo(1)) {
		t.Fatalf("rax = %v, want Pointer(1)", got)
	}
}

// A non-mem Mov is a strong, unconditional assignment (spec.md §3): it
// never dereferences anything, so a Number destination receiving a
// Pointer source is not an error, unlike the Mem-indirected form below.
func TestMovDirectOverwritesNumberDestWithPointer(t *testing.T) {
	env := newEnv(map[ir.Reg]lattice.Value{"rax": lattice.Number(), "rdi": lattice.PointerTo(1)})
	out, err := Apply(ir.Mov("rdi", false, "rax"), env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.Get("rax"); !got.Equal(lattice.PointerTo(1)) {
		t.Fatalf("rax = %v, want Pointer(1)", got)
	}
}

// Scenario B (spec.md §8): dereferencing a pointer collapses to Number.
func TestMovThroughPointerCollapsesToNumber(t *testing.T) {
	env := newEnv(map[ir.Reg]lattice.Value{"rdi": lattice.PointerTo(1)})
	out, err := Apply(ir.Mov("rdi", true, "rax"), env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.Get("rax"); !got.Equal(lattice.Number()) {
		t.Fatalf("rax = %v, want Number", got)
	}
}

// Scenario C (spec.md §8): dereferencing a Number is a DerefOfNumber error.
func TestMovThroughNumberIsDerefOfNumber(t *testing.T) {
	env := newEnv(map[ir.Reg]lattice.Value{"rdi": lattice.Number()})
	_, err := Apply(ir.Mov("rdi", true, "rax"), env)
	mustErr(t, err, diag.DerefOfNumber)
}

func TestAddPointerPlusNumberKeepsPointer(t *testing.T) {
	env := newEnv(map[ir.Reg]lattice.Value{"rax": lattice.Number(), "rdi": lattice.PointerTo(1)})
	out, err := Apply(ir.Add("rdi", "rax"), env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.Get("rax"); !got.Equal(lattice.PointerTo(1)) {
		t.Fatalf("rax = %v, want Pointer(1)", got)
	}
}

func TestAddPointerPlusPointerIsError(t *testing.T) {
	env := newEnv(map[ir.Reg]lattice.Value{"rax": lattice.PointerTo(1), "rdi": lattice.PointerTo(1)})
	_, err := Apply(ir.Add("rdi", "rax"), env)
	mustErr(t, err, diag.TypeMismatch)
}

// Scenario E (spec.md §8): pointer - pointer = Number.
func TestSubPointerMinusPointerIsNumber(t *testing.T) {
	env := newEnv(map[ir.Reg]lattice.Value{"rdi": lattice.PointerTo(1), "rsi": lattice.PointerTo(1)})
	out, err := Apply(ir.Sub("rsi", "rdi"), env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.Get("rdi"); !got.Equal(lattice.Number()) {
		t.Fatalf("rdi = %v, want Number", got)
	}
}

func TestSubNumberMinusPointerIsError(t *testing.T) {
	env := newEnv(map[ir.Reg]lattice.Value{"rdi": lattice.Number(), "rsi": lattice.PointerTo(1)})
	_, err := Apply(ir.Sub("rsi", "rdi"), env)
	mustErr(t, err, diag.TypeMismatch)
}

func TestMulRejectsPointerDest(t *testing.T) {
	env := newEnv(map[ir.Reg]lattice.Value{ir.ImplicitDest: lattice.PointerTo(1)})
	_, err := Apply(ir.Mul("rdi"), env)
	mustErr(t, err, diag.TypeMismatch)
}

func TestMulAllowsPointerSourceByDefault(t *testing.T) {
	old := StrictMulDiv
	StrictMulDiv = false
	defer func() { StrictMulDiv = old }()

	env := newEnv(map[ir.Reg]lattice.Value{ir.ImplicitDest: lattice.Number(), "rdi": lattice.PointerTo(1)})
	if _, err := Apply(ir.Mul("rdi"), env); err != nil {
		t.Fatalf("unexpected error with StrictMulDiv=false: %v", err)
	}
}

func TestMulRejectsPointerSourceWhenStrict(t *testing.T) {
	old := StrictMulDiv
	StrictMulDiv = true
	defer func() { StrictMulDiv = old }()

	env := newEnv(map[ir.Reg]lattice.Value{ir.ImplicitDest: lattice.Number(), "rdi": lattice.PointerTo(1)})
	_, err := Apply(ir.Mul("rdi"), env)
	mustErr(t, err, diag.TypeMismatch)
}

// Scenario F (spec.md §8): comparing a pointer to a number is rejected.
func TestCmpMismatchIsError(t *testing.T) {
	env := newEnv(map[ir.Reg]lattice.Value{"rdi": lattice.PointerTo(1), "rsi": lattice.Number()})
	_, err := Apply(ir.Cmp("rsi", "rdi"), env)
	mustErr(t, err, diag.TypeMismatch)
}

func TestCmpAgreementIsOk(t *testing.T) {
	env := newEnv(map[ir.Reg]lattice.Value{"rdi": lattice.PointerTo(1), "rsi": lattice.PointerTo(3)})
	if _, err := Apply(ir.Cmp("rsi", "rdi"), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLogicalOpRejectsEitherSidePointer(t *testing.T) {
	env := newEnv(map[ir.Reg]lattice.Value{"rdi": lattice.PointerTo(1), "rax": lattice.Number()})
	_, err := Apply(ir.LogicalOp("rdi", "rax"), env)
	mustErr(t, err, diag.TypeMismatch)

	env = newEnv(map[ir.Reg]lattice.Value{"rdi": lattice.Number(), "rax": lattice.PointerTo(1)})
	_, err = Apply(ir.LogicalOp("rdi", "rax"), env)
	mustErr(t, err, diag.TypeMismatch)
}

func TestNopeIsIdentity(t *testing.T) {
	env := newEnv(map[ir.Reg]lattice.Value{"rax": lattice.PointerTo(2)})
	out, err := Apply(ir.Nope(""), env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Equal(env) {
		t.Fatalf("Nope changed the environment: %v vs %v", out, env)
	}
}

func TestSetTypeIdempotent(t *testing.T) {
	env := lattice.NewEnvironment()
	once, err := Apply(ir.SetType("rdi", ir.Pointer), env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	twice, err := Apply(ir.SetType("rdi", ir.Pointer), once)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !once.Equal(twice) {
		t.Fatalf("repeated SetType changed the environment: %v vs %v", once, twice)
	}
}

// Monotonicity (spec.md §8 property 1): widening the input environment
// never makes the transfer's output smaller.
func TestMonotonicity(t *testing.T) {
	lo := newEnv(map[ir.Reg]lattice.Value{"rdi": lattice.Bottom()})
	hi := newEnv(map[ir.Reg]lattice.Value{"rdi": lattice.PointerTo(1)})

	loOut, err := Apply(ir.Mov("rdi", false, "rax"), lo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hiOut, err := Apply(ir.Mov("rdi", false, "rax"), hi)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !loOut.Get("rax").LessEqual(hiOut.Get("rax")) {
		t.Fatalf("loOut.rax=%v is not <= hiOut.rax=%v", loOut.Get("rax"), hiOut.Get("rax"))
	}
}
