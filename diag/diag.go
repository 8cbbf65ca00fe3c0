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

// Package diag carries the structured error kinds the core can raise (§7)
// and the debug-dump rendering the CLI uses to inspect an abstract
// environment, replacing the teacher's bare utils.Fatal panics with typed,
// inspectable errors.
package diag

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
)

// Kind distinguishes the error kinds enumerated in §7.
type Kind int

const (
	UnknownMnemonic Kind = iota
	MalformedOperand
	TypeMismatch
	DerefOfNumber
	UnresolvedLabel
)

func (k Kind) String() string {
	switch k {
	case UnknownMnemonic:
		return "UnknownMnemonic"
	case MalformedOperand:
		return "MalformedOperand"
	case TypeMismatch:
		return "TypeMismatch"
	case DerefOfNumber:
		return "DerefOfNumber"
	case UnresolvedLabel:
		return "UnresolvedLabel"
	}
	return "<UnknownKind>"
}

// TypeCheckError is the single structured error the core ever surfaces. It
// carries everything a CLI needs to render a diagnostic: which instruction
// was being checked, which register was at fault, and what was expected
// versus what was actually found.
type TypeCheckError struct {
	Kind        Kind
	Instruction fmt.Stringer
	Register    string
	Expected    string
	Actual      string
	cause       error
}

func (e *TypeCheckError) Error() string {
	msg := fmt.Sprintf("%v: register %s", e.Kind, e.Register)
	if e.Expected != "" || e.Actual != "" {
		msg += fmt.Sprintf(" (expected %s, got %s)", e.Expected, e.Actual)
	}
	if e.Instruction != nil {
		msg += fmt.Sprintf(" at %v", e.Instruction)
	}
	return msg
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *TypeCheckError) Unwrap() error {
	return e.cause
}

// NewTypeMismatch builds a TypeMismatch/DerefOfNumber-style error produced by
// a transfer function. Kind should be TypeMismatch or DerefOfNumber.
func NewTypeMismatch(kind Kind, instr fmt.Stringer, register, expected, actual string) *TypeCheckError {
	return &TypeCheckError{
		Kind:        kind,
		Instruction: instr,
		Register:    register,
		Expected:    expected,
		Actual:      actual,
	}
}

// NewUnresolvedLabel builds the error raised by the CFG builder's jump
// extension when a jump target has no matching label.
func NewUnresolvedLabel(label string) *TypeCheckError {
	return &TypeCheckError{
		Kind:     UnresolvedLabel,
		Register: label,
	}
}

// WrapUnknownMnemonic builds the normalizer's UnknownMnemonic error, keeping
// a cause chain via pkg/errors the way mewmew-x's PE/LLVM tooling wraps
// lower-level failures instead of discarding them.
func WrapUnknownMnemonic(mnemonic string) error {
	return errors.Wrapf(&TypeCheckError{Kind: UnknownMnemonic, Register: mnemonic}, "normalize")
}

// WrapMalformedOperand builds the normalizer's MalformedOperand error.
func WrapMalformedOperand(operand string) error {
	return errors.Wrapf(&TypeCheckError{Kind: MalformedOperand, Register: operand}, "normalize")
}

// DumpEnv renders an abstract environment (or any other small inspection
// value) for --debug output, in place of the teacher's ad hoc fmt.Sprintf
// tree-walks.
func DumpEnv(label string, env interface{}) string {
	return fmt.Sprintf("== %s ==\n%s", label, spew.Sdump(env))
}
