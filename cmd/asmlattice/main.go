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

// Command asmlattice is the CLI driver excluded from the core by design
// (spec.md §1: "the command-line driver" and "diagnostic rendering" are
// external collaborators). It reads a JSON token-vector program, runs
// typecheck.Run, and prints the exit environment or a rendered
// diag.TypeCheckError. Generalizes the teacher's bare `falcon test.y`
// os.Args contract to a cobra command with pflag-backed options, the
// way the rest of the pack's CLI tools are built.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"asmlattice/diag"
	"asmlattice/token"
	"asmlattice/transfer"
	"asmlattice/typecheck"
)

var (
	debug      bool
	mulDivMode = &mulDivModeFlag{value: "loose"}
)

// mulDivModeFlag is a pflag.Value so --mul-div-mode rejects anything but
// the two known settings at parse time instead of silently no-oping.
type mulDivModeFlag struct{ value string }

func (f *mulDivModeFlag) String() string { return f.value }
func (f *mulDivModeFlag) Type() string   { return "mode" }
func (f *mulDivModeFlag) Set(s string) error {
	switch s {
	case "loose", "strict":
		f.value = s
		return nil
	default:
		return fmt.Errorf("mul-div-mode must be loose or strict, got %q", s)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asmlattice [program.json]",
		Short: "Type-check a token-vector assembly program against the Number/Pointer lattice",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "log each pipeline phase")
	cmd.Flags().Var(mulDivMode, "mul-div-mode", "mul/div source check: loose (only dest, matches the original) or strict")
	return cmd
}

var _ pflag.Value = (*mulDivModeFlag)(nil)

func runCheck(cmd *cobra.Command, args []string) error {
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	transfer.StrictMulDiv = mulDivMode.value == "strict"

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrapf(err, "reading %s", args[0])
	}
	var program token.Program
	if err := json.Unmarshal(raw, &program); err != nil {
		return errors.Wrapf(err, "parsing %s as a token-vector program", args[0])
	}

	exit, err := typecheck.Run(program)
	if err != nil {
		var tcErr *diag.TypeCheckError
		if errors.As(err, &tcErr) {
			fmt.Fprintln(cmd.ErrOrStderr(), tcErr.Error())
			if debug {
				fmt.Fprintln(cmd.ErrOrStderr(), diag.DumpEnv("type-check error", tcErr))
			}
			os.Exit(1)
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), exit.String())
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
