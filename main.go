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
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"asmlattice/diag"
	"asmlattice/token"
	"asmlattice/typecheck"
)

// main is the bare entry point, kept in the shape of the teacher's own
// main.go (os.Args, no flag parsing): `asmlattice test.json`. The richer
// cobra-based driver with --debug/--mul-div-mode lives in
// cmd/asmlattice, an ambient, excluded collaborator (§1).
func main() {
	if len(os.Args) != 2 {
		fmt.Println("Usage: asmlattice test.json")
		os.Exit(1)
	}
	source := os.Args[1]

	raw, err := os.ReadFile(source)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	var program token.Program
	if err := json.Unmarshal(raw, &program); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	exit, err := typecheck.Run(program)
	if err != nil {
		var tcErr *diag.TypeCheckError
		if errors.As(err, &tcErr) {
			fmt.Println(tcErr.Error())
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
	fmt.Println(exit.String())
}
