// Copyright (c) 2024 The xlang Contributors
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
	"fmt"
	"os"

	"github.com/teris-io/cli"

	"xlang/internal/config"
	"xlang/internal/driver"
)

const version = "0.1.0"

var app = cli.New("Compiles a single translation unit to a 32-bit NASM assembly file, then optionally assembles and links it.").
	WithArg(cli.NewArg("source", "Path to the .xl source file")).
	WithOption(cli.NewOption("print-tree", "Print the parsed/analyzed syntax tree").WithChar('t').WithType(cli.TypeBool)).
	WithOption(cli.NewOption("print-symtab", "Print the global symbol table").WithChar('s').WithType(cli.TypeBool)).
	WithOption(cli.NewOption("print-record-symtab", "Print record declarations").WithChar('r').WithType(cli.TypeBool)).
	WithOption(cli.NewOption("compile", "Stop after emitting the .asm file").WithChar('c').WithType(cli.TypeBool)).
	WithOption(cli.NewOption("assemble", "Stop after producing the .o file").WithChar('a').WithType(cli.TypeBool)).
	WithOption(cli.NewOption("link", "Run the full compile-assemble-link pipeline").WithChar('l').WithType(cli.TypeBool)).
	WithOption(cli.NewOption("optimize", "Run the optimizer pass before codegen").WithChar('o').WithType(cli.TypeBool)).
	WithOption(cli.NewOption("no-stdlib", "Pass -nostdlib to the linker").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("no-frameptr", "Accepted but has no effect: every function still gets an ebp-based frame").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("keep-asm-file", "Do not delete the intermediate .asm file (short form: -ak)").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("keep-obj-file", "Do not delete the intermediate .o file (short form: -ok)").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("m32", "Select 32-bit codegen (the only supported target today)").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("version", "Print the compiler version and exit").WithChar('v').WithType(cli.TypeBool)).
	WithAction(run)

func run(args []string, options map[string]string) int {
	if _, ok := options["version"]; ok {
		fmt.Println("xlangc " + version)
		return 0
	}
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "error: expected exactly one source file, use --help")
		return 1
	}
	opts := config.FromOptions(args[0], options)
	return driver.New(opts).Run()
}

func main() {
	args := make([]string, len(os.Args))
	for i, a := range os.Args {
		switch a {
		case "-ak":
			a = "--keep-asm-file"
		case "-ok":
			a = "--keep-obj-file"
		}
		args[i] = a
	}
	os.Exit(app.Run(args, os.Stdout))
}
