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

// Package driver orchestrates one translation unit end to end: source ->
// tokens -> AST -> analyzed AST -> optional optimized AST -> assembly ->
// object -> executable. Ordering is strictly linear and single-threaded;
// there is no concurrency to guard.
package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"

	"xlang/internal/analyzer"
	"xlang/internal/ast"
	"xlang/internal/codegen"
	"xlang/internal/config"
	"xlang/internal/diag"
	"xlang/internal/lexer"
	"xlang/internal/optimizer"
	"xlang/internal/parser"
	"xlang/internal/symtab"
	"xlang/utils"
)

// Driver carries the options for one invocation plus the diagnostic sink
// shared across every pass.
type Driver struct {
	opts  config.Options
	diags *diag.Sink
}

func New(opts config.Options) *Driver {
	return &Driver{opts: opts, diags: diag.NewSink(opts.Source)}
}

// Run executes the whole pipeline and returns the process exit code: 0 on
// success, nonzero if any pass reported an error or a subprocess failed.
func (d *Driver) Run() int {
	src, err := os.Open(d.opts.Source)
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.Wrapf(err, "opening %s", d.opts.Source))
		return 1
	}
	defer src.Close()

	d.diags.Trace("lex", nil)
	lex := lexer.New(d.opts.Source, src, d.diags)

	d.diags.Trace("parse", nil)
	p := parser.New(lex, d.diags)
	result := p.Parse()

	if d.opts.PrintSymtab {
		printSymtab(result.Globals)
	}
	if d.opts.PrintRecordSymtab {
		printRecords(result.File)
	}

	d.diags.Trace("analyze", nil)
	analyzer.New(d.diags, result.Globals, result.Records, result.Funcs).Run(result.File)

	if d.opts.Optimize {
		d.diags.Trace("optimize", nil)
		optimizer.New(d.diags).Run(result.File)
	}

	if d.opts.PrintTree {
		printTree(result)
	}

	if d.diags.ErrorCount() > 0 {
		fmt.Fprintf(os.Stderr, "%d error(s); codegen skipped\n", d.diags.ErrorCount())
		return 1
	}

	d.diags.Trace("codegen", nil)
	gen := codegen.New(d.diags, result.Records, result.Funcs)
	asm := gen.Generate(result)

	if d.diags.ErrorCount() > 0 {
		fmt.Fprintf(os.Stderr, "%d error(s) during codegen\n", d.diags.ErrorCount())
		return 1
	}

	return d.lower(asm)
}

// lower runs the requested subset of assemble/link steps over the
// generated NASM text, honoring the --keep-* flags and the
// compile-only/assemble-only/link shorthand from the CLI.
func (d *Driver) lower(asm string) int {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.Wrap(err, "getwd"))
		return 1
	}
	base := strings.TrimSuffix(filepath.Base(d.opts.Source), filepath.Ext(d.opts.Source))
	asmPath := filepath.Join(wd, base+".asm")

	if err := os.WriteFile(asmPath, []byte(asm), 0644); err != nil {
		fmt.Fprintln(os.Stderr, errors.Wrapf(err, "writing %s", asmPath))
		return 1
	}
	wantAssemble := d.opts.Assemble || d.opts.Link || d.opts.DefaultPipeline()
	wantLink := d.opts.Link || d.opts.DefaultPipeline()
	if !d.opts.KeepAsmFile && wantAssemble {
		defer os.Remove(asmPath)
	}
	if !wantAssemble {
		return 0
	}

	if _, err := utils.ExecuteCmd(wd, "nasm", "-felf32", asmPath, "-o", base+".o"); err != nil {
		fmt.Fprintln(os.Stderr, errors.Wrap(err, "assembling"))
		return 1
	}
	objPath := filepath.Join(wd, base+".o")
	if !d.opts.KeepObjFile && wantLink {
		defer os.Remove(objPath)
	}
	if !wantLink {
		return 0
	}

	gccArgs := []string{"gcc", "-m32", "-no-pie"}
	if d.opts.NoStdlib {
		gccArgs = append(gccArgs, "-nostdlib")
	}
	gccArgs = append(gccArgs, "-o", base, base+".o")
	if runtime.GOOS == "windows" {
		gccArgs = append([]string{"cmd.exe", "/c"}, gccArgs...)
	}
	if _, err := utils.ExecuteCmd(wd, gccArgs...); err != nil {
		fmt.Fprintln(os.Stderr, errors.Wrap(err, "linking"))
		return 1
	}
	return 0
}

func printSymtab(t *symtab.Table) {
	for _, name := range t.Names() {
		sym := t.Search(name)
		fmt.Printf("%-20s ptr=%v array=%v\n", sym.Name, sym.IsPtr, sym.IsArray)
	}
}

func printRecords(file *ast.File) {
	for _, rd := range file.Records {
		fmt.Println(rd.String())
	}
}

func printTree(result *parser.Result) {
	for _, rd := range result.File.Records {
		fmt.Println(rd.String())
	}
	for _, gd := range result.File.Globals {
		fmt.Println(gd.String())
	}
	for _, fd := range result.File.Funcs {
		fmt.Println(fd.String())
		if fd.Body != nil {
			fd.Body.Walk(func(s ast.Stmt) { fmt.Println("  " + s.String()) })
		}
	}
}
