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

package optimizer

import (
	"strings"
	"testing"

	"xlang/internal/analyzer"
	"xlang/internal/ast"
	"xlang/internal/diag"
	"xlang/internal/lexer"
	"xlang/internal/parser"
)

func build(src string) *parser.Result {
	sink := diag.NewSink("t.xl")
	lex := lexer.New("t.xl", strings.NewReader(src), sink)
	res := parser.New(lex, sink).Parse()
	analyzer.New(sink, res.Globals, res.Records, res.Funcs).Run(res.File)
	return res
}

func TestConstantFoldingArithmetic(t *testing.T) {
	res := build(`int f() { return 2 + 3 * 4; }`)
	New(diag.NewSink("t.xl")).Run(res.File)
	jmp := res.File.Funcs[0].Body.Head.(*ast.JumpStmt)
	lit, ok := jmp.Value.(*ast.PrimaryExpr)
	if !ok {
		t.Fatalf("expected the whole expression to fold to a literal, got %T (%s)", jmp.Value, jmp.Value)
	}
	if lit.Value != "14" {
		t.Fatalf("folded value = %q, want \"14\"", lit.Value)
	}
}

func TestConstantFoldingDivisionByZeroReported(t *testing.T) {
	res := build(`int f() { return 1 / 0; }`)
	sink := diag.NewSink("t.xl")
	New(sink).Run(res.File)
	if sink.ErrorCount() == 0 {
		t.Fatalf("expected a diagnostic for compile-time division by zero")
	}
}

func TestStrengthReductionMultiplyByPowerOfTwo(t *testing.T) {
	res := build(`int f(int x) { return x * 8; }`)
	New(diag.NewSink("t.xl")).Run(res.File)
	jmp := res.File.Funcs[0].Body.Head.(*ast.JumpStmt)
	bin, ok := jmp.Value.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected a BinaryExpr, got %T", jmp.Value)
	}
	if bin.Op.String() != "<<" {
		t.Fatalf("expected x*8 to reduce to a shift, got op %v", bin.Op)
	}
	shiftAmt := bin.Right.(*ast.PrimaryExpr).Value
	if shiftAmt != "3" {
		t.Fatalf("shift amount = %q, want \"3\" (log2(8))", shiftAmt)
	}
}

func TestStrengthReductionModByPowerOfTwo(t *testing.T) {
	res := build(`int f(int x) { return x % 4; }`)
	New(diag.NewSink("t.xl")).Run(res.File)
	jmp := res.File.Funcs[0].Body.Head.(*ast.JumpStmt)
	bin, ok := jmp.Value.(*ast.BinaryExpr)
	if !ok || bin.Op.String() != "&" {
		t.Fatalf("expected x%%4 to reduce to a mask, got %T %v", jmp.Value, jmp.Value)
	}
	if bin.Right.(*ast.PrimaryExpr).Value != "3" {
		t.Fatalf("mask = %q, want \"3\" (4-1)", bin.Right.(*ast.PrimaryExpr).Value)
	}
}

func TestCommonSubexprCollapsesDuplicateRHS(t *testing.T) {
	res := build(`int f(int a) { return a + a; }`)
	New(diag.NewSink("t.xl")).Run(res.File)
	jmp := res.File.Funcs[0].Body.Head.(*ast.JumpStmt)
	bin := jmp.Value.(*ast.BinaryExpr)
	if bin.Left != bin.Right {
		t.Fatalf("expected the right operand to be replaced by the same node as the left")
	}
}

func TestEliminateDeadLocals(t *testing.T) {
	res := build(`int f() { int used, unused; used = 1; return used; }`)
	fn := res.File.Funcs[0]
	var decl *ast.DeclStmt
	fn.Body.Walk(func(s ast.Stmt) {
		if d, ok := s.(*ast.DeclStmt); ok {
			decl = d
		}
	})
	if decl == nil || len(decl.Names) != 2 {
		t.Fatalf("expected two declared locals before optimizing")
	}

	New(diag.NewSink("t.xl")).Run(res.File)

	fn.Body.Walk(func(s ast.Stmt) {
		if d, ok := s.(*ast.DeclStmt); ok {
			decl = d
		}
	})
	if len(decl.Names) != 1 || decl.Names[0].Name != "used" {
		t.Fatalf("expected only 'used' to survive dead-local elimination, got %v", decl.Names)
	}
	if names := res.Globals.Names(); len(names) != 0 {
		t.Fatalf("expected globals to be untouched by local elimination, got %v", names)
	}
	locals := fn.Body.Locals
	if locals.Search("unused") != nil {
		t.Fatalf("expected 'unused' to be removed from the local symbol table")
	}
}
