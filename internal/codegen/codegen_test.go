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

package codegen

import (
	"strings"
	"testing"

	"xlang/internal/analyzer"
	"xlang/internal/diag"
	"xlang/internal/lexer"
	"xlang/internal/parser"
)

func generate(t *testing.T, src string) string {
	t.Helper()
	sink := diag.NewSink("t.xl")
	lex := lexer.New("t.xl", strings.NewReader(src), sink)
	res := parser.New(lex, sink).Parse()
	analyzer.New(sink, res.Globals, res.Records, res.Funcs).Run(res.File)
	if sink.ErrorCount() != 0 {
		t.Fatalf("unexpected diagnostics: %v", sink.Diagnostics())
	}
	return New(sink, res.Records, res.Funcs).Generate(res)
}

func TestGeneratesSectionsInOrder(t *testing.T) {
	asm := generate(t, `int counter; int main() { return 0; }`)
	textIdx := strings.Index(asm, "section .text")
	dataIdx := strings.Index(asm, "section .data")
	bssIdx := strings.Index(asm, "section .bss")
	if textIdx < 0 || dataIdx < 0 || bssIdx < 0 {
		t.Fatalf("missing a section header in output:\n%s", asm)
	}
	if !(textIdx < dataIdx && dataIdx < bssIdx) {
		t.Fatalf("sections out of order:\n%s", asm)
	}
}

func TestFunctionPrologueEpilogue(t *testing.T) {
	asm := generate(t, `int main() { return 0; }`)
	for _, want := range []string{"main:", "push ebp", "mov ebp, esp", ".epilogue:", "mov esp, ebp", "pop ebp", "ret"} {
		if !strings.Contains(asm, want) {
			t.Fatalf("expected output to contain %q:\n%s", want, asm)
		}
	}
}

func TestLocalGetsNegativeFrameDisplacement(t *testing.T) {
	asm := generate(t, `int main() { int x; x = 5; return x; }`)
	if !strings.Contains(asm, "sub esp,") {
		t.Fatalf("expected a stack allocation for the local frame:\n%s", asm)
	}
	if !strings.Contains(asm, "[ebp-4]") {
		t.Fatalf("expected the local to be addressed at [ebp-4]:\n%s", asm)
	}
}

func TestParamGetsPositiveFrameDisplacement(t *testing.T) {
	asm := generate(t, `int add(int a, int b) { return a + b; }`)
	if !strings.Contains(asm, "[ebp+8]") || !strings.Contains(asm, "[ebp+12]") {
		t.Fatalf("expected params at [ebp+8] and [ebp+12]:\n%s", asm)
	}
}

func TestArithmeticBinaryOps(t *testing.T) {
	asm := generate(t, `int main() { return 1 + 2; }`)
	if !strings.Contains(asm, "add ") {
		t.Fatalf("expected an add instruction:\n%s", asm)
	}
}

func TestDivisionUsesCdqIdiv(t *testing.T) {
	asm := generate(t, `int main(int a, int b) { return a / b; }`)
	if !strings.Contains(asm, "cdq") || !strings.Contains(asm, "idiv") {
		t.Fatalf("expected cdq/idiv for division:\n%s", asm)
	}
}

func TestComparisonUsesSetccAndMovzx(t *testing.T) {
	asm := generate(t, `int main(int a, int b) { return a < b; }`)
	if !strings.Contains(asm, "setl") || !strings.Contains(asm, "movzx") {
		t.Fatalf("expected setl/movzx for a '<' comparison:\n%s", asm)
	}
}

func TestRecordGeneratesStrucAndMemberAccess(t *testing.T) {
	asm := generate(t, `
		record Point { int x, y; }
		int getX(Point *p) { return p->x; }
	`)
	if !strings.Contains(asm, "struc Point") || !strings.Contains(asm, "endstruc") {
		t.Fatalf("expected struc/endstruc for record Point:\n%s", asm)
	}
	if !strings.Contains(asm, "Point.x") {
		t.Fatalf("expected a Point.x member reference:\n%s", asm)
	}
	if !strings.Contains(asm, ".x: resd 1") {
		t.Fatalf("expected an int member to reserve with resd, not resb:\n%s", asm)
	}
}

func TestRecordMemberReservationSizeMatchesType(t *testing.T) {
	asm := generate(t, `
		record Mixed { char c; short s; int i; double d; }
		int f(Mixed *m) { return 0; }
	`)
	for _, want := range []string{".c: resb 1", ".s: resw 1", ".i: resd 1", ".d: resq 1"} {
		if !strings.Contains(asm, want) {
			t.Fatalf("expected %q in record layout:\n%s", want, asm)
		}
	}
}

func TestFloatBinaryAdditionUsesX87Arithmetic(t *testing.T) {
	asm := generate(t, `float main() { return 1.5 + 2.5; }`)
	for _, want := range []string{"fld dword [float_val0]", "fld dword [float_val1]", "faddp st1, st0"} {
		if !strings.Contains(asm, want) {
			t.Fatalf("expected %q in float addition:\n%s", want, asm)
		}
	}
	if strings.Contains(asm, "add st0, st0") {
		t.Fatalf("invalid NASM: add st0, st0 emitted for float arithmetic:\n%s", asm)
	}
}

func TestFloatComparisonUsesFcomppAndSetcc(t *testing.T) {
	asm := generate(t, `int main(float a, float b) { return a < b; }`)
	for _, want := range []string{"fcompp", "fnstsw ax", "sahf", "setb"} {
		if !strings.Contains(asm, want) {
			t.Fatalf("expected %q in float comparison:\n%s", want, asm)
		}
	}
}

func TestDoubleLiteralInternedAsQword(t *testing.T) {
	asm := generate(t, `double main() { return 3.5; }`)
	if !strings.Contains(asm, "fld qword [float_val0]") || !strings.Contains(asm, "float_val0 dq 3.5") {
		t.Fatalf("expected a qword-width double constant:\n%s", asm)
	}
}

func TestCallPushesArgsRightToLeftAndCleansStack(t *testing.T) {
	asm := generate(t, `
		int add(int a, int b) { return a + b; }
		int main() { return add(1, 2); }
	`)
	if !strings.Contains(asm, "call add") {
		t.Fatalf("expected a call to add:\n%s", asm)
	}
	if !strings.Contains(asm, "add esp, 8") {
		t.Fatalf("expected post-call stack cleanup of 8 bytes for 2 args:\n%s", asm)
	}
	second, first := strings.Index(asm, ", 2\n\tpush "), strings.Index(asm, ", 1\n\tpush ")
	if second < 0 || first < 0 || second > first {
		t.Fatalf("expected argument 2 to be pushed before argument 1:\n%s", asm)
	}
}

func TestAsmStatementDoesNotCrashCodegen(t *testing.T) {
	asm := generate(t, `int main() { asm("nop", "r"(0)); return 0; }`)
	_ = asm // sanity that asm statements don't crash codegen
}

func TestFloatLiteralUsesX87Load(t *testing.T) {
	asm := generate(t, `float main() { return 3.5; }`)
	if !strings.Contains(asm, "fld dword [float_val0]") {
		t.Fatalf("expected an fld from float_val0:\n%s", asm)
	}
	if !strings.Contains(asm, "float_val0 dd 3.5") {
		t.Fatalf("expected float_val0 declared in .data:\n%s", asm)
	}
}

func TestBreakAndContinueJumpToLoopLabels(t *testing.T) {
	asm := generate(t, `int main() { while (1) { break; continue; } return 0; }`)
	if !strings.Contains(asm, "loop_end") || !strings.Contains(asm, "loop_cont") {
		t.Fatalf("expected loop_end/loop_cont labels for break/continue:\n%s", asm)
	}
}

func TestGotoEmitsJumpToLabel(t *testing.T) {
	asm := generate(t, `int main() { goto done; done: return 0; }`)
	if !strings.Contains(asm, "jmp done") || !strings.Contains(asm, "done:") {
		t.Fatalf("expected a jump to and definition of label 'done':\n%s", asm)
	}
}

func TestExternFunctionDeclared(t *testing.T) {
	asm := generate(t, `
		extern int puts(char *s);
		int main() { return puts("hi"); }
	`)
	if !strings.Contains(asm, "extern puts") {
		t.Fatalf("expected an 'extern puts' declaration:\n%s", asm)
	}
}
