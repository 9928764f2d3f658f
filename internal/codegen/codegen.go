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

// Package codegen lowers an analyzed ast.File into 32-bit NASM/Intel
// syntax. There is no register-allocation graph: a stateless allocator
// hands out the next class-appropriate physical register on a rotation
// and starts again at the first register when the rotation wraps
// (nothing is spilled), mirroring a simple Sethi-Ullman-style evaluator rather
// than linear-scan or graph coloring.
package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"xlang/internal/ast"
	"xlang/internal/diag"
	"xlang/internal/parser"
	"xlang/internal/symtab"
	"xlang/internal/token"
	"xlang/internal/types"
	"xlang/utils"
)

// dwordRegs/wordRegs/byteRegs are the rotation pools for each operand
// width; ESP/EBP are reserved for the frame and never handed out.
var (
	dwordRegs = []string{"eax", "ebx", "ecx", "edx", "esi", "edi"}
	wordRegs  = []string{"ax", "bx", "cx", "dx", "si", "di"}
	byteRegs  = []string{"al", "bl", "cl", "dl"}
)

// allocator is the stateless rotation: Next always returns pool[cursor],
// advances the cursor, and reports whether the rotation just wrapped
// (meaning the next call hands out eax again; nothing is spilled).
type allocator struct{ cursor int }

func (a *allocator) next(width int) (string, bool) {
	pool := poolFor(width)
	reg := pool[a.cursor%len(pool)]
	a.cursor++
	wrapped := a.cursor >= len(pool)
	if wrapped {
		a.cursor = 0
	}
	return reg, wrapped
}

func (a *allocator) reset() { a.cursor = 0 }

func poolFor(width int) []string {
	switch width {
	case 1:
		return byteRegs
	case 2:
		return wordRegs
	default:
		return dwordRegs
	}
}

// Generator walks declarations and emits NASM text into three section
// buffers, joined in .text/.data/.bss order at the end.
type Generator struct {
	diags   *diag.Sink
	records *symtab.RecordTable
	funcs   *symtab.FunctionTable

	text strings.Builder
	data strings.Builder
	bss  strings.Builder

	recordSizes  map[string]int
	floatConsts  []floatConst
	stringConsts []string
	labelSeq     map[string]int

	alloc      allocator
	frameSize  int
	breakStack []string
	contStack  []string
	// floatWidth is the reservation size (4 or 8) a float literal interns
	// under when its own token carries no float-vs-double distinction; set
	// from the enclosing function's return type or an assignment's lvalue.
	floatWidth int
}

// floatConst is one x87 constant pooled into .data, tagged with the
// directive its declared width (float or double) requires.
type floatConst struct {
	Value string
	Dir   string // "dd" or "dq"
}

func New(diags *diag.Sink, records *symtab.RecordTable, funcs *symtab.FunctionTable) *Generator {
	return &Generator{
		diags:       diags,
		records:     records,
		funcs:       funcs,
		recordSizes: map[string]int{},
		labelSeq:    map[string]int{},
	}
}

// Generate lowers result's declarations and returns the complete NASM
// source for one translation unit.
func (g *Generator) Generate(result *parser.Result) string {
	for _, rd := range result.File.Records {
		g.genRecord(rd)
	}
	for _, gd := range result.File.Globals {
		g.genGlobal(gd)
	}
	for _, fd := range result.File.Funcs {
		if fd.Body != nil {
			g.genFunc(fd)
		}
	}

	var out strings.Builder
	out.WriteString("section .text\n")
	out.WriteString("global main\n")
	for _, fn := range result.File.Funcs {
		if fn.Info.IsExtern {
			out.WriteString("extern " + fn.Info.Name + "\n")
		}
	}
	out.WriteString(g.text.String())
	out.WriteString("section .data\n")
	out.WriteString(g.data.String())
	for i, c := range g.floatConsts {
		out.WriteString(fmt.Sprintf("float_val%d %s %s\n", i, c.Dir, c.Value))
	}
	for i, lit := range g.stringConsts {
		out.WriteString(fmt.Sprintf("string_val%d db %s, 0\n", i, nasmStringBytes(lit)))
	}
	out.WriteString("section .bss\n")
	out.WriteString(g.bss.String())
	return out.String()
}

func nasmStringBytes(raw string) string {
	return "\"" + strings.ReplaceAll(raw, "\"", "\"\"") + "\""
}

// -----------------------------------------------------------------------
// Records

func (g *Generator) genRecord(rd *ast.RecordDecl) {
	members, ok := rd.Rec.Members.(*symtab.Table)
	if !ok {
		return
	}
	size := 0
	g.text.WriteString(fmt.Sprintf("struc %s\n", rd.Rec.Name))
	for _, name := range members.Names() {
		sym := members.Search(name)
		elemSize := memberElemSize(sym)
		count := 1
		if sym.IsArray {
			count = arrayLen(sym)
		}
		g.text.WriteString(fmt.Sprintf("\t.%s: %s %d\n", name, reservationOp(elemSize), count))
		size += elemSize * count
	}
	g.text.WriteString("endstruc\n")
	g.recordSizes[rd.Rec.Name] = size
}

// reservationOp picks the NASM reservation directive matching an element's
// size: resb/resw/resd/resq for 1/2/4/8-byte members.
func reservationOp(elemSize int) string {
	switch elemSize {
	case 1:
		return "resb"
	case 2:
		return "resw"
	case 8:
		return "resq"
	default:
		return "resd"
	}
}

// memberElemSize is the size of one element of sym's type, ignoring array
// repetition (pointers are always 4 bytes regardless of pointee type).
func memberElemSize(sym *types.SymbolInfo) int {
	if sym.IsPtr {
		return 4
	}
	w := sym.Type.PrimitiveSize()
	if w == 0 {
		w = 4
	}
	return w
}

func memberWidth(sym *types.SymbolInfo) int {
	w := memberElemSize(sym)
	if sym.IsArray {
		w *= arrayLen(sym)
	}
	return w
}

func arrayLen(sym *types.SymbolInfo) int {
	n := 1
	for _, dim := range sym.ArrayDims {
		if v, err := strconv.Atoi(dim.Lexeme); err == nil && v > 0 {
			n *= v
		}
	}
	return n
}

// -----------------------------------------------------------------------
// Globals

func (g *Generator) genGlobal(gd *ast.GlobalDecl) {
	sym := gd.Sym
	width := memberWidth(sym)
	if gd.Init == nil {
		g.bss.WriteString(fmt.Sprintf("%s: resb %d\n", sym.Name, width))
		return
	}
	lit, ok := gd.Init.(*ast.PrimaryExpr)
	if !ok {
		g.bss.WriteString(fmt.Sprintf("%s: resb %d\n", sym.Name, width))
		return
	}
	directive := "dd"
	if sym.Type.PrimitiveSize() == 1 {
		directive = "db"
	} else if sym.Type.PrimitiveSize() == 2 {
		directive = "dw"
	}
	switch lit.Kind {
	case token.LIT_STRING:
		g.data.WriteString(fmt.Sprintf("%s: db %s, 0\n", sym.Name, nasmStringBytes(lit.Value)))
	default:
		g.data.WriteString(fmt.Sprintf("%s: %s %s\n", sym.Name, directive, lit.Value))
	}
}

// -----------------------------------------------------------------------
// Functions

func (g *Generator) genFunc(fd *ast.FuncDecl) {
	g.alloc.reset()
	g.frameSize = 0
	g.floatWidth = widthForType(fd.Info.ReturnType)
	g.assignFrameSlots(fd)

	g.text.WriteString(fd.Info.Name + ":\n")
	g.text.WriteString("\tpush ebp\n")
	g.text.WriteString("\tmov ebp, esp\n")
	if g.frameSize > 0 {
		g.text.WriteString(fmt.Sprintf("\tsub esp, %d\n", align4(g.frameSize)))
	}

	g.genBlock(fd.Body)

	g.text.WriteString(".epilogue:\n")
	g.text.WriteString("\tmov esp, ebp\n")
	g.text.WriteString("\tpop ebp\n")
	g.text.WriteString("\tret\n")
}

func align4(n int) int { return (n + 3) &^ 3 }

// widthForType is 8 for a double-sized simple type, 4 otherwise; used to
// pick dd vs dq for an interned float constant with no width of its own.
func widthForType(t types.TypeInfo) int {
	if t.PrimitiveSize() == 8 {
		return 8
	}
	return 4
}

// assignFrameSlots lays out parameters at positive ebp offsets (the
// standard cdecl incoming-argument area, starting at ebp+8) and locals
// at negative offsets, growing the frame downward.
func (g *Generator) assignFrameSlots(fd *ast.FuncDecl) {
	disp := 8
	for i := range fd.Info.Params {
		p := &fd.Info.Params[i]
		if p.Symbol == nil {
			continue
		}
		p.Symbol.FPDisp = disp
		disp += align4(memberWidth(p.Symbol))
	}
	locals, ok := fd.Body.Locals.(*symtab.Table)
	if !ok {
		return
	}
	neg := 0
	for _, name := range locals.Names() {
		sym := locals.Search(name)
		if sym.FPDisp != 0 {
			continue // already a parameter slot
		}
		neg += align4(memberWidth(sym))
		sym.FPDisp = -neg
	}
	g.frameSize = neg
	utils.Assert(g.frameSize >= 0, "negative frame size computed for %s", fd.Info.Name)
}

// -----------------------------------------------------------------------
// Statements

func (g *Generator) genBlock(b *ast.Block) {
	if b == nil {
		return
	}
	b.Walk(func(s ast.Stmt) { g.genStmt(s) })
}

func (g *Generator) genStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.DeclStmt:
		// storage is reserved by assignFrameSlots; nothing to emit for a
		// bare declaration with no initializer.
	case *ast.ExprStmt:
		g.genExpr(st.X)
	case *ast.LabelStmt:
		g.text.WriteString(st.Name + ":\n")
	case *ast.IfStmt:
		g.genIf(st)
	case *ast.IterStmt:
		g.genIter(st)
	case *ast.JumpStmt:
		g.genJump(st)
	case *ast.AsmStmt:
		g.genAsm(st)
	}
}

func (g *Generator) newLabel(kind string) string {
	n := g.labelSeq[kind]
	g.labelSeq[kind] = n + 1
	return fmt.Sprintf(".%s%d", kind, n)
}

func (g *Generator) genIf(st *ast.IfStmt) {
	elseLabel := g.newLabel("if_else")
	endLabel := g.newLabel("if_end")
	reg := g.genExpr(st.Cond)
	g.text.WriteString(fmt.Sprintf("\ttest %s, %s\n", reg, reg))
	if st.Else != nil {
		g.text.WriteString("\tjz " + elseLabel + "\n")
	} else {
		g.text.WriteString("\tjz " + endLabel + "\n")
	}
	g.genBlock(st.Then)
	if st.Else != nil {
		g.text.WriteString("\tjmp " + endLabel + "\n")
		g.text.WriteString(elseLabel + ":\n")
		g.genBlock(st.Else)
	}
	g.text.WriteString(endLabel + ":\n")
}

func (g *Generator) genIter(st *ast.IterStmt) {
	startLabel := g.newLabel("loop_start")
	contLabel := g.newLabel("loop_cont")
	endLabel := g.newLabel("loop_end")
	st.ContLabel, st.BreakLabel = contLabel, endLabel

	g.breakStack = append(g.breakStack, endLabel)
	g.contStack = append(g.contStack, contLabel)
	defer func() {
		g.breakStack = g.breakStack[:len(g.breakStack)-1]
		g.contStack = g.contStack[:len(g.contStack)-1]
	}()

	switch st.Kind {
	case ast.IterFor:
		if st.Init != nil {
			g.genStmt(st.Init)
		}
		g.text.WriteString(startLabel + ":\n")
		if st.Cond != nil {
			reg := g.genExpr(st.Cond)
			g.text.WriteString(fmt.Sprintf("\ttest %s, %s\n", reg, reg))
			g.text.WriteString("\tjz " + endLabel + "\n")
		}
		g.genBlock(st.Body)
		g.text.WriteString(contLabel + ":\n")
		if st.Post != nil {
			g.genExpr(st.Post)
		}
		g.text.WriteString("\tjmp " + startLabel + "\n")
		g.text.WriteString(endLabel + ":\n")
	case ast.IterDoWhile:
		g.text.WriteString(startLabel + ":\n")
		g.genBlock(st.Body)
		g.text.WriteString(contLabel + ":\n")
		reg := g.genExpr(st.Cond)
		g.text.WriteString(fmt.Sprintf("\ttest %s, %s\n", reg, reg))
		g.text.WriteString("\tjnz " + startLabel + "\n")
		g.text.WriteString(endLabel + ":\n")
	default: // IterWhile
		g.text.WriteString(startLabel + ":\n")
		g.text.WriteString(contLabel + ":\n")
		reg := g.genExpr(st.Cond)
		g.text.WriteString(fmt.Sprintf("\ttest %s, %s\n", reg, reg))
		g.text.WriteString("\tjz " + endLabel + "\n")
		g.genBlock(st.Body)
		g.text.WriteString("\tjmp " + startLabel + "\n")
		g.text.WriteString(endLabel + ":\n")
	}
}

func (g *Generator) genJump(st *ast.JumpStmt) {
	switch st.Kind {
	case ast.JumpBreak:
		if len(g.breakStack) > 0 {
			g.text.WriteString("\tjmp " + g.breakStack[len(g.breakStack)-1] + "\n")
		}
	case ast.JumpContinue:
		if len(g.contStack) > 0 {
			g.text.WriteString("\tjmp " + g.contStack[len(g.contStack)-1] + "\n")
		}
	case ast.JumpReturn:
		if st.Value != nil {
			reg := g.genExpr(st.Value)
			// A float result stays in st0 per the cdecl x87 return
			// convention; only an integer result needs moving into eax.
			if reg != "eax" && reg != "st0" {
				g.text.WriteString(fmt.Sprintf("\tmov eax, %s\n", reg))
			}
		}
		g.text.WriteString("\tjmp .epilogue\n")
	case ast.JumpGoto:
		g.text.WriteString("\tjmp " + st.Label + "\n")
	}
}

// genAsm substitutes operand values into the template and emits the
// result verbatim. An identifier operand with a resolved symbol becomes
// the symbol's memory location; any other operand is evaluated with
// genExpr and becomes the resulting register. The constraint letter is
// not consulted: a register-letter constraint on a variable still yields
// its memory location.
func (g *Generator) genAsm(st *ast.AsmStmt) {
	operands := make([]string, len(st.Operands))
	for i, op := range st.Operands {
		if ident, ok := op.Value.(*ast.IdentExpr); ok && ident.Sym != nil {
			operands[i] = g.operandLocation(ident.Sym)
			continue
		}
		operands[i] = g.genExpr(op.Value)
	}
	g.text.WriteString(substituteTemplate(st.Template, operands) + "\n")
}

// -----------------------------------------------------------------------
// Expressions (integer path; an operand whose static type is float or
// double routes through the x87 stack instead: genPrimary/genIdent load
// it with FLD and genFloatBinary combines two loaded operands with the
// paired popping arithmetic forms, or FCOMPP/FNSTSW/SAHF for a comparison)

func (g *Generator) genExpr(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.PrimaryExpr:
		return g.genPrimary(x)
	case *ast.IdentExpr:
		return g.genIdent(x)
	case *ast.UnaryExpr:
		return g.genUnary(x)
	case *ast.BinaryExpr:
		return g.genBinary(x)
	case *ast.AssignExpr:
		return g.genAssign(x)
	case *ast.IndexExpr:
		return g.genIndex(x)
	case *ast.MemberExpr:
		return g.genMember(x)
	case *ast.CallExpr:
		return g.genCall(x)
	case *ast.CastExpr:
		return g.genExpr(x.Operand)
	case *ast.SizeofExpr:
		return g.genSizeof(x)
	}
	return "eax"
}

func (g *Generator) genPrimary(p *ast.PrimaryExpr) string {
	reg, wrapped := g.alloc.next(4)
	if wrapped {
		g.text.WriteString("\t; register rotation wrapped\n")
	}
	switch p.Kind {
	case token.LIT_FLOAT:
		idx := len(g.floatConsts)
		dir, width := "dd", "dword"
		if g.floatWidth == 8 {
			dir, width = "dq", "qword"
		}
		g.floatConsts = append(g.floatConsts, floatConst{Value: p.Value, Dir: dir})
		g.text.WriteString(fmt.Sprintf("\tfld %s [float_val%d]\n", width, idx))
		return "st0"
	case token.LIT_STRING:
		idx := len(g.stringConsts)
		g.stringConsts = append(g.stringConsts, p.Value)
		g.text.WriteString(fmt.Sprintf("\tmov %s, string_val%d\n", reg, idx))
	case token.LIT_CHAR:
		g.text.WriteString(fmt.Sprintf("\tmov %s, %d\n", reg, charValue(p.Value)))
	default:
		g.text.WriteString(fmt.Sprintf("\tmov %s, %s\n", reg, p.Value))
	}
	return reg
}

func charValue(lexeme string) int {
	if len(lexeme) == 0 {
		return 0
	}
	return int(lexeme[0])
}

func (g *Generator) genIdent(id *ast.IdentExpr) string {
	if g.isFloatExpr(id) {
		width := "dword"
		if id.Sym.Type.PrimitiveSize() == 8 {
			width = "qword"
		}
		g.text.WriteString(fmt.Sprintf("\tfld %s %s\n", width, g.operandLocation(id.Sym)))
		return "st0"
	}
	reg, _ := g.alloc.next(4)
	g.text.WriteString(fmt.Sprintf("\tmov %s, %s\n", reg, g.operandLocation(id.Sym)))
	return reg
}

// isFloatExpr reports whether evaluating e leaves its result on the x87
// stack (float/double) rather than in a general-purpose register.
func (g *Generator) isFloatExpr(e ast.Expr) bool {
	switch x := e.(type) {
	case *ast.PrimaryExpr:
		return x.Kind == token.LIT_FLOAT
	case *ast.IdentExpr:
		return x.Sym != nil && !x.Sym.IsPtr && x.Sym.Type.IsFloatKind()
	case *ast.UnaryExpr:
		if x.Op == token.MINUS {
			return g.isFloatExpr(x.Operand)
		}
		return false
	case *ast.BinaryExpr:
		if comparisonOps[x.Op] {
			return false
		}
		return g.isFloatExpr(x.Left) || g.isFloatExpr(x.Right)
	case *ast.CastExpr:
		return x.PtrLevel == 0 && x.Target.IsFloatKind()
	}
	return false
}

// operandLocation renders a symbol's storage location: [ebp+disp] for a
// local/parameter, or its bare name for a global (NASM resolves globals
// through the .data/.bss label directly).
func (g *Generator) operandLocation(sym *types.SymbolInfo) string {
	if sym == nil {
		return "0"
	}
	if sym.FPDisp != 0 {
		if sym.FPDisp > 0 {
			return fmt.Sprintf("[ebp+%d]", sym.FPDisp)
		}
		return fmt.Sprintf("[ebp%d]", sym.FPDisp)
	}
	return fmt.Sprintf("[%s]", sym.Name)
}

func (g *Generator) genUnary(u *ast.UnaryExpr) string {
	switch u.Op {
	case token.AMP:
		if ident, ok := u.Operand.(*ast.IdentExpr); ok {
			reg, _ := g.alloc.next(4)
			g.text.WriteString(fmt.Sprintf("\tlea %s, %s\n", reg, g.operandLocation(ident.Sym)))
			return reg
		}
	case token.STAR:
		base := g.genExpr(u.Operand)
		reg, _ := g.alloc.next(4)
		g.text.WriteString(fmt.Sprintf("\tmov %s, [%s]\n", reg, base))
		return reg
	case token.MINUS:
		if g.isFloatExpr(u.Operand) {
			g.genExpr(u.Operand)
			g.text.WriteString("\tfchs\n")
			return "st0"
		}
		reg := g.genExpr(u.Operand)
		g.text.WriteString(fmt.Sprintf("\tneg %s\n", reg))
		return reg
	case token.TILDE:
		reg := g.genExpr(u.Operand)
		g.text.WriteString(fmt.Sprintf("\tnot %s\n", reg))
		return reg
	case token.BANG:
		reg := g.genExpr(u.Operand)
		g.text.WriteString(fmt.Sprintf("\ttest %s, %s\n\tsete %s\n\tmovzx %s, %s\n", reg, reg, byteAliasOf(reg), reg, byteAliasOf(reg)))
		return reg
	case token.INC, token.DEC:
		return g.genIncDec(u)
	}
	return g.genExpr(u.Operand)
}

func byteAliasOf(reg string) string {
	switch reg {
	case "eax":
		return "al"
	case "ebx":
		return "bl"
	case "ecx":
		return "cl"
	case "edx":
		return "dl"
	default:
		return "al"
	}
}

func (g *Generator) genIncDec(u *ast.UnaryExpr) string {
	ident, ok := u.Operand.(*ast.IdentExpr)
	mnemonic := "inc"
	if u.Op == token.DEC {
		mnemonic = "dec"
	}
	if !ok {
		return g.genExpr(u.Operand)
	}
	loc := g.operandLocation(ident.Sym)
	if u.Postfix {
		reg, _ := g.alloc.next(4)
		g.text.WriteString(fmt.Sprintf("\tmov %s, %s\n\t%s %s\n", reg, loc, mnemonic, loc))
		return reg
	}
	g.text.WriteString(fmt.Sprintf("\t%s %s\n", mnemonic, loc))
	reg, _ := g.alloc.next(4)
	g.text.WriteString(fmt.Sprintf("\tmov %s, %s\n", reg, loc))
	return reg
}

var binaryMnemonic = map[token.Kind]string{
	token.PLUS: "add", token.MINUS: "sub", token.AMP: "and", token.PIPE: "or", token.CARET: "xor",
	token.LSHIFT: "shl", token.RSHIFT: "sar",
}

var comparisonOps = map[token.Kind]bool{
	token.EQ: true, token.NE: true, token.LT: true, token.LE: true, token.GT: true, token.GE: true,
}

var floatArithMnemonic = map[token.Kind]string{
	token.PLUS: "faddp", token.MINUS: "fsubp", token.STAR: "fmulp", token.SLASH: "fdivp",
}

// genFloatBinary lowers a binary expression with a float/double operand:
// both sides are loaded onto the x87 stack, then combined with the
// popping arithmetic form (left below right, so e.g. fsubp computes
// left-right correctly), or compared with FCOMPP/FNSTSW/SAHF and turned
// into a 0/1 value with an unsigned SETcc read off the resulting flags.
func (g *Generator) genFloatBinary(b *ast.BinaryExpr) string {
	if mnemonic, ok := floatArithMnemonic[b.Op]; ok {
		g.genExpr(b.Left)
		g.genExpr(b.Right)
		g.text.WriteString(fmt.Sprintf("\t%s st1, st0\n", mnemonic))
		return "st0"
	}
	if comparisonOps[b.Op] {
		g.genExpr(b.Right)
		g.genExpr(b.Left)
		g.text.WriteString("\tfcompp\n\tfnstsw ax\n\tsahf\n")
		reg, _ := g.alloc.next(4)
		g.text.WriteString(fmt.Sprintf("\t%s %s\n\tmovzx %s, %s\n", setccFloatFor(b.Op), byteAliasOf(reg), reg, byteAliasOf(reg)))
		return reg
	}
	// Bitwise and logical operators never reach here: the analyzer rejects
	// a float operand for any of them before codegen runs.
	left := g.genExpr(b.Left)
	g.genExpr(b.Right)
	return left
}

func setccFloatFor(op token.Kind) string {
	switch op {
	case token.EQ:
		return "sete"
	case token.NE:
		return "setne"
	case token.LT:
		return "setb"
	case token.LE:
		return "setbe"
	case token.GT:
		return "seta"
	case token.GE:
		return "setae"
	}
	return "sete"
}

func (g *Generator) genBinary(b *ast.BinaryExpr) string {
	if g.isFloatExpr(b.Left) || g.isFloatExpr(b.Right) {
		return g.genFloatBinary(b)
	}
	left := g.genExpr(b.Left)
	right := g.genExpr(b.Right)
	if mnemonic, ok := binaryMnemonic[b.Op]; ok {
		g.text.WriteString(fmt.Sprintf("\t%s %s, %s\n", mnemonic, left, right))
		return left
	}
	switch b.Op {
	case token.STAR:
		g.text.WriteString(fmt.Sprintf("\timul %s, %s\n", left, right))
		return left
	case token.SLASH, token.PERCENT:
		g.text.WriteString(fmt.Sprintf("\tmov eax, %s\n\tcdq\n\tidiv %s\n", left, right))
		if b.Op == token.PERCENT {
			return "edx"
		}
		return "eax"
	case token.EQ, token.NE, token.LT, token.LE, token.GT, token.GE:
		g.text.WriteString(fmt.Sprintf("\tcmp %s, %s\n\t%s %s\n\tmovzx %s, %s\n", left, right, setccFor(b.Op), byteAliasOf(left), left, byteAliasOf(left)))
		return left
	case token.LOGAND:
		g.text.WriteString(fmt.Sprintf("\ttest %s, %s\n\tsetnz %s\n\ttest %s, %s\n\tsetnz %s\n\tand %s, %s\n\tmovzx %s, %s\n",
			left, left, byteAliasOf(left), right, right, byteAliasOf(right), byteAliasOf(left), byteAliasOf(right), left, byteAliasOf(left)))
		return left
	case token.LOGOR:
		g.text.WriteString(fmt.Sprintf("\tor %s, %s\n\tsetnz %s\n\tmovzx %s, %s\n", left, right, byteAliasOf(left), left, byteAliasOf(left)))
		return left
	}
	return left
}

func setccFor(op token.Kind) string {
	switch op {
	case token.EQ:
		return "sete"
	case token.NE:
		return "setne"
	case token.LT:
		return "setl"
	case token.LE:
		return "setle"
	case token.GT:
		return "setg"
	case token.GE:
		return "setge"
	}
	return "sete"
}

func (g *Generator) genAssign(a *ast.AssignExpr) string {
	op := a.Op
	if op.IsCompoundAssign() {
		op = op.BinaryOpFor()
	}
	rhs := a.Right
	if a.Op != token.ASSIGN {
		rhs = ast.NewBinary(a.Tok, op, a.Left, a.Right)
	}

	prevWidth := g.floatWidth
	lhsIdent, lhsIsIdent := a.Left.(*ast.IdentExpr)
	if lhsIsIdent && lhsIdent.Sym != nil {
		g.floatWidth = widthForType(lhsIdent.Sym.Type)
	}
	reg := g.genExpr(rhs)
	g.floatWidth = prevWidth

	loc := g.lvalueLocation(a.Left)
	if reg == "st0" {
		width := "dword"
		if lhsIsIdent && lhsIdent.Sym != nil && lhsIdent.Sym.Type.PrimitiveSize() == 8 {
			width = "qword"
		}
		// FSTP pops the stack on store; reload so the assignment's own
		// value is still available to an enclosing expression, mirroring
		// how the integer path's mov leaves its register intact.
		g.text.WriteString(fmt.Sprintf("\tfstp %s %s\n\tfld %s %s\n", width, loc, width, loc))
		return "st0"
	}
	g.text.WriteString(fmt.Sprintf("\tmov %s, %s\n", loc, reg))
	return reg
}

func (g *Generator) lvalueLocation(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.IdentExpr:
		return g.operandLocation(x.Sym)
	case *ast.UnaryExpr:
		if x.Op == token.STAR {
			base := g.genExpr(x.Operand)
			return fmt.Sprintf("[%s]", base)
		}
	case *ast.IndexExpr:
		return g.indexAddress(x)
	case *ast.MemberExpr:
		return g.memberAddress(x)
	}
	return "eax"
}

func (g *Generator) genIndex(x *ast.IndexExpr) string {
	addr := g.indexAddress(x)
	reg, _ := g.alloc.next(4)
	g.text.WriteString(fmt.Sprintf("\tmov %s, %s\n", reg, addr))
	return reg
}

// indexAddress folds a literal index into a constant displacement and
// only falls back to an index register (ecx) when the subscript is not
// itself a literal.
func (g *Generator) indexAddress(x *ast.IndexExpr) string {
	ident, ok := x.Base.(*ast.IdentExpr)
	if !ok || ident.Sym == nil {
		return "[eax]"
	}
	elemSize := 4
	if ident.Sym.Type.PrimitiveSize() > 0 {
		elemSize = ident.Sym.Type.PrimitiveSize()
	}
	base := g.operandLocation(ident.Sym)
	if lit, ok := x.Index.(*ast.PrimaryExpr); ok {
		if n, err := strconv.Atoi(lit.Value); err == nil {
			return offsetLocation(base, n*elemSize)
		}
	}
	idxReg := g.genExpr(x.Index)
	g.text.WriteString(fmt.Sprintf("\timul %s, %d\n", idxReg, elemSize))
	if ident.Sym.FPDisp != 0 {
		g.text.WriteString(fmt.Sprintf("\tlea ecx, %s\n\tadd ecx, %s\n", base, idxReg))
	} else {
		g.text.WriteString(fmt.Sprintf("\tmov ecx, %s\n\tadd ecx, %s\n", ident.Sym.Name, idxReg))
	}
	return "[ecx]"
}

func offsetLocation(base string, extra int) string {
	if extra == 0 {
		return base
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(base, "["), "]")
	if extra >= 0 {
		return fmt.Sprintf("[%s+%d]", inner, extra)
	}
	return fmt.Sprintf("[%s%d]", inner, extra)
}

func (g *Generator) genMember(x *ast.MemberExpr) string {
	addr := g.memberAddress(x)
	reg, _ := g.alloc.next(4)
	g.text.WriteString(fmt.Sprintf("\tmov %s, %s\n", reg, addr))
	return reg
}

func (g *Generator) memberAddress(x *ast.MemberExpr) string {
	ident, ok := x.Base.(*ast.IdentExpr)
	if !ok || ident.Sym == nil {
		return "[eax]"
	}
	recordName := ident.Sym.Type.RecordName.Lexeme
	if x.Arrow {
		reg := g.genExpr(x.Base)
		return fmt.Sprintf("[%s+%s.%s]", reg, recordName, x.Field)
	}
	base := g.operandLocation(ident.Sym)
	inner := strings.TrimSuffix(strings.TrimPrefix(base, "["), "]")
	return fmt.Sprintf("[%s+%s.%s]", inner, recordName, x.Field)
}

// genCall evaluates arguments right-to-left per the declared calling
// convention. A float argument is reserved four bytes of stack directly
// (FSTP into [esp] after the reservation) in its own turn, rather than
// PUSHed, since x87 has no push-register-onto-the-CPU-stack form.
func (g *Generator) genCall(c *ast.CallExpr) string {
	for i := len(c.Args) - 1; i >= 0; i-- {
		reg := g.genExpr(c.Args[i])
		if reg == "st0" {
			g.text.WriteString("\tsub esp, 4\n\tfstp dword [esp]\n")
			continue
		}
		g.text.WriteString("\tpush " + reg + "\n")
	}
	name := "eax"
	if ident, ok := c.Callee.(*ast.IdentExpr); ok {
		name = ident.Name
	}
	g.text.WriteString("\tcall " + name + "\n")
	if len(c.Args) > 0 {
		g.text.WriteString(fmt.Sprintf("\tadd esp, %d\n", 4*len(c.Args)))
	}
	return "eax"
}

func (g *Generator) genSizeof(s *ast.SizeofExpr) string {
	reg, _ := g.alloc.next(4)
	size := 4
	switch {
	case s.OfType != nil:
		if s.PtrLevel > 0 {
			size = 4
		} else if s.OfType.Tag == types.TagRecord {
			size = g.recordSizes[s.OfType.RecordName.Lexeme]
		} else {
			size = s.OfType.PrimitiveSize()
		}
	case s.OfExpr != nil:
		if ident, ok := s.OfExpr.(*ast.IdentExpr); ok && ident.Sym != nil {
			size = memberWidth(ident.Sym)
		}
	}
	g.text.WriteString(fmt.Sprintf("\tmov %s, %d\n", reg, size))
	return reg
}
