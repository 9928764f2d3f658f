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

// Package analyzer walks a parsed ast.File and checks the static
// semantic rules that the grammar alone cannot enforce: name resolution,
// pointer/arithmetic compatibility, assignment compatibility, call
// arity, label/goto closure, break/continue nesting, return-type
// agreement, inline-asm operand validity, and global-initializer shape.
package analyzer

import (
	"strings"

	"xlang/internal/ast"
	"xlang/internal/diag"
	"xlang/internal/symtab"
	"xlang/internal/token"
	"xlang/internal/types"
)

// Analyzer carries the tables the parser built plus the diagnostic sink;
// it never holds state as package-level globals.
type Analyzer struct {
	diags   *diag.Sink
	globals *symtab.Table
	records *symtab.RecordTable
	funcs   *symtab.FunctionTable
}

func New(diags *diag.Sink, globals *symtab.Table, records *symtab.RecordTable, funcs *symtab.FunctionTable) *Analyzer {
	return &Analyzer{diags: diags, globals: globals, records: records, funcs: funcs}
}

// Run checks every declaration in file and reports every violation found;
// it never stops at the first error, mirroring the diagnostic model where
// the driver — not the analyzer — decides whether to abort.
func (a *Analyzer) Run(file *ast.File) {
	for _, g := range file.Globals {
		a.checkGlobalDecl(g)
	}
	for _, fn := range file.Funcs {
		a.checkFuncDecl(fn)
	}
}

// -----------------------------------------------------------------------
// Void-variable check

func (a *Analyzer) checkNonVoid(sym *types.SymbolInfo, tok token.Token) {
	if sym.Type.IsVoidKind() && !sym.IsPtr {
		a.diags.Semantic(tok.Line, tok.Col, "variable %q declared void", sym.Name)
	}
}

// -----------------------------------------------------------------------
// Globals

func (a *Analyzer) checkGlobalDecl(g *ast.GlobalDecl) {
	a.checkNonVoid(g.Sym, g.Tok)
	if g.Init == nil {
		return
	}
	// A global initializer must reduce to a single primary token; no
	// operators, calls or identifiers are permitted at file scope since
	// there is no code location to evaluate them in.
	if _, ok := g.Init.(*ast.PrimaryExpr); !ok {
		a.diags.Semantic(g.Init.Pos().Line, g.Init.Pos().Col, "global initializer for %q must be a single literal", g.Sym.Name)
	}
}

// -----------------------------------------------------------------------
// Functions

type funcScope struct {
	info      *types.FunctionInfo
	locals    *symtab.Table
	labels    map[string]bool
	loopDepth int
}

func (a *Analyzer) checkFuncDecl(fn *ast.FuncDecl) {
	if fn.Body == nil {
		return
	}
	locals, _ := fn.Body.Locals.(*symtab.Table)
	fs := &funcScope{info: fn.Info, locals: locals, labels: map[string]bool{}}

	for _, param := range fn.Info.Params {
		if param.Symbol != nil && param.Symbol.Name != "" {
			a.checkNonVoid(param.Symbol, param.Symbol.Tok)
		}
	}

	a.collectLabels(fn.Body, fs)
	fn.Body.Walk(func(s ast.Stmt) { a.checkStmt(s, fs) })
}

func (a *Analyzer) collectLabels(b *ast.Block, fs *funcScope) {
	b.Walk(func(s ast.Stmt) {
		if l, ok := s.(*ast.LabelStmt); ok {
			if fs.labels[l.Name] {
				a.diags.Semantic(l.Tok.Line, l.Tok.Col, "duplicate label %q", l.Name)
			}
			fs.labels[l.Name] = true
		}
	})
}

func (a *Analyzer) checkStmt(s ast.Stmt, fs *funcScope) {
	switch st := s.(type) {
	case *ast.DeclStmt:
		for _, sym := range st.Names {
			a.checkNonVoid(sym, sym.Tok)
			if funcHasParam(fs.info, sym.Name) {
				a.diags.Semantic(sym.Tok.Line, sym.Tok.Col, "local %q shadows a parameter of the same name", sym.Name)
			}
		}
	case *ast.ExprStmt:
		a.resolveExpr(st.X, fs)
	case *ast.IfStmt:
		a.resolveExpr(st.Cond, fs)
		a.walkBlockIn(st.Then, fs)
		if st.Else != nil {
			a.walkBlockIn(st.Else, fs)
		}
	case *ast.IterStmt:
		fs.loopDepth++
		if st.Init != nil {
			a.checkStmt(st.Init, fs)
		}
		if st.Cond != nil {
			a.resolveExpr(st.Cond, fs)
		}
		if st.Post != nil {
			a.resolveExpr(st.Post, fs)
		}
		a.walkBlockIn(st.Body, fs)
		fs.loopDepth--
	case *ast.JumpStmt:
		a.checkJump(st, fs)
	case *ast.AsmStmt:
		a.checkAsm(st, fs)
	case *ast.LabelStmt:
		// handled in collectLabels
	}
}

func (a *Analyzer) walkBlockIn(b *ast.Block, fs *funcScope) {
	if b == nil {
		return
	}
	b.Walk(func(s ast.Stmt) { a.checkStmt(s, fs) })
}

func (a *Analyzer) checkJump(st *ast.JumpStmt, fs *funcScope) {
	switch st.Kind {
	case ast.JumpBreak, ast.JumpContinue:
		if fs.loopDepth == 0 {
			kw := "break"
			if st.Kind == ast.JumpContinue {
				kw = "continue"
			}
			a.diags.Semantic(st.Tok.Line, st.Tok.Col, "%s outside of a loop", kw)
		}
	case ast.JumpReturn:
		if st.Value != nil {
			a.resolveExpr(st.Value, fs)
			if fs.info.ReturnType.IsVoidKind() && fs.info.ReturnPtrLevel == 0 {
				a.diags.Semantic(st.Tok.Line, st.Tok.Col, "returning a value from void function %q", fs.info.Name)
			}
		}
	case ast.JumpGoto:
		if !fs.labels[st.Label] {
			a.diags.Semantic(st.Tok.Line, st.Tok.Col, "goto target %q does not exist", st.Label)
		}
	}
}

// -----------------------------------------------------------------------
// Expression resolution and operator rules

func (a *Analyzer) resolveExpr(e ast.Expr, fs *funcScope) *types.SymbolInfo {
	switch x := e.(type) {
	case *ast.IdentExpr:
		sym := a.lookup(x.Name, fs)
		if sym == nil {
			a.diags.Semantic(x.Tok.Line, x.Tok.Col, "undeclared %q", x.Name)
		} else {
			sym.RefCount++
		}
		x.Sym = sym
		return sym
	case *ast.PrimaryExpr:
		return nil
	case *ast.UnaryExpr:
		sym := a.resolveExpr(x.Operand, fs)
		if x.Op == token.TILDE && sym != nil && (sym.Type.IsFloatKind() || sym.IsPtr) {
			a.diags.Semantic(x.Tok.Line, x.Tok.Col, "bit-complement of a float or pointer operand")
		}
		return nil
	case *ast.BinaryExpr:
		left := a.resolveExpr(x.Left, fs)
		right := a.resolveExpr(x.Right, fs)
		a.checkBinaryOperands(x, left, right)
		return nil
	case *ast.AssignExpr:
		left := a.resolveExpr(x.Left, fs)
		right := a.resolveExpr(x.Right, fs)
		a.checkAssign(x, left, right)
		return nil
	case *ast.IndexExpr:
		base := a.resolveExpr(x.Base, fs)
		a.resolveExpr(x.Index, fs)
		if base != nil && !base.IsArray && !base.IsPtr {
			a.diags.Semantic(x.Tok.Line, x.Tok.Col, "%q is not an array or pointer", base.Name)
		}
		return nil
	case *ast.MemberExpr:
		return a.checkMember(x, fs)
	case *ast.CallExpr:
		a.checkCall(x, fs)
		return nil
	case *ast.CastExpr:
		a.resolveExpr(x.Operand, fs)
		return nil
	case *ast.SizeofExpr:
		if x.OfExpr != nil {
			a.resolveExpr(x.OfExpr, fs)
		}
		return nil
	}
	return nil
}

func (a *Analyzer) lookup(name string, fs *funcScope) *types.SymbolInfo {
	if fs.locals != nil {
		if sym := fs.locals.Search(name); sym != nil {
			return sym
		}
	}
	for _, p := range fs.info.Params {
		if p.Symbol != nil && p.Symbol.Name == name {
			return p.Symbol
		}
	}
	return a.globals.Search(name)
}

var bitwiseOps = map[token.Kind]bool{
	token.PERCENT: true, token.AMP: true, token.PIPE: true, token.CARET: true,
	token.LSHIFT: true, token.RSHIFT: true,
}

func (a *Analyzer) checkBinaryOperands(x *ast.BinaryExpr, left, right *types.SymbolInfo) {
	if bitwiseOps[x.Op] {
		for _, s := range []*types.SymbolInfo{left, right} {
			if s != nil && (s.Type.IsFloatKind() || s.IsPtr) {
				a.diags.Semantic(x.Tok.Line, x.Tok.Col, "operator %v rejects float or pointer operands", x.Op)
			}
		}
		if (x.Op == token.LSHIFT || x.Op == token.RSHIFT) && !isLiteral(x.Right) {
			a.diags.Semantic(x.Tok.Line, x.Tok.Col, "shift amount must be a literal")
		}
		return
	}
	leftPtr, rightPtr := left != nil && left.IsPtr, right != nil && right.IsPtr
	if (leftPtr || rightPtr) && x.Op != token.PLUS && x.Op != token.MINUS {
		a.diags.Semantic(x.Tok.Line, x.Tok.Col, "invalid operand to binary %v", x.Op)
		return
	}
	if x.Op != token.PLUS && x.Op != token.MINUS {
		return
	}
	if leftPtr && rightPtr {
		a.diags.Semantic(x.Tok.Line, x.Tok.Col, "two pointers cannot be combined with %v", x.Op)
		return
	}
	if leftPtr && (isFloatLiteral(x.Right) || isStringLiteral(x.Right)) {
		a.diags.Semantic(x.Tok.Line, x.Tok.Col, "pointer arithmetic against a float or string literal")
	}
	if rightPtr && (isFloatLiteral(x.Left) || isStringLiteral(x.Left)) {
		a.diags.Semantic(x.Tok.Line, x.Tok.Col, "pointer arithmetic against a float or string literal")
	}
}

func isLiteral(e ast.Expr) bool { _, ok := e.(*ast.PrimaryExpr); return ok }
func isFloatLiteral(e ast.Expr) bool {
	p, ok := e.(*ast.PrimaryExpr)
	return ok && p.Kind == token.LIT_FLOAT
}
func isStringLiteral(e ast.Expr) bool {
	p, ok := e.(*ast.PrimaryExpr)
	return ok && p.Kind == token.LIT_STRING
}

func (a *Analyzer) checkAssign(x *ast.AssignExpr, left, right *types.SymbolInfo) {
	if left == nil {
		return
	}
	if left.IsPtr {
		switch {
		case right != nil && right.IsPtr:
			if left.Type.Tag == types.TagRecord && right.Type.Tag == types.TagRecord &&
				(left.Type.RecordName.Lexeme != right.Type.RecordName.Lexeme || left.PtrLevel != right.PtrLevel) {
				a.diags.Semantic(x.Tok.Line, x.Tok.Col, "incompatible pointer assignment")
			}
		case isStringLiteral(x.Right):
			// char*/char[] = "literal" is allowed.
		case right != nil && right.Type.IsFloatKind():
			a.diags.Semantic(x.Tok.Line, x.Tok.Col, "pointer assigned a non-integer value")
		}
		return
	}
	if left.Type.Tag == types.TagRecord {
		if right != nil && right.Type.Tag != types.TagRecord {
			a.diags.Semantic(x.Tok.Line, x.Tok.Col, "cannot assign a non-record value to record %q", left.Name)
		}
	}
}

func (a *Analyzer) checkMember(x *ast.MemberExpr, fs *funcScope) *types.SymbolInfo {
	base := a.resolveExpr(x.Base, fs)
	if base == nil {
		return nil
	}
	if x.Arrow && !base.IsPtr {
		a.diags.Semantic(x.Tok.Line, x.Tok.Col, "'->' used on a non-pointer")
		return nil
	}
	if !x.Arrow && base.IsPtr {
		a.diags.Semantic(x.Tok.Line, x.Tok.Col, "'.' used on a pointer, expected '->'")
		return nil
	}
	if base.Type.Tag != types.TagRecord {
		a.diags.Semantic(x.Tok.Line, x.Tok.Col, "member access on a non-record type")
		return nil
	}
	rec := a.records.Search(base.Type.RecordName.Lexeme)
	if rec == nil {
		return nil
	}
	members, _ := rec.Members.(*symtab.Table)
	if members == nil || members.Search(x.Field) == nil {
		a.diags.Semantic(x.Tok.Line, x.Tok.Col, "record %q has no member %q", rec.Name, x.Field)
		return nil
	}
	return members.Search(x.Field)
}

func (a *Analyzer) checkCall(x *ast.CallExpr, fs *funcScope) {
	for _, arg := range x.Args {
		a.resolveExpr(arg, fs)
	}
	ident, ok := x.Callee.(*ast.IdentExpr)
	if !ok {
		return
	}
	fn := a.funcs.Search(ident.Name)
	if fn == nil {
		a.diags.Semantic(x.Tok.Line, x.Tok.Col, "call to undeclared function %q", ident.Name)
		return
	}
	if len(x.Args) != len(fn.Params) {
		a.diags.Semantic(x.Tok.Line, x.Tok.Col, "function %q expects %d argument(s), got %d", ident.Name, len(fn.Params), len(x.Args))
	}
}

// -----------------------------------------------------------------------
// Inline asm

func (a *Analyzer) checkAsm(st *ast.AsmStmt, fs *funcScope) {
	var outputs, inputs int
	for _, op := range st.Operands {
		c, ok := ParseConstraint(strings.Trim(op.Constraint, `"`))
		if !ok {
			a.diags.Asm(st.Tok.Line, st.Tok.Col, "malformed asm constraint %q", op.Constraint)
			continue
		}
		if c.Kind == ConstraintOutput {
			outputs++
			if !hasClass(c, "a", "b", "c", "d", "S", "D", "m") {
				a.diags.Asm(st.Tok.Line, st.Tok.Col, "output constraint %q must select a register or memory class", op.Constraint)
			}
		} else {
			inputs++
		}
		if hasClass(c, "m") {
			if _, ok := op.Value.(*ast.IdentExpr); !ok {
				if _, ok := op.Value.(*ast.PrimaryExpr); !ok {
					a.diags.Asm(st.Tok.Line, st.Tok.Col, "memory operand must be a single-node primary")
				}
			}
		}
		a.resolveExpr(op.Value, fs)
	}
	n := countPlaceholders(st.Template)
	if n > outputs+inputs {
		a.diags.Asm(st.Tok.Line, st.Tok.Col, "template references %%%d but only %d operand(s) given", n-1, outputs+inputs)
	}
}

func hasClass(c Constraint, classes ...string) bool {
	for _, want := range classes {
		for _, got := range c.Classes {
			if got == want {
				return true
			}
		}
	}
	return false
}

// countPlaceholders returns one past the highest %N index referenced.
func countPlaceholders(template string) int {
	max := 0
	for i := 0; i < len(template)-1; i++ {
		if template[i] != '%' {
			continue
		}
		j := i + 1
		n := 0
		for j < len(template) && template[j] >= '0' && template[j] <= '9' {
			n = n*10 + int(template[j]-'0')
			j++
		}
		if j > i+1 && n+1 > max {
			max = n + 1
		}
	}
	return max
}

func funcHasParam(fi *types.FunctionInfo, name string) bool {
	for _, p := range fi.Params {
		if p.Symbol != nil && p.Symbol.Name == name {
			return true
		}
	}
	return false
}
