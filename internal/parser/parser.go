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

// Package parser builds an ast.File from a token stream with one-token
// lookahead recursive descent for statements and declarations, and a
// two-stage shunting-yard reconstruction for expressions: tight-binding
// primaries (calls, indexing, member access, casts, sizeof, prefix/postfix
// unary) are folded eagerly into leaves, then a flat sequence of those
// leaves and binary-operator tokens is collected up to a caller-supplied
// terminator, rearranged into postfix order by an explicit precedence
// table, and finally folded into a binary tree.
package parser

import (
	"xlang/internal/ast"
	"xlang/internal/diag"
	"xlang/internal/lexer"
	"xlang/internal/symtab"
	"xlang/internal/token"
	"xlang/internal/types"
)

// Result bundles everything a single translation unit produces, handed to
// the analyzer and then the code generator by the driver.
type Result struct {
	File    *ast.File
	Globals *symtab.Table
	Records *symtab.RecordTable
	Funcs   *symtab.FunctionTable
}

type Parser struct {
	lex      *lexer.Lexer
	diags    *diag.Sink
	cur      token.Token
	peek     token.Token
	havePeek bool

	globals *symtab.Table
	records *symtab.RecordTable
	funcs   *symtab.FunctionTable
	locals  *symtab.Table // current function's local table, nil at top level

	// pending buffers the synthetic assignment statements produced by
	// `type name = init;` local declarations, until the enclosing block
	// can absorb them right after the DeclStmt itself.
	pending []ast.Stmt
}

func New(lex *lexer.Lexer, diags *diag.Sink) *Parser {
	p := &Parser{
		lex:     lex,
		diags:   diags,
		globals: symtab.New(),
		records: symtab.NewRecordTable(),
		funcs:   symtab.NewFunctionTable(),
	}
	p.consume()
	return p
}

func (p *Parser) consume() {
	if p.havePeek {
		p.cur = p.peek
		p.havePeek = false
		return
	}
	p.cur = p.lex.Next()
}

func (p *Parser) peekTok() token.Token {
	if !p.havePeek {
		p.peek = p.lex.Next()
		p.havePeek = true
	}
	return p.peek
}

// guarantee reports a syntax error when cond is false and returns cond,
// letting the caller decide whether to keep parsing the current rule.
func (p *Parser) guarantee(cond bool, format string, args ...interface{}) bool {
	if !cond {
		p.diags.Syntactic(p.cur.Line, p.cur.Col, format, args...)
	}
	return cond
}

func (p *Parser) expect(k token.Kind, what string) bool {
	if p.cur.Kind != k {
		p.diags.Syntactic(p.cur.Line, p.cur.Col, "expected %s, found %q", what, p.cur.Lexeme)
		return false
	}
	p.consume()
	return true
}

// synchronize skips tokens until a statement boundary, so one bad
// declaration or statement does not cascade into unrelated errors.
func (p *Parser) synchronize() {
	for p.cur.Kind != token.EOF && p.cur.Kind != token.SEMI && p.cur.Kind != token.RBRACE {
		p.consume()
	}
	if p.cur.Kind == token.SEMI {
		p.consume()
	}
}

// Parse runs the whole translation unit and returns the declarations plus
// the tables they populated.
func (p *Parser) Parse() *Result {
	file := &ast.File{}
	for p.cur.Kind != token.EOF {
		p.parseTopLevel(file)
	}
	return &Result{File: file, Globals: p.globals, Records: p.records, Funcs: p.funcs}
}

// -----------------------------------------------------------------------
// Top level

func (p *Parser) parseStorageQualifiers() types.TypeInfo {
	var t types.TypeInfo
	for p.cur.Kind.IsStorageQualifier() {
		switch p.cur.Kind {
		case token.KW_GLOBAL:
			t.IsGlobal = true
		case token.KW_EXTERN:
			t.IsExtern = true
		case token.KW_STATIC:
			t.IsStatic = true
		case token.KW_CONST:
			t.IsConst = true
		}
		p.consume()
	}
	return t
}

func (p *Parser) parseTopLevel(file *ast.File) {
	qual := p.parseStorageQualifiers()

	if p.cur.Kind == token.KW_RECORD {
		rd := p.parseRecordDecl(qual.IsGlobal, qual.IsExtern)
		if rd != nil {
			file.Records = append(file.Records, rd)
		}
		return
	}

	if !p.cur.Kind.IsTypeKeyword() {
		p.diags.Syntactic(p.cur.Line, p.cur.Col, "expected a declaration, found %q", p.cur.Lexeme)
		p.synchronize()
		return
	}

	typ := p.parseTypeSpecifier()
	typ.IsGlobal, typ.IsExtern, typ.IsStatic, typ.IsConst = qual.IsGlobal, qual.IsExtern, qual.IsStatic, qual.IsConst

	ptrLevel := 0
	for p.cur.Kind == token.STAR {
		ptrLevel++
		p.consume()
	}

	if !p.guarantee(p.cur.Kind == token.IDENT, "expected an identifier") {
		p.synchronize()
		return
	}
	nameTok := p.cur
	p.consume()

	if p.cur.Kind == token.LPAREN {
		fd := p.parseFuncDeclAfterName(typ, ptrLevel, nameTok)
		if fd != nil {
			file.Funcs = append(file.Funcs, fd)
		}
		return
	}

	for {
		gd := p.parseGlobalDeclarator(typ, ptrLevel, nameTok)
		if gd != nil {
			file.Globals = append(file.Globals, gd)
		}
		if p.cur.Kind != token.COMMA {
			break
		}
		p.consume()
		if !p.guarantee(p.cur.Kind == token.IDENT, "expected an identifier") {
			break
		}
		nameTok = p.cur
		p.consume()
		ptrLevel = 0
		for p.cur.Kind == token.STAR {
			ptrLevel++
			p.consume()
		}
	}
	p.expect(token.SEMI, "';'")
}

func (p *Parser) parseTypeSpecifier() types.TypeInfo {
	if p.cur.Kind == token.IDENT && p.records.Search(p.cur.Lexeme) != nil {
		name := p.cur
		p.consume()
		return types.TypeInfo{Tag: types.TagRecord, RecordName: name}
	}
	var simple []token.Token
	for p.cur.Kind.IsTypeKeyword() {
		simple = append(simple, p.cur)
		p.consume()
	}
	return types.TypeInfo{Tag: types.TagSimple, Simple: simple}
}

func (p *Parser) parseRecordDecl(isGlobal, isExtern bool) *ast.RecordDecl {
	tok := p.cur
	p.consume() // 'record'
	if !p.guarantee(p.cur.Kind == token.IDENT, "expected a record name") {
		p.synchronize()
		return nil
	}
	name := p.cur.Lexeme
	p.consume()

	rec := p.records.Insert(name)
	if rec == nil {
		p.diags.Semantic(tok.Line, tok.Col, "record %q already defined", name)
		rec = p.records.Search(name)
	}
	rec.Tok, rec.IsGlobal, rec.IsExtern = tok, isGlobal, isExtern
	members := symtab.New()
	rec.Members = members

	if !p.expect(token.LBRACE, "'{'") {
		return &ast.RecordDecl{Tok: tok, Rec: rec}
	}
	for p.cur.Kind != token.RBRACE && p.cur.Kind != token.EOF {
		p.parseRecordMember(members)
	}
	p.expect(token.RBRACE, "'}'")
	if p.cur.Kind == token.SEMI {
		p.consume()
	}
	return &ast.RecordDecl{Tok: tok, Rec: rec}
}

func (p *Parser) parseRecordMember(members *symtab.Table) {
	if !p.cur.Kind.IsTypeKeyword() {
		p.diags.Syntactic(p.cur.Line, p.cur.Col, "expected a member declaration")
		p.synchronize()
		return
	}
	typ := p.parseTypeSpecifier()
	for {
		ptrLevel := 0
		for p.cur.Kind == token.STAR {
			ptrLevel++
			p.consume()
		}
		if !p.guarantee(p.cur.Kind == token.IDENT, "expected a member name") {
			p.synchronize()
			return
		}
		name := p.cur.Lexeme
		nameTok := p.cur
		p.consume()
		sym := members.Insert(name)
		if sym == nil {
			p.diags.Semantic(nameTok.Line, nameTok.Col, "duplicate member %q", name)
			sym = members.Search(name)
		}
		sym.Tok, sym.Type, sym.IsPtr, sym.PtrLevel = nameTok, typ, ptrLevel > 0, ptrLevel
		p.parseArrayDimsInto(sym)
		if p.cur.Kind != token.COMMA {
			break
		}
		p.consume()
	}
	p.expect(token.SEMI, "';'")
}

func (p *Parser) parseArrayDimsInto(sym *types.SymbolInfo) {
	for p.cur.Kind == token.LBRACKET {
		p.consume()
		if p.cur.Kind != token.RBRACKET {
			sym.ArrayDims = append(sym.ArrayDims, p.cur)
			p.consume()
		}
		p.expect(token.RBRACKET, "']'")
		sym.IsArray = true
	}
}

func (p *Parser) parseGlobalDeclarator(typ types.TypeInfo, ptrLevel int, nameTok token.Token) *ast.GlobalDecl {
	sym := p.globals.Insert(nameTok.Lexeme)
	if sym == nil {
		p.diags.Semantic(nameTok.Line, nameTok.Col, "global %q already declared", nameTok.Lexeme)
		sym = p.globals.Search(nameTok.Lexeme)
	}
	sym.Tok, sym.Type, sym.IsPtr, sym.PtrLevel = nameTok, typ, ptrLevel > 0, ptrLevel
	p.parseArrayDimsInto(sym)

	var init ast.Expr
	if p.cur.Kind == token.ASSIGN {
		p.consume()
		init = p.parseExpr(isAssignInitTerminator)
	}
	return &ast.GlobalDecl{Tok: nameTok, Sym: sym, Init: init}
}

// -----------------------------------------------------------------------
// Functions

func (p *Parser) parseFuncDeclAfterName(retType types.TypeInfo, retPtrLevel int, nameTok token.Token) *ast.FuncDecl {
	info := p.funcs.Insert(nameTok.Lexeme)
	if info == nil {
		p.diags.Semantic(nameTok.Line, nameTok.Col, "function %q already declared", nameTok.Lexeme)
		info = p.funcs.Search(nameTok.Lexeme)
	}
	info.Tok = nameTok
	info.ReturnType, info.ReturnPtrLevel = retType, retPtrLevel
	info.IsGlobal, info.IsExtern = retType.IsGlobal, retType.IsExtern

	p.consume() // '('
	locals := symtab.New()
	locals.Func = info
	seen := map[string]bool{}
	if p.cur.Kind != token.RPAREN {
		for {
			ptype := p.parseTypeSpecifier()
			ptrLevel := 0
			for p.cur.Kind == token.STAR {
				ptrLevel++
				p.consume()
			}
			var psym *types.SymbolInfo
			if p.cur.Kind == token.IDENT {
				if seen[p.cur.Lexeme] {
					p.diags.Semantic(p.cur.Line, p.cur.Col, "duplicate parameter name %q", p.cur.Lexeme)
				}
				seen[p.cur.Lexeme] = true
				psym = locals.Insert(p.cur.Lexeme)
				if psym == nil {
					psym = locals.Search(p.cur.Lexeme)
				}
				psym.Tok, psym.Type, psym.IsPtr, psym.PtrLevel = p.cur, ptype, ptrLevel > 0, ptrLevel
				p.consume()
			} else {
				if !info.IsExtern {
					p.diags.Semantic(p.cur.Line, p.cur.Col, "parameter name required in a function definition")
				}
				psym = &types.SymbolInfo{Type: ptype, IsPtr: ptrLevel > 0, PtrLevel: ptrLevel}
			}
			info.Params = append(info.Params, types.Param{Type: ptype, Symbol: psym})
			if p.cur.Kind != token.COMMA {
				break
			}
			p.consume()
		}
	}
	p.expect(token.RPAREN, "')'")

	fd := &ast.FuncDecl{Tok: nameTok, Info: info}
	if p.cur.Kind == token.SEMI {
		p.consume() // prototype only
		return fd
	}

	prevLocals := p.locals
	p.locals = locals
	fd.Body = p.parseBlock()
	p.locals = prevLocals
	return fd
}

// -----------------------------------------------------------------------
// Statements

func (p *Parser) parseBlock() *ast.Block {
	b := &ast.Block{Locals: p.locals}
	if !p.expect(token.LBRACE, "'{'") {
		return b
	}
	p.parseStmtsInto(b)
	p.expect(token.RBRACE, "'}'")
	return b
}

// parseStmtsInto appends statements to b until '}' or EOF. A nested
// `{ ... }` flattens directly into b: this language has no block-scoped
// shadowing, so nesting braces only groups statements lexically.
func (p *Parser) parseStmtsInto(b *ast.Block) {
	for p.cur.Kind != token.RBRACE && p.cur.Kind != token.EOF {
		if p.cur.Kind == token.LBRACE {
			p.consume()
			p.parseStmtsInto(b)
			p.expect(token.RBRACE, "'}'")
			continue
		}
		if s := p.parseStmt(); s != nil {
			b.Append(s)
		}
		p.drainPending(b)
	}
}

func (p *Parser) parseStmt() ast.Stmt {
	switch {
	case p.cur.Kind.IsTypeKeyword() || p.cur.Kind.IsStorageQualifier():
		return p.parseLocalDecl()
	case p.cur.Kind == token.KW_IF:
		return p.parseIf()
	case p.cur.Kind == token.KW_WHILE:
		return p.parseWhile()
	case p.cur.Kind == token.KW_DO:
		return p.parseDoWhile()
	case p.cur.Kind == token.KW_FOR:
		return p.parseFor()
	case p.cur.Kind == token.KW_BREAK:
		return p.parseSimpleJump(ast.JumpBreak)
	case p.cur.Kind == token.KW_CONTINUE:
		return p.parseSimpleJump(ast.JumpContinue)
	case p.cur.Kind == token.KW_RETURN:
		return p.parseReturn()
	case p.cur.Kind == token.KW_GOTO:
		return p.parseGoto()
	case p.cur.Kind == token.KW_ASM:
		return p.parseAsm()
	case p.cur.Kind == token.IDENT && p.peekTok().Kind == token.COLON:
		return p.parseLabel()
	case p.cur.Kind == token.SEMI:
		p.consume()
		return nil
	default:
		tok := p.cur
		x := p.parseExpr(isStmtTerminator)
		p.expect(token.SEMI, "';'")
		if x == nil {
			return nil
		}
		return ast.NewExprStmt(tok, x)
	}
}

func (p *Parser) parseLocalDecl() ast.Stmt {
	tok := p.cur
	qual := p.parseStorageQualifiers()
	if !p.cur.Kind.IsTypeKeyword() {
		p.diags.Syntactic(p.cur.Line, p.cur.Col, "expected a type")
		p.synchronize()
		return nil
	}
	typ := p.parseTypeSpecifier()
	typ.IsGlobal, typ.IsExtern, typ.IsStatic, typ.IsConst = qual.IsGlobal, qual.IsExtern, qual.IsStatic, qual.IsConst

	var names []*types.SymbolInfo
	for {
		ptrLevel := 0
		for p.cur.Kind == token.STAR {
			ptrLevel++
			p.consume()
		}
		if !p.guarantee(p.cur.Kind == token.IDENT, "expected an identifier") {
			p.synchronize()
			return ast.NewDecl(tok, typ, names)
		}
		nameTok := p.cur
		p.consume()
		sym := p.locals.Insert(nameTok.Lexeme)
		if sym == nil {
			p.diags.Semantic(nameTok.Line, nameTok.Col, "local %q already declared", nameTok.Lexeme)
			sym = p.locals.Search(nameTok.Lexeme)
		}
		sym.Tok, sym.Type, sym.IsPtr, sym.PtrLevel = nameTok, typ, ptrLevel > 0, ptrLevel
		p.parseArrayDimsInto(sym)
		if p.cur.Kind == token.ASSIGN {
			p.consume()
			// Local initializers lower to a following assignment
			// expression rather than a dedicated initializer slot.
			init := p.parseExpr(isAssignInitTerminator)
			names = append(names, sym)
			p.appendPendingInit(sym, nameTok, init)
		} else {
			names = append(names, sym)
		}
		if p.cur.Kind != token.COMMA {
			break
		}
		p.consume()
	}
	p.expect(token.SEMI, "';'")
	return ast.NewDecl(tok, typ, names)
}

// appendPendingInit buffers the assignment a `type name = init;` local
// declaration implies, so parseLocalDecl can return a single DeclStmt
// while the initializing ExprStmt is spliced in right after it.
func (p *Parser) appendPendingInit(sym *types.SymbolInfo, nameTok token.Token, init ast.Expr) {
	if init == nil {
		return
	}
	p.pending = append(p.pending, ast.NewExprStmt(nameTok, ast.NewAssign(nameTok, token.ASSIGN, ast.NewIdent(nameTok, sym.Name), init)))
}

func (p *Parser) parseIf() ast.Stmt {
	tok := p.cur
	p.consume()
	p.expect(token.LPAREN, "'('")
	cond := p.parseExpr(isParenTerminator)
	p.expect(token.RPAREN, "')'")
	then := p.parseStmtAsBlock()
	var els *ast.Block
	if p.cur.Kind == token.KW_ELSE {
		p.consume()
		els = p.parseStmtAsBlock()
	}
	return ast.NewIf(tok, cond, then, els)
}

// parseStmtAsBlock accepts either a `{ ... }` block or a single statement,
// normalizing both into a Block so codegen only ever lowers one shape.
func (p *Parser) parseStmtAsBlock() *ast.Block {
	if p.cur.Kind == token.LBRACE {
		return p.parseBlock()
	}
	b := &ast.Block{Locals: p.locals}
	if s := p.parseStmt(); s != nil {
		b.Append(s)
	}
	p.drainPending(b)
	return b
}

// pending holds ExprStmt initializers queued by appendPendingInit until
// the enclosing block can absorb them.
func (p *Parser) drainPending(b *ast.Block) {
	for _, s := range p.pending {
		b.Append(s)
	}
	p.pending = nil
}

// linkPendingAfter chains any queued initializer assignments directly
// after head in the statement list, for contexts (a for-loop's init
// clause) that hold a single Stmt rather than a Block.
func (p *Parser) linkPendingAfter(head ast.Stmt) {
	if head == nil {
		p.pending = nil
		return
	}
	cur := head
	for _, s := range p.pending {
		ast.InsertAfter(cur, s)
		cur = s
	}
	p.pending = nil
}

func (p *Parser) parseWhile() ast.Stmt {
	tok := p.cur
	p.consume()
	p.expect(token.LPAREN, "'('")
	cond := p.parseExpr(isParenTerminator)
	p.expect(token.RPAREN, "')'")
	body := p.parseStmtAsBlock()
	return ast.NewIter(tok, ast.IterWhile, nil, cond, nil, body)
}

func (p *Parser) parseDoWhile() ast.Stmt {
	tok := p.cur
	p.consume()
	body := p.parseStmtAsBlock()
	p.expect(token.KW_WHILE, "'while'")
	p.expect(token.LPAREN, "'('")
	cond := p.parseExpr(isParenTerminator)
	p.expect(token.RPAREN, "')'")
	p.expect(token.SEMI, "';'")
	return ast.NewIter(tok, ast.IterDoWhile, nil, cond, nil, body)
}

func (p *Parser) parseFor() ast.Stmt {
	tok := p.cur
	p.consume()
	p.expect(token.LPAREN, "'('")

	var init ast.Stmt
	if p.cur.Kind != token.SEMI {
		init = p.parseStmt()
		p.linkPendingAfter(init)
	} else {
		p.consume()
	}
	var cond ast.Expr
	if p.cur.Kind != token.SEMI {
		cond = p.parseExpr(isStmtTerminator)
	}
	p.expect(token.SEMI, "';'")
	var post ast.Expr
	if p.cur.Kind != token.RPAREN {
		post = p.parseExpr(isParenTerminator)
	}
	p.expect(token.RPAREN, "')'")
	body := p.parseStmtAsBlock()
	return ast.NewIter(tok, ast.IterFor, init, cond, post, body)
}

func (p *Parser) parseSimpleJump(kind ast.JumpKind) ast.Stmt {
	tok := p.cur
	p.consume()
	p.expect(token.SEMI, "';'")
	return ast.NewJump(tok, kind, nil, "")
}

func (p *Parser) parseReturn() ast.Stmt {
	tok := p.cur
	p.consume()
	var val ast.Expr
	if p.cur.Kind != token.SEMI {
		val = p.parseExpr(isStmtTerminator)
	}
	p.expect(token.SEMI, "';'")
	return ast.NewJump(tok, ast.JumpReturn, val, "")
}

func (p *Parser) parseGoto() ast.Stmt {
	tok := p.cur
	p.consume()
	label := ""
	if p.guarantee(p.cur.Kind == token.IDENT, "expected a label name") {
		label = p.cur.Lexeme
		p.consume()
	}
	p.expect(token.SEMI, "';'")
	return ast.NewJump(tok, ast.JumpGoto, nil, label)
}

func (p *Parser) parseLabel() ast.Stmt {
	tok := p.cur
	name := p.cur.Lexeme
	p.consume() // ident
	p.consume() // ':'
	return ast.NewLabel(tok, name)
}

// parseAsm parses `asm("template", "constraint"(expr), ...);`, the only
// place an inline string template with %0,%1,... placeholders appears.
func (p *Parser) parseAsm() ast.Stmt {
	tok := p.cur
	p.consume()
	p.expect(token.LPAREN, "'('")
	template := ""
	if p.guarantee(p.cur.Kind == token.LIT_STRING, "expected an assembly template string") {
		template = p.cur.Lexeme
		p.consume()
	}
	var operands []ast.AsmOperand
	for p.cur.Kind == token.COMMA {
		p.consume()
		constraint := ""
		if p.cur.Kind == token.LIT_STRING {
			constraint = p.cur.Lexeme
			p.consume()
		}
		p.expect(token.LPAREN, "'('")
		val := p.parseExpr(isParenTerminator)
		p.expect(token.RPAREN, "')'")
		operands = append(operands, ast.AsmOperand{Constraint: constraint, Value: val})
	}
	p.expect(token.RPAREN, "')'")
	p.expect(token.SEMI, "';'")
	return ast.NewAsm(tok, template, operands)
}

// -----------------------------------------------------------------------
// Expressions: collection -> shunting-yard -> tree

// terminator reports whether k ends the current expression without being
// consumed, so the collection stage can stop without the caller needing
// to pre-scan.
type terminator func(token.Kind) bool

func isStmtTerminator(k token.Kind) bool  { return k == token.SEMI }
func isParenTerminator(k token.Kind) bool { return k == token.RPAREN }
func isAssignInitTerminator(k token.Kind) bool {
	return k == token.SEMI || k == token.COMMA
}

// item is one element of the flat sequence fed to the shunting yard: it
// is either an already-reduced leaf expression or a binary operator
// token, never both.
type item struct {
	leaf ast.Expr
	op   token.Kind
	tok  token.Token
}

func (it item) isOperand() bool { return it.leaf != nil }

// prec holds (precedence, right-associative) for every binary/assignment
// operator, highest number binds tightest.
var prec = map[token.Kind]struct {
	level int
	right bool
}{
	token.ASSIGN: {1, true}, token.PLUS_ASSIGN: {1, true}, token.MINUS_ASSIGN: {1, true},
	token.STAR_ASSIGN: {1, true}, token.SLASH_ASSIGN: {1, true}, token.PERCENT_ASSIGN: {1, true},
	token.AMP_ASSIGN: {1, true}, token.PIPE_ASSIGN: {1, true}, token.CARET_ASSIGN: {1, true},
	token.LSHIFT_ASSIGN: {1, true}, token.RSHIFT_ASSIGN: {1, true},

	token.LOGOR:  {2, false},
	token.LOGAND: {3, false},
	token.PIPE:   {4, false},
	token.CARET:  {5, false},
	token.AMP:    {6, false},
	token.EQ:     {7, false}, token.NE: {7, false},
	token.LT: {8, false}, token.LE: {8, false}, token.GT: {8, false}, token.GE: {8, false},
	token.LSHIFT: {9, false}, token.RSHIFT: {9, false},
	token.PLUS: {10, false}, token.MINUS: {10, false},
	token.STAR: {11, false}, token.SLASH: {11, false}, token.PERCENT: {11, false},
}

func isBinaryOp(k token.Kind) bool {
	_, ok := prec[k]
	return ok
}

// parseExpr runs all three stages and returns the resulting tree, or nil
// if the expression is empty (e.g. the omitted clauses of a for-loop).
func (p *Parser) parseExpr(stop terminator) ast.Expr {
	items := p.collect(stop)
	if len(items) == 0 {
		return nil
	}
	postfix := shuntingYard(items)
	return buildTree(postfix)
}

// collect gathers a flat operand/operator sequence until stop reports
// true at paren-depth 0 or EOF is hit; it never sees the outer pair of
// parens belonging to the caller (e.g. `if (...)`) because those are
// consumed by the caller, not here.
func (p *Parser) collect(stop terminator) []item {
	var items []item
	for p.cur.Kind != token.EOF && !stop(p.cur.Kind) {
		if len(items) > 0 && items[len(items)-1].isOperand() {
			if !isBinaryOp(p.cur.Kind) {
				break
			}
			items = append(items, item{op: p.cur.Kind, tok: p.cur})
			p.consume()
			continue
		}
		leaf := p.parseUnary()
		if leaf == nil {
			return items
		}
		items = append(items, item{leaf: leaf})
	}
	if n := len(items); n > 0 && !items[n-1].isOperand() {
		p.diags.Syntactic(p.cur.Line, p.cur.Col, "expected an operand after %q", items[n-1].tok.Lexeme)
	}
	return items
}

// shuntingYard rearranges a collected sequence into postfix (RPN) order
// using the explicit precedence table above; there are no parenthesis
// tokens in the sequence since grouping was already resolved while
// building leaves, so the algorithm degenerates to a simple operator
// stack with no bracket handling.
func shuntingYard(items []item) []item {
	var output []item
	var opStack []item
	for _, it := range items {
		if it.isOperand() {
			output = append(output, it)
			continue
		}
		for len(opStack) > 0 {
			top := opStack[len(opStack)-1]
			topP, curP := prec[top.op], prec[it.op]
			if topP.level > curP.level || (topP.level == curP.level && !curP.right) {
				output = append(output, top)
				opStack = opStack[:len(opStack)-1]
				continue
			}
			break
		}
		opStack = append(opStack, it)
	}
	for len(opStack) > 0 {
		output = append(output, opStack[len(opStack)-1])
		opStack = opStack[:len(opStack)-1]
	}
	return output
}

// buildTree folds postfix items into a single expression tree: each
// operand pushes, each operator pops two operands and pushes the
// resulting node.
func buildTree(postfix []item) ast.Expr {
	var stack []ast.Expr
	for _, it := range postfix {
		if it.isOperand() {
			stack = append(stack, it.leaf)
			continue
		}
		if len(stack) < 2 {
			continue // malformed input already reported by the parser proper
		}
		right := stack[len(stack)-1]
		left := stack[len(stack)-2]
		stack = stack[:len(stack)-2]
		if it.op == token.ASSIGN || it.op.IsCompoundAssign() {
			stack = append(stack, ast.NewAssign(it.tok, it.op, left, right))
		} else {
			stack = append(stack, ast.NewBinary(it.tok, it.op, left, right))
		}
	}
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

// -----------------------------------------------------------------------
// Unary / postfix / primary (tight-binding leaves)

var unaryOps = map[token.Kind]bool{
	token.PLUS: true, token.MINUS: true, token.BANG: true, token.TILDE: true,
	token.AMP: true, token.STAR: true, token.INC: true, token.DEC: true,
}

func (p *Parser) parseUnary() ast.Expr {
	if p.cur.Kind == token.KW_SIZEOF {
		return p.parseSizeof()
	}
	if unaryOps[p.cur.Kind] {
		tok := p.cur
		op := p.cur.Kind
		p.consume()
		operand := p.parseUnary()
		return ast.NewUnary(tok, op, operand, false)
	}
	if p.cur.Kind == token.LPAREN && p.peekTok().Kind.IsTypeKeyword() {
		return p.parseCast()
	}
	return p.parsePostfix()
}

func (p *Parser) parseSizeof() ast.Expr {
	tok := p.cur
	p.consume()
	if p.cur.Kind == token.LPAREN && p.peekTok().Kind.IsTypeKeyword() {
		p.consume() // '('
		typ := p.parseTypeSpecifier()
		ptrLevel := 0
		for p.cur.Kind == token.STAR {
			ptrLevel++
			p.consume()
		}
		p.expect(token.RPAREN, "')'")
		return ast.NewSizeofType(tok, typ, ptrLevel)
	}
	return ast.NewSizeofExpr(tok, p.parseUnary())
}

func (p *Parser) parseCast() ast.Expr {
	tok := p.cur
	p.consume() // '('
	typ := p.parseTypeSpecifier()
	ptrLevel := 0
	for p.cur.Kind == token.STAR {
		ptrLevel++
		p.consume()
	}
	p.expect(token.RPAREN, "')'")
	return ast.NewCast(tok, typ, ptrLevel, p.parseUnary())
}

func (p *Parser) parsePostfix() ast.Expr {
	e := p.parsePrimaryLeaf()
	for {
		switch p.cur.Kind {
		case token.LPAREN:
			tok := p.cur
			p.consume()
			var args []ast.Expr
			if p.cur.Kind != token.RPAREN {
				for {
					args = append(args, p.parseExpr(isCallArgTerminator))
					if p.cur.Kind != token.COMMA {
						break
					}
					p.consume()
				}
			}
			p.expect(token.RPAREN, "')'")
			e = ast.NewCall(tok, e, args)
		case token.LBRACKET:
			tok := p.cur
			p.consume()
			idx := p.parseExpr(isBracketTerminator)
			p.expect(token.RBRACKET, "']'")
			e = ast.NewIndex(tok, e, idx)
		case token.DOT:
			tok := p.cur
			p.consume()
			name := ""
			if p.guarantee(p.cur.Kind == token.IDENT, "expected a member name") {
				name = p.cur.Lexeme
				p.consume()
			}
			e = ast.NewMember(tok, e, name, false)
		case token.ARROW:
			tok := p.cur
			p.consume()
			name := ""
			if p.guarantee(p.cur.Kind == token.IDENT, "expected a member name") {
				name = p.cur.Lexeme
				p.consume()
			}
			e = ast.NewMember(tok, e, name, true)
		case token.INC, token.DEC:
			tok := p.cur
			op := p.cur.Kind
			p.consume()
			e = ast.NewUnary(tok, op, e, true)
		default:
			return e
		}
	}
}

func isCallArgTerminator(k token.Kind) bool { return k == token.COMMA || k == token.RPAREN }
func isBracketTerminator(k token.Kind) bool { return k == token.RBRACKET }

func (p *Parser) parsePrimaryLeaf() ast.Expr {
	tok := p.cur
	switch tok.Kind {
	case token.LPAREN:
		p.consume()
		e := p.parseExpr(isParenTerminator)
		p.expect(token.RPAREN, "')'")
		return e
	case token.IDENT:
		p.consume()
		return ast.NewIdent(tok, tok.Lexeme)
	case token.LIT_INT_DEC, token.LIT_INT_OCT, token.LIT_INT_HEX, token.LIT_INT_BIN,
		token.LIT_FLOAT, token.LIT_CHAR, token.LIT_STRING:
		p.consume()
		return ast.NewPrimary(tok, tok.Kind, tok.Lexeme)
	default:
		p.diags.Syntactic(tok.Line, tok.Col, "unexpected token %q in expression", tok.Lexeme)
		p.consume()
		return nil
	}
}
