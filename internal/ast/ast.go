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

// Package ast defines the expression and statement node zoo built by the
// parser: a small tagged-union style where every concrete node embeds a
// base carrying position and (for expressions) resolved type, and every
// statement list is a doubly-linked chain rather than a slice so the
// optimizer and code generator can splice nodes in place.
package ast

import (
	"fmt"
	"strings"

	"xlang/internal/token"
	"xlang/internal/types"
)

// Node is satisfied by every expression and statement.
type Node interface {
	fmt.Stringer
	Pos() token.Token
}

// Expr is one node of an expression tree. Every binary-operator subtree
// is built by the parser's shunting-yard stage from postfix order, never
// directly by recursive descent.
type Expr interface {
	Node
	exprNode()
	GetType() types.TypeInfo
	SetType(types.TypeInfo)
}

type exprBase struct {
	Tok token.Token
	Typ types.TypeInfo
}

func (e *exprBase) Pos() token.Token          { return e.Tok }
func (e *exprBase) GetType() types.TypeInfo   { return e.Typ }
func (e *exprBase) SetType(t types.TypeInfo)  { e.Typ = t }
func (*exprBase) exprNode()                   {}

// PrimaryExpr is an integer, float, char, or string literal.
type PrimaryExpr struct {
	exprBase
	Kind  token.Kind // one of the LIT_* kinds
	Value string     // raw lexeme; decoding happens in codegen/analyzer
}

func (p *PrimaryExpr) String() string { return p.Value }

// IdentExpr references a declared name, resolved to a *types.SymbolInfo
// by the analyzer (nil until then).
type IdentExpr struct {
	exprBase
	Name string
	Sym  *types.SymbolInfo
}

func (i *IdentExpr) String() string { return i.Name }

// UnaryExpr covers prefix/postfix -, !, ~, &, *, ++, --. Postfix is
// distinguished by Postfix.
type UnaryExpr struct {
	exprBase
	Op      token.Kind
	Operand Expr
	Postfix bool
}

func (u *UnaryExpr) String() string {
	if u.Postfix {
		return fmt.Sprintf("(%s%s)", u.Operand, u.Op)
	}
	return fmt.Sprintf("(%s%s)", u.Op, u.Operand)
}

// BinaryExpr is one internal node of the tree the parser's shunting-yard
// stage reconstructs from postfix token order: Left and Right are
// themselves arbitrary subtrees, never raw token lists.
type BinaryExpr struct {
	exprBase
	Op          token.Kind
	Left, Right Expr
}

func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// AssignExpr is `lhs = rhs` or a compound assignment, kept distinct from
// BinaryExpr. The parser builds it with the compound kind left in Op; no
// pass rewrites it, and codegen expands `lhs op= rhs` into
// `lhs = lhs op rhs` when it lowers the node.
type AssignExpr struct {
	exprBase
	Op          token.Kind // ASSIGN or one of the *_ASSIGN kinds
	Left, Right Expr
}

func (a *AssignExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", a.Left, a.Op, a.Right)
}

// IndexExpr is `base[index]`.
type IndexExpr struct {
	exprBase
	Base  Expr
	Index Expr
}

func (x *IndexExpr) String() string { return fmt.Sprintf("%s[%s]", x.Base, x.Index) }

// MemberExpr is `base.field` or `base->field`; Arrow distinguishes them
// since -> additionally dereferences.
type MemberExpr struct {
	exprBase
	Base  Expr
	Field string
	Arrow bool
}

func (m *MemberExpr) String() string {
	if m.Arrow {
		return fmt.Sprintf("%s->%s", m.Base, m.Field)
	}
	return fmt.Sprintf("%s.%s", m.Base, m.Field)
}

// CallExpr is a function call; Args preserves left-to-right source order,
// though codegen evaluates them right-to-left.
type CallExpr struct {
	exprBase
	Callee Expr
	Args   []Expr
}

func (c *CallExpr) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Callee, strings.Join(parts, ", "))
}

// CastExpr is `(type)expr`.
type CastExpr struct {
	exprBase
	Target   types.TypeInfo
	PtrLevel int
	Operand  Expr
}

func (c *CastExpr) String() string { return fmt.Sprintf("(cast)%s", c.Operand) }

// SizeofExpr is `sizeof(type)` or `sizeof(expr)`; exactly one of OfType /
// OfExpr is set.
type SizeofExpr struct {
	exprBase
	OfType   *types.TypeInfo
	PtrLevel int
	OfExpr   Expr
}

func (s *SizeofExpr) String() string {
	if s.OfExpr != nil {
		return fmt.Sprintf("sizeof(%s)", s.OfExpr)
	}
	return "sizeof(type)"
}

// Constructors. exprBase/stmtBase are unexported so other packages (the
// parser, chiefly) build nodes through these rather than composite
// literals naming the embedded base directly.

func NewPrimary(tok token.Token, kind token.Kind, value string) *PrimaryExpr {
	return &PrimaryExpr{exprBase: exprBase{Tok: tok}, Kind: kind, Value: value}
}

func NewIdent(tok token.Token, name string) *IdentExpr {
	return &IdentExpr{exprBase: exprBase{Tok: tok}, Name: name}
}

func NewUnary(tok token.Token, op token.Kind, operand Expr, postfix bool) *UnaryExpr {
	return &UnaryExpr{exprBase: exprBase{Tok: tok}, Op: op, Operand: operand, Postfix: postfix}
}

func NewBinary(tok token.Token, op token.Kind, left, right Expr) *BinaryExpr {
	return &BinaryExpr{exprBase: exprBase{Tok: tok}, Op: op, Left: left, Right: right}
}

func NewAssign(tok token.Token, op token.Kind, left, right Expr) *AssignExpr {
	return &AssignExpr{exprBase: exprBase{Tok: tok}, Op: op, Left: left, Right: right}
}

func NewIndex(tok token.Token, base, index Expr) *IndexExpr {
	return &IndexExpr{exprBase: exprBase{Tok: tok}, Base: base, Index: index}
}

func NewMember(tok token.Token, base Expr, field string, arrow bool) *MemberExpr {
	return &MemberExpr{exprBase: exprBase{Tok: tok}, Base: base, Field: field, Arrow: arrow}
}

func NewCall(tok token.Token, callee Expr, args []Expr) *CallExpr {
	return &CallExpr{exprBase: exprBase{Tok: tok}, Callee: callee, Args: args}
}

func NewCast(tok token.Token, target types.TypeInfo, ptrLevel int, operand Expr) *CastExpr {
	return &CastExpr{exprBase: exprBase{Tok: tok}, Target: target, PtrLevel: ptrLevel, Operand: operand}
}

func NewSizeofType(tok token.Token, of types.TypeInfo, ptrLevel int) *SizeofExpr {
	return &SizeofExpr{exprBase: exprBase{Tok: tok}, OfType: &of, PtrLevel: ptrLevel}
}

func NewSizeofExpr(tok token.Token, of Expr) *SizeofExpr {
	return &SizeofExpr{exprBase: exprBase{Tok: tok}, OfExpr: of}
}

// -----------------------------------------------------------------------
// Statements

// Stmt is one statement in a block's doubly-linked list.
type Stmt interface {
	Node
	stmtNode()
	next() Stmt
	prev() Stmt
	setNext(Stmt)
	setPrev(Stmt)
}

type stmtBase struct {
	Tok      token.Token
	Nxt, Prv Stmt
}

func (s *stmtBase) Pos() token.Token   { return s.Tok }
func (*stmtBase) stmtNode()            {}
func (s *stmtBase) next() Stmt         { return s.Nxt }
func (s *stmtBase) prev() Stmt         { return s.Prv }
func (s *stmtBase) setNext(n Stmt)     { s.Nxt = n }
func (s *stmtBase) setPrev(p Stmt)     { s.Prv = p }

// Next/Prev/InsertAfter/Remove are free functions (not methods) so every
// concrete Stmt type gets list behavior for free through stmtBase without
// needing its own linking logic.

func Next(s Stmt) Stmt { return s.next() }
func Prev(s Stmt) Stmt { return s.prev() }

// InsertAfter splices n immediately after s in the list.
func InsertAfter(s, n Stmt) {
	old := s.next()
	s.setNext(n)
	n.setPrev(s)
	n.setNext(old)
	if old != nil {
		old.setPrev(n)
	}
}

// Remove unlinks s from its list, used by the optimizer's dead-code pass.
func Remove(s Stmt) {
	p, n := s.prev(), s.next()
	if p != nil {
		p.setNext(n)
	}
	if n != nil {
		n.setPrev(p)
	}
	s.setNext(nil)
	s.setPrev(nil)
}

// LabelStmt marks a goto target.
type LabelStmt struct {
	stmtBase
	Name string
}

func (l *LabelStmt) String() string { return l.Name + ":" }

// ExprStmt wraps a bare expression statement (e.g. a call or assignment).
type ExprStmt struct {
	stmtBase
	X Expr
}

func (e *ExprStmt) String() string { return e.X.String() + ";" }

// IfStmt is `if (Cond) Then [else Else]`.
type IfStmt struct {
	stmtBase
	Cond       Expr
	Then, Else *Block
}

func (i *IfStmt) String() string { return fmt.Sprintf("if (%s) {...}", i.Cond) }

// IterKind distinguishes while/do-while/for, which share one lowering
// shape (condition + body + optional post-step) in codegen.
type IterKind int

const (
	IterWhile IterKind = iota
	IterDoWhile
	IterFor
)

// IterStmt unifies while, do-while and for: Init/Post are nil unless
// Kind == IterFor.
type IterStmt struct {
	stmtBase
	Kind       IterKind
	Init       Stmt // for-loop init clause, itself an ExprStmt or DeclStmt
	Cond       Expr
	Post       Expr
	Body       *Block
	BreakLabel string
	ContLabel  string
}

func (w *IterStmt) String() string { return "loop {...}" }

// JumpKind distinguishes break/continue/return/goto, which otherwise
// share the same node shape (a statement with an optional payload).
type JumpKind int

const (
	JumpBreak JumpKind = iota
	JumpContinue
	JumpReturn
	JumpGoto
)

type JumpStmt struct {
	stmtBase
	Kind  JumpKind
	Value Expr   // set for JumpReturn with a non-void operand
	Label string // set for JumpGoto
}

func (j *JumpStmt) String() string {
	switch j.Kind {
	case JumpBreak:
		return "break;"
	case JumpContinue:
		return "continue;"
	case JumpReturn:
		if j.Value != nil {
			return fmt.Sprintf("return %s;", j.Value)
		}
		return "return;"
	default:
		return fmt.Sprintf("goto %s;", j.Label)
	}
}

// AsmOperand is one `"constraint"(expr)` pair inside an inline asm block.
type AsmOperand struct {
	Constraint string
	Value      Expr
}

// AsmStmt is an `asm("template", "constraint"(expr), ...);` statement: a
// literal template string with %0, %1, ... placeholders substituted from
// Operands at codegen time. The braced `asm { ... }` form is not parsed.
type AsmStmt struct {
	stmtBase
	Template string
	Operands []AsmOperand
}

func (a *AsmStmt) String() string { return "asm {...}" }

// DeclStmt declares one or more local variables inside a block.
type DeclStmt struct {
	stmtBase
	Type  types.TypeInfo
	Names []*types.SymbolInfo
}

func (d *DeclStmt) String() string { return "decl;" }

func NewLabel(tok token.Token, name string) *LabelStmt {
	return &LabelStmt{stmtBase: stmtBase{Tok: tok}, Name: name}
}

func NewExprStmt(tok token.Token, x Expr) *ExprStmt {
	return &ExprStmt{stmtBase: stmtBase{Tok: tok}, X: x}
}

func NewIf(tok token.Token, cond Expr, then, els *Block) *IfStmt {
	return &IfStmt{stmtBase: stmtBase{Tok: tok}, Cond: cond, Then: then, Else: els}
}

func NewIter(tok token.Token, kind IterKind, init Stmt, cond, post Expr, body *Block) *IterStmt {
	return &IterStmt{stmtBase: stmtBase{Tok: tok}, Kind: kind, Init: init, Cond: cond, Post: post, Body: body}
}

func NewJump(tok token.Token, kind JumpKind, value Expr, label string) *JumpStmt {
	return &JumpStmt{stmtBase: stmtBase{Tok: tok}, Kind: kind, Value: value, Label: label}
}

func NewAsm(tok token.Token, template string, operands []AsmOperand) *AsmStmt {
	return &AsmStmt{stmtBase: stmtBase{Tok: tok}, Template: template, Operands: operands}
}

func NewDecl(tok token.Token, typ types.TypeInfo, names []*types.SymbolInfo) *DeclStmt {
	return &DeclStmt{stmtBase: stmtBase{Tok: tok}, Type: typ, Names: names}
}

// Block is a doubly-linked statement list paired with the (optional)
// local symbol table that owns the names declared directly inside it.
type Block struct {
	Head, Tail Stmt
	Locals     MemberTable
}

// MemberTable is the minimal table interface a Block's local scope needs;
// symtab.Table satisfies it. Declared here to avoid an import cycle with
// symtab, mirroring types.MemberTable.
type MemberTable interface {
	Insert(name string) *types.SymbolInfo
	Search(name string) *types.SymbolInfo
}

// Append adds s to the end of b's statement list.
func (b *Block) Append(s Stmt) {
	if b.Head == nil {
		b.Head = s
		b.Tail = s
		return
	}
	InsertAfter(b.Tail, s)
	b.Tail = s
}

// Walk visits every statement in the block in order.
func (b *Block) Walk(fn func(Stmt)) {
	for s := b.Head; s != nil; s = Next(s) {
		fn(s)
	}
}

// -----------------------------------------------------------------------
// Top-level declarations

// Section names the NASM output section a top-level declaration targets,
// mirroring .text/.data/.bss.
type Section int

const (
	SectionText Section = iota
	SectionData
	SectionBSS
)

// FuncDecl is a top-level function definition (or prototype, if Body is
// nil for an extern declaration).
type FuncDecl struct {
	Tok  token.Token
	Info *types.FunctionInfo
	Body *Block
}

func (f *FuncDecl) Pos() token.Token { return f.Tok }
func (f *FuncDecl) String() string   { return "func " + f.Info.Name }

// RecordDecl is a top-level `record Name { ... }` definition.
type RecordDecl struct {
	Tok token.Token
	Rec *types.Record
}

func (r *RecordDecl) Pos() token.Token { return r.Tok }
func (r *RecordDecl) String() string   { return "record " + r.Rec.Name }

// GlobalDecl is a top-level variable declaration outside any function.
type GlobalDecl struct {
	Tok  token.Token
	Sym  *types.SymbolInfo
	Init Expr
}

func (g *GlobalDecl) Pos() token.Token { return g.Tok }
func (g *GlobalDecl) String() string   { return "global " + g.Sym.Name }

// File is the parse result for one translation unit: its function, record
// and global declarations, each kind kept in source order in its own slice.
type File struct {
	Name  string
	Funcs   []*FuncDecl
	Records []*RecordDecl
	Globals []*GlobalDecl
}
