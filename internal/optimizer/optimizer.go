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

// Package optimizer rewrites an analyzed AST in place: constant folding,
// common subexpression elimination within a single expression tree,
// power-of-two strength reduction, and reference-counted dead-code
// elimination of unused locals. It is an optional pass the driver only
// invokes when asked to optimize.
package optimizer

import (
	"strconv"

	"xlang/internal/ast"
	"xlang/internal/diag"
	"xlang/internal/symtab"
	"xlang/internal/token"
)

type Optimizer struct {
	diags *diag.Sink
}

func New(diags *diag.Sink) *Optimizer {
	return &Optimizer{diags: diags}
}

// Run optimizes every function body in file.
func (o *Optimizer) Run(file *ast.File) {
	for _, fn := range file.Funcs {
		if fn.Body == nil {
			continue
		}
		fn.Body.Walk(func(s ast.Stmt) { o.rewriteStmt(s) })
		o.eliminateDeadLocals(fn)
	}
}

func (o *Optimizer) rewriteStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.ExprStmt:
		st.X = o.fold(st.X)
	case *ast.IfStmt:
		st.Cond = o.fold(st.Cond)
	case *ast.IterStmt:
		if st.Cond != nil {
			st.Cond = o.fold(st.Cond)
		}
		if st.Post != nil {
			st.Post = o.fold(st.Post)
		}
	case *ast.JumpStmt:
		if st.Value != nil {
			st.Value = o.fold(st.Value)
		}
	}
}

// fold applies constant folding, CSE, and strength reduction bottom-up,
// returning a possibly-replaced subtree.
func (o *Optimizer) fold(e ast.Expr) ast.Expr {
	switch x := e.(type) {
	case *ast.BinaryExpr:
		x.Left = o.fold(x.Left)
		x.Right = o.fold(x.Right)
		if folded := o.foldConstant(x); folded != nil {
			return folded
		}
		if reduced := o.strengthReduce(x); reduced != nil {
			return reduced
		}
		if cse := o.commonSubexpr(x); cse != nil {
			return cse
		}
		return x
	case *ast.AssignExpr:
		x.Right = o.fold(x.Right)
		return x
	case *ast.UnaryExpr:
		x.Operand = o.fold(x.Operand)
		return x
	case *ast.CallExpr:
		for i, arg := range x.Args {
			x.Args[i] = o.fold(arg)
		}
		return x
	case *ast.IndexExpr:
		x.Index = o.fold(x.Index)
		return x
	case *ast.CastExpr:
		x.Operand = o.fold(x.Operand)
		return x
	default:
		return e
	}
}

// foldConstant evaluates a BinaryExpr whose both operands are literal
// primaries. Arithmetic runs in float64 if either leaf is a float
// literal, otherwise in int64; a compile-time division or modulo by
// zero is reported rather than silently producing the original tree.
func (o *Optimizer) foldConstant(x *ast.BinaryExpr) ast.Expr {
	left, lok := x.Left.(*ast.PrimaryExpr)
	right, rok := x.Right.(*ast.PrimaryExpr)
	if !lok || !rok || !isNumeric(left) || !isNumeric(right) {
		return nil
	}
	if left.Kind == token.LIT_FLOAT || right.Kind == token.LIT_FLOAT {
		lv, rv := parseFloat(left), parseFloat(right)
		if (x.Op == token.SLASH || x.Op == token.PERCENT) && rv == 0 {
			o.diags.Semantic(x.Tok.Line, x.Tok.Col, "division by zero in constant expression")
			return nil
		}
		result, ok := applyFloat(x.Op, lv, rv)
		if !ok {
			return nil
		}
		return ast.NewPrimary(x.Tok, token.LIT_FLOAT, strconv.FormatFloat(result, 'g', -1, 64))
	}
	lv, rv := parseInt(left), parseInt(right)
	if (x.Op == token.SLASH || x.Op == token.PERCENT) && rv == 0 {
		o.diags.Semantic(x.Tok.Line, x.Tok.Col, "division by zero in constant expression")
		return nil
	}
	result, ok := applyInt(x.Op, lv, rv)
	if !ok {
		return nil
	}
	text := strconv.FormatInt(result, 10)
	kind := token.LIT_INT_DEC
	if result < 0 {
		text = "-0x" + strconv.FormatInt(-result, 16)
		kind = token.LIT_INT_HEX
	}
	return ast.NewPrimary(x.Tok, kind, text)
}

func isNumeric(p *ast.PrimaryExpr) bool {
	switch p.Kind {
	case token.LIT_INT_DEC, token.LIT_INT_OCT, token.LIT_INT_HEX, token.LIT_INT_BIN, token.LIT_FLOAT, token.LIT_CHAR:
		return true
	}
	return false
}

func parseFloat(p *ast.PrimaryExpr) float64 {
	v, _ := strconv.ParseFloat(p.Value, 64)
	return v
}

func parseInt(p *ast.PrimaryExpr) int64 {
	base := 10
	s := p.Value
	switch p.Kind {
	case token.LIT_INT_HEX:
		base = 16
	case token.LIT_INT_OCT:
		base = 8
	case token.LIT_INT_BIN:
		base = 2
	}
	v, _ := strconv.ParseInt(s, base, 64)
	return v
}

func applyFloat(op token.Kind, l, r float64) (float64, bool) {
	switch op {
	case token.PLUS:
		return l + r, true
	case token.MINUS:
		return l - r, true
	case token.STAR:
		return l * r, true
	case token.SLASH:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	}
	return 0, false
}

func applyInt(op token.Kind, l, r int64) (int64, bool) {
	switch op {
	case token.PLUS:
		return l + r, true
	case token.MINUS:
		return l - r, true
	case token.STAR:
		return l * r, true
	case token.SLASH:
		return l / r, true
	case token.PERCENT:
		return l % r, true
	case token.AMP:
		return l & r, true
	case token.PIPE:
		return l | r, true
	case token.CARET:
		return l ^ r, true
	case token.LSHIFT:
		return l << uint(r), true
	case token.RSHIFT:
		return l >> uint(r), true
	}
	return 0, false
}

// strengthReduce rewrites x*k, x/k, x%k for a power-of-two literal k into
// a shift or mask, when x itself is not a constant (constants were
// already handled by foldConstant).
func (o *Optimizer) strengthReduce(x *ast.BinaryExpr) ast.Expr {
	lit, litOnRight := x.Right.(*ast.PrimaryExpr)
	operand := x.Left
	if !litOnRight || !isNumeric(lit) || lit.Kind == token.LIT_FLOAT {
		return nil
	}
	k := parseInt(lit)
	if k <= 0 || k&(k-1) != 0 {
		return nil
	}
	shift := int64(0)
	for v := k; v > 1; v >>= 1 {
		shift++
	}
	switch x.Op {
	case token.STAR:
		return ast.NewBinary(x.Tok, token.LSHIFT, operand, ast.NewPrimary(x.Tok, token.LIT_INT_DEC, strconv.FormatInt(shift, 10)))
	case token.SLASH:
		return ast.NewBinary(x.Tok, token.RSHIFT, operand, ast.NewPrimary(x.Tok, token.LIT_INT_DEC, strconv.FormatInt(shift, 10)))
	case token.PERCENT:
		return ast.NewBinary(x.Tok, token.AMP, operand, ast.NewPrimary(x.Tok, token.LIT_INT_DEC, strconv.FormatInt(k-1, 10)))
	}
	return nil
}

// commonSubexpr detects `(A) op (A)` by comparing the rendered form of
// both subtrees. Redundant right-hand duplicates are replaced by the
// left subtree, so both operands point at one shared node; codegen still
// lowers each operand separately.
func (o *Optimizer) commonSubexpr(x *ast.BinaryExpr) ast.Expr {
	if x.Left.String() == x.Right.String() {
		x.Right = x.Left
	}
	return nil
}

// eliminateDeadLocals drops locals that are never referenced once the
// function body has been fully walked; RefCount is accumulated by the
// analyzer's name resolution, so this pass only needs to consult it.
func (o *Optimizer) eliminateDeadLocals(fn *ast.FuncDecl) {
	locals, ok := fn.Body.Locals.(*symtab.Table)
	if !ok {
		return
	}
	fn.Body.Walk(func(s ast.Stmt) {
		decl, ok := s.(*ast.DeclStmt)
		if !ok {
			return
		}
		live := decl.Names[:0]
		for _, sym := range decl.Names {
			if sym.RefCount > 0 {
				live = append(live, sym)
				continue
			}
			locals.Remove(sym.Name)
		}
		decl.Names = live
	})
}
