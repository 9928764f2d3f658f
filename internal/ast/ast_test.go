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

package ast

import (
	"testing"

	"xlang/internal/token"
)

func ident(name string) *IdentExpr { return NewIdent(token.Token{Lexeme: name}, name) }

func TestBlockAppendAndWalk(t *testing.T) {
	b := &Block{}
	s1 := NewExprStmt(token.Token{}, ident("a"))
	s2 := NewExprStmt(token.Token{}, ident("b"))
	s3 := NewExprStmt(token.Token{}, ident("c"))
	b.Append(s1)
	b.Append(s2)
	b.Append(s3)

	var order []string
	b.Walk(func(s Stmt) { order = append(order, s.(*ExprStmt).X.(*IdentExpr).Name) })
	want := []string{"a", "b", "c"}
	for i, n := range want {
		if order[i] != n {
			t.Fatalf("walk order %v, want %v", order, want)
		}
	}
	if b.Head != Stmt(s1) || b.Tail != Stmt(s3) {
		t.Fatalf("expected head=s1 tail=s3")
	}
}

func TestInsertAfterAndRemove(t *testing.T) {
	b := &Block{}
	s1 := NewExprStmt(token.Token{}, ident("a"))
	s2 := NewExprStmt(token.Token{}, ident("b"))
	b.Append(s1)
	b.Append(s2)

	mid := NewExprStmt(token.Token{}, ident("mid"))
	InsertAfter(s1, mid)

	var order []string
	b.Walk(func(s Stmt) {
		// Walk follows Head via Next, so splicing after s1 is visible even
		// though b.Tail wasn't updated by InsertAfter directly.
		order = append(order, s.(*ExprStmt).X.(*IdentExpr).Name)
	})
	want := []string{"a", "mid", "b"}
	for i, n := range want {
		if order[i] != n {
			t.Fatalf("got order %v, want %v", order, want)
		}
	}

	Remove(mid)
	if Next(s1) != Stmt(s2) {
		t.Fatalf("expected s1.next == s2 after removing mid")
	}
	if Prev(s2) != Stmt(s1) {
		t.Fatalf("expected s2.prev == s1 after removing mid")
	}
}

func TestExprStringForms(t *testing.T) {
	lhs := ident("x")
	rhs := NewPrimary(token.Token{}, token.LIT_INT_DEC, "1")
	bin := NewBinary(token.Token{}, token.PLUS, lhs, rhs)
	if got, want := bin.String(), "(x + 1)"; got != want {
		t.Fatalf("BinaryExpr.String() = %q, want %q", got, want)
	}

	idx := NewIndex(token.Token{}, ident("arr"), NewPrimary(token.Token{}, token.LIT_INT_DEC, "0"))
	if got, want := idx.String(), "arr[0]"; got != want {
		t.Fatalf("IndexExpr.String() = %q, want %q", got, want)
	}

	m := NewMember(token.Token{}, ident("p"), "x", true)
	if got, want := m.String(), "p->x"; got != want {
		t.Fatalf("MemberExpr.String() = %q, want %q", got, want)
	}
	m2 := NewMember(token.Token{}, ident("p"), "x", false)
	if got, want := m2.String(), "p.x"; got != want {
		t.Fatalf("MemberExpr.String() (dot) = %q, want %q", got, want)
	}

	call := NewCall(token.Token{}, ident("f"), []Expr{lhs, rhs})
	if got, want := call.String(), "f(x, 1)"; got != want {
		t.Fatalf("CallExpr.String() = %q, want %q", got, want)
	}
}

func TestUnaryPrefixVsPostfix(t *testing.T) {
	x := ident("x")
	pre := NewUnary(token.Token{}, token.INC, x, false)
	if got, want := pre.String(), "(++x)"; got != want {
		t.Fatalf("prefix UnaryExpr.String() = %q, want %q", got, want)
	}
	post := NewUnary(token.Token{}, token.INC, x, true)
	if got, want := post.String(), "(x++)"; got != want {
		t.Fatalf("postfix UnaryExpr.String() = %q, want %q", got, want)
	}
}

func TestJumpStmtStringForms(t *testing.T) {
	if got := NewJump(token.Token{}, JumpBreak, nil, "").String(); got != "break;" {
		t.Fatalf("break String() = %q", got)
	}
	if got := NewJump(token.Token{}, JumpContinue, nil, "").String(); got != "continue;" {
		t.Fatalf("continue String() = %q", got)
	}
	if got := NewJump(token.Token{}, JumpReturn, nil, "").String(); got != "return;" {
		t.Fatalf("bare return String() = %q", got)
	}
	retVal := NewJump(token.Token{}, JumpReturn, ident("x"), "").String()
	if retVal != "return x;" {
		t.Fatalf("return with value String() = %q", retVal)
	}
	if got := NewJump(token.Token{}, JumpGoto, nil, "done").String(); got != "goto done;" {
		t.Fatalf("goto String() = %q", got)
	}
}
