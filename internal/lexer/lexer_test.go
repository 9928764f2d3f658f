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

package lexer

import (
	"strings"
	"testing"

	"xlang/internal/diag"
	"xlang/internal/token"
)

func allTokens(src string) []token.Token {
	l := New("t.xl", strings.NewReader(src), diag.NewSink("t.xl"))
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func kinds(toks []token.Token) []token.Kind {
	ks := make([]token.Kind, len(toks))
	for i, t := range toks {
		ks[i] = t.Kind
	}
	return ks
}

func TestScanOperators(t *testing.T) {
	toks := allTokens("+ += ++ - -= -- -> << <<= >> >>= <= >= == != && ||")
	want := []token.Kind{
		token.PLUS, token.PLUS_ASSIGN, token.INC,
		token.MINUS, token.MINUS_ASSIGN, token.DEC, token.ARROW,
		token.LSHIFT, token.LSHIFT_ASSIGN, token.RSHIFT, token.RSHIFT_ASSIGN,
		token.LE, token.GE, token.EQ, token.NE, token.LOGAND, token.LOGOR,
		token.EOF,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScanKeywordVsIdent(t *testing.T) {
	toks := allTokens("int record foo_bar")
	if toks[0].Kind != token.KW_INT {
		t.Fatalf("expected KW_INT, got %v", toks[0].Kind)
	}
	if toks[1].Kind != token.KW_RECORD {
		t.Fatalf("expected KW_RECORD, got %v", toks[1].Kind)
	}
	if toks[2].Kind != token.IDENT || toks[2].Lexeme != "foo_bar" {
		t.Fatalf("expected IDENT foo_bar, got %v %q", toks[2].Kind, toks[2].Lexeme)
	}
}

func TestScanIntLiteralRadixes(t *testing.T) {
	toks := allTokens("10 0x1F 0b101 017")
	wantKinds := []token.Kind{token.LIT_INT_DEC, token.LIT_INT_HEX, token.LIT_INT_BIN, token.LIT_INT_OCT}
	for i, k := range wantKinds {
		if toks[i].Kind != k {
			t.Fatalf("literal %d: got kind %v, want %v (lexeme %q)", i, toks[i].Kind, k, toks[i].Lexeme)
		}
	}
}

func TestScanFloatLiteral(t *testing.T) {
	toks := allTokens("3.14")
	if toks[0].Kind != token.LIT_FLOAT || toks[0].Lexeme != "3.14" {
		t.Fatalf("got %v %q, want LIT_FLOAT \"3.14\"", toks[0].Kind, toks[0].Lexeme)
	}
}

func TestScanStringEscapes(t *testing.T) {
	toks := allTokens(`"hi\n\"there\""`)
	if toks[0].Kind != token.LIT_STRING {
		t.Fatalf("expected LIT_STRING, got %v", toks[0].Kind)
	}
	want := "hi\n\"there\""
	if toks[0].Lexeme != want {
		t.Fatalf("got lexeme %q, want %q", toks[0].Lexeme, want)
	}
}

func TestScanCharLiteral(t *testing.T) {
	toks := allTokens(`'a' '\n' '\''`)
	if toks[0].Lexeme != "a" {
		t.Fatalf("got %q, want \"a\"", toks[0].Lexeme)
	}
	if toks[1].Lexeme != "\n" {
		t.Fatalf("got %q, want newline", toks[1].Lexeme)
	}
	if toks[2].Lexeme != "'" {
		t.Fatalf("got %q, want single quote", toks[2].Lexeme)
	}
}

func TestSkipLineAndBlockComments(t *testing.T) {
	toks := allTokens("x // trailing comment\n/* block\ncomment */ y")
	if toks[0].Lexeme != "x" || toks[1].Lexeme != "y" {
		t.Fatalf("got %v, want [x y eof]", toks)
	}
}

func TestPutbackPriorityOrder(t *testing.T) {
	l := New("t.xl", strings.NewReader("a b"), diag.NewSink("t.xl"))
	first := l.Next() // a
	second := l.Next() // b
	l.Putback(second)
	l.PutbackPriority(first)
	if got := l.Next(); got.Lexeme != "a" {
		t.Fatalf("expected priority putback 'a' first, got %q", got.Lexeme)
	}
	if got := l.Next(); got.Lexeme != "b" {
		t.Fatalf("expected 'b' second, got %q", got.Lexeme)
	}
}

func TestUnterminatedStringReportsDiagnostic(t *testing.T) {
	sink := diag.NewSink("t.xl")
	l := New("t.xl", strings.NewReader(`"never closed`), sink)
	l.Next()
	if sink.ErrorCount() == 0 {
		t.Fatalf("expected a lexical diagnostic for an unterminated string")
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	toks := allTokens("a\nbb")
	if toks[0].Line != 1 || toks[0].Col != 1 {
		t.Fatalf("token 'a' at %d:%d, want 1:1", toks[0].Line, toks[0].Col)
	}
	if toks[1].Line != 2 {
		t.Fatalf("token 'bb' at line %d, want line 2", toks[1].Line)
	}
}
