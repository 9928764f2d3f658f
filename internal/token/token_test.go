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

package token

import "testing"

func TestIsTypeKeyword(t *testing.T) {
	for _, k := range []Kind{KW_INT, KW_CHAR, KW_FLOAT, KW_DOUBLE, KW_SHORT, KW_LONG, KW_VOID} {
		if !k.IsTypeKeyword() {
			t.Fatalf("expected %v to be a type keyword", k)
		}
	}
	if KW_IF.IsTypeKeyword() {
		t.Fatalf("KW_IF should not be a type keyword")
	}
}

func TestIsStorageQualifier(t *testing.T) {
	for _, k := range []Kind{KW_GLOBAL, KW_EXTERN, KW_STATIC, KW_CONST} {
		if !k.IsStorageQualifier() {
			t.Fatalf("expected %v to be a storage qualifier", k)
		}
	}
	if KW_INT.IsStorageQualifier() {
		t.Fatalf("KW_INT should not be a storage qualifier")
	}
}

func TestCompoundAssignRoundtrip(t *testing.T) {
	cases := map[Kind]Kind{
		PLUS_ASSIGN: PLUS, MINUS_ASSIGN: MINUS, STAR_ASSIGN: STAR,
		SLASH_ASSIGN: SLASH, PERCENT_ASSIGN: PERCENT, AMP_ASSIGN: AMP,
		PIPE_ASSIGN: PIPE, CARET_ASSIGN: CARET,
		LSHIFT_ASSIGN: LSHIFT, RSHIFT_ASSIGN: RSHIFT,
	}
	for compound, plain := range cases {
		if !compound.IsCompoundAssign() {
			t.Fatalf("%v should be a compound assign", compound)
		}
		if got := compound.BinaryOpFor(); got != plain {
			t.Fatalf("BinaryOpFor(%v) = %v, want %v", compound, got, plain)
		}
	}
	if ASSIGN.IsCompoundAssign() {
		t.Fatalf("plain ASSIGN should not be compound")
	}
	if PLUS.BinaryOpFor() != PLUS {
		t.Fatalf("BinaryOpFor on a non-compound kind should be identity")
	}
}

func TestKeywordLookup(t *testing.T) {
	if Keywords["return"] != KW_RETURN {
		t.Fatalf("expected 'return' to map to KW_RETURN")
	}
	if _, ok := Keywords["notakeyword"]; ok {
		t.Fatalf("unexpected keyword match")
	}
}

func TestTokenString(t *testing.T) {
	tok := Token{Kind: IDENT, Lexeme: "x", Line: 3, Col: 7}
	got := tok.String()
	want := `[<identifier> "x" 3:7]`
	if got != want {
		t.Fatalf("Token.String() = %q, want %q", got, want)
	}
}
