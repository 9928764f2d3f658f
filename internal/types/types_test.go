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

package types

import (
	"testing"

	"xlang/internal/token"
)

func simple(kinds ...token.Kind) *TypeInfo {
	toks := make([]token.Token, len(kinds))
	for i, k := range kinds {
		toks[i] = token.Token{Kind: k}
	}
	return &TypeInfo{Tag: TagSimple, Simple: toks}
}

func TestPrimitiveSize(t *testing.T) {
	cases := []struct {
		ty   *TypeInfo
		want int
	}{
		{simple(token.KW_CHAR), 1},
		{simple(token.KW_SHORT), 2},
		{simple(token.KW_INT), 4},
		{simple(token.KW_FLOAT), 4},
		{simple(token.KW_LONG), 8},
		{simple(token.KW_DOUBLE), 8},
		{simple(token.KW_VOID), 0},
		{simple(token.KW_LONG, token.KW_INT), 4}, // last keyword wins
	}
	for _, c := range cases {
		if got := c.ty.PrimitiveSize(); got != c.want {
			t.Fatalf("PrimitiveSize(%v) = %d, want %d", c.ty.Simple, got, c.want)
		}
	}
	rec := &TypeInfo{Tag: TagRecord}
	if got := rec.PrimitiveSize(); got != 0 {
		t.Fatalf("PrimitiveSize on a record type = %d, want 0", got)
	}
}

func TestIsFloatKind(t *testing.T) {
	if !simple(token.KW_FLOAT).IsFloatKind() {
		t.Fatalf("expected float to report IsFloatKind")
	}
	if !simple(token.KW_DOUBLE).IsFloatKind() {
		t.Fatalf("expected double to report IsFloatKind")
	}
	if simple(token.KW_INT).IsFloatKind() {
		t.Fatalf("expected int to not report IsFloatKind")
	}
}

func TestIsVoidKind(t *testing.T) {
	if !simple(token.KW_VOID).IsVoidKind() {
		t.Fatalf("expected void to report IsVoidKind")
	}
	if simple(token.KW_INT).IsVoidKind() {
		t.Fatalf("expected int to not report IsVoidKind")
	}
	if simple(token.KW_LONG, token.KW_VOID).IsVoidKind() {
		t.Fatalf("a multi-keyword combination should never be void")
	}
}

func TestMemberTableInterfaceShape(t *testing.T) {
	// Record.Members is declared as the MemberTable interface precisely so
	// that *symtab.Table can be stored there without an import cycle; this
	// just pins the interface shape against accidental drift.
	var _ MemberTable = (*fakeMemberTable)(nil)
}

type fakeMemberTable struct{}

func (fakeMemberTable) Insert(name string) *SymbolInfo { return &SymbolInfo{Name: name} }
func (fakeMemberTable) Search(name string) *SymbolInfo { return nil }
