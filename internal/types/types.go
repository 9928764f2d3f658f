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

// Package types models TypeInfo, SymbolInfo, Record and FunctionInfo: a
// tagged simple-or-record type, and the symbol metadata the parser fills
// in through the "last inserted" handle pattern.
package types

import "xlang/internal/token"

type TypeTag int

const (
	TagSimple TypeTag = iota
	TagRecord
)

// TypeInfo is a tagged value: either a list of primitive keyword tokens
// (e.g. "unsigned int" style combinations such as "long int") or a record
// name token, plus the storage qualifier flags.
type TypeInfo struct {
	Tag        TypeTag
	Simple     []token.Token // one or more primitive-type keyword tokens
	RecordName token.Token   // valid when Tag == TagRecord

	IsConst  bool
	IsGlobal bool
	IsExtern bool
	IsStatic bool
}

// PrimitiveSize returns the storage size in bytes of a simple type, ignoring
// pointer/array wrapping (callers combine this with SymbolInfo.IsPtr /
// ArrayDims). Records look their size up in the record table.
func (t *TypeInfo) PrimitiveSize() int {
	if t.Tag != TagSimple || len(t.Simple) == 0 {
		return 0
	}
	// last simple keyword wins for combinations like "unsigned int"
	switch t.Simple[len(t.Simple)-1].Kind {
	case token.KW_CHAR:
		return 1
	case token.KW_SHORT:
		return 2
	case token.KW_INT, token.KW_FLOAT:
		return 4
	case token.KW_LONG, token.KW_DOUBLE:
		return 8
	case token.KW_VOID:
		return 0
	}
	return 4
}

func (t *TypeInfo) IsFloatKind() bool {
	if t.Tag != TagSimple {
		return false
	}
	for _, tk := range t.Simple {
		if tk.Kind == token.KW_FLOAT || tk.Kind == token.KW_DOUBLE {
			return true
		}
	}
	return false
}

func (t *TypeInfo) IsVoidKind() bool {
	return t.Tag == TagSimple && len(t.Simple) == 1 && t.Simple[0].Kind == token.KW_VOID
}

// RecordTypeInfo names a record type plus its pointer level, used for
// function-pointer parameter signatures (SymbolInfo.FPParams).
type RecordTypeInfo struct {
	Type     TypeInfo
	PtrLevel int
}

// SymbolInfo is one binding inside a SymbolTable: a declared name together
// with its full declared shape.
type SymbolInfo struct {
	Name        string
	Tok         token.Token
	Type        TypeInfo
	IsPtr       bool
	PtrLevel    int
	IsArray     bool
	ArrayDims   []token.Token   // invariant: IsArray => len(ArrayDims) > 0
	ArrayInit   [][]token.Token // nested initializer lists, row-major flattened at emission
	IsFuncPtr   bool
	FPReturnPtrLevel int
	FPParams    []RecordTypeInfo

	// Frame layout, filled in by codegen: negative for locals, positive
	// for parameters, offset from ebp.
	FPDisp int
	// Number of references across the function, used by the optimizer's
	// dead-code elimination pass.
	RefCount int
}

// Record models a user-defined record (struct) type: its own member
// symbol table.
type Record struct {
	Name     string
	Tok      token.Token
	IsGlobal bool
	IsExtern bool
	Members  MemberTable
}

// MemberTable is the minimal table interface Record needs; symtab.Table
// satisfies it. Declared here (not imported from symtab) to avoid an
// import cycle, since symtab imports this package (symtab.RecordTable
// stores *Record values).
type MemberTable interface {
	Insert(name string) *SymbolInfo
	Search(name string) *SymbolInfo
}

// FunctionInfo describes one function's signature and storage class.
type FunctionInfo struct {
	Name           string
	Tok            token.Token
	IsGlobal       bool
	IsExtern       bool
	ReturnType     TypeInfo
	ReturnPtrLevel int
	Params         []Param
}

type Param struct {
	Type   TypeInfo
	Symbol *SymbolInfo
}
