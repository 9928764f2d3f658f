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

// Package analyzer validates an ast.AsmOperand's constraint string with a
// small goparsec grammar: an optional '=' (write-only) or '+'
// (read-write) marker followed by one or more comma-separated register
// class letters.
package analyzer

import (
	pc "github.com/prataprc/goparsec"
)

// ConstraintKind classifies how an operand participates in an inline asm
// block: as an input, an output, or both.
type ConstraintKind int

const (
	ConstraintInput ConstraintKind = iota
	ConstraintOutput
	ConstraintInOut
)

// Constraint is the decoded form of one operand's constraint string.
type Constraint struct {
	Kind     ConstraintKind
	Classes  []string // e.g. "r", "m", "i", "a".."d", "S", "D"
	Raw      string
}

var constraintAST = pc.NewAST("asmconstraint", 0)

var (
	pClassLetter = constraintAST.OrdChoice("class", nil,
		pc.Atom("r", "r"), pc.Atom("m", "m"), pc.Atom("i", "i"),
		pc.Atom("a", "a"), pc.Atom("b", "b"), pc.Atom("c", "c"), pc.Atom("d", "d"),
		pc.Atom("S", "S"), pc.Atom("D", "D"),
	)
	pClassList = constraintAST.Many("classlist", nil, pClassLetter, pc.Atom(",", ","))
	pMarker    = constraintAST.Maybe("marker", nil,
		constraintAST.OrdChoice("markerchoice", nil, pc.Atom("=", "="), pc.Atom("+", "+")))
	pConstraint = constraintAST.And("constraint", nil, pMarker, pClassList, pc.End())
)

// ParseConstraint decodes a raw `"..."` constraint string (already
// stripped of its surrounding quotes) into a Constraint, or reports ok
// == false when the grammar rejects it.
func ParseConstraint(raw string) (Constraint, bool) {
	root, _ := constraintAST.Parsewith(pConstraint, pc.NewScanner([]byte(raw)))
	if root == nil || root.GetName() != "constraint" {
		return Constraint{}, false
	}
	children := root.GetChildren()
	if len(children) < 2 {
		return Constraint{}, false
	}
	marker, classlist := children[0], children[1]

	c := Constraint{Kind: ConstraintInput, Raw: raw}
	if len(marker.GetChildren()) == 1 {
		switch marker.GetChildren()[0].GetValue() {
		case "=":
			c.Kind = ConstraintOutput
		case "+":
			c.Kind = ConstraintInOut
		}
	}
	for _, ch := range classlist.GetChildren() {
		if ch.GetName() == "class" {
			c.Classes = append(c.Classes, ch.GetValue())
		}
	}
	if len(c.Classes) == 0 {
		return Constraint{}, false
	}
	return c, true
}
