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

package codegen

import (
	"strconv"
	"strings"

	pc "github.com/prataprc/goparsec"
)

var templateAST = pc.NewAST("asmtemplate", 0)

var (
	pPlaceholder = templateAST.And("placeholder", nil, pc.Atom("%", "%"), pc.Int())
	pPlainRun    = pc.Token(`[^%]+`, "PLAIN")
	pPiece       = templateAST.OrdChoice("piece", nil, pPlaceholder, pPlainRun)
	pTemplate    = templateAST.ManyUntil("template", nil, pPiece, pc.End())
)

// substituteTemplate expands every %N in template with operands[N]
// (already rendered as a NASM operand string) and rewrites tabs to four
// spaces so inline asm lines indent like the rest of the generated file.
func substituteTemplate(template string, operands []string) string {
	root, _ := templateAST.Parsewith(pTemplate, pc.NewScanner([]byte(template)))
	if root == nil {
		return strings.ReplaceAll(template, "\t", "    ")
	}
	var sb strings.Builder
	for _, piece := range root.GetChildren() {
		switch piece.GetName() {
		case "placeholder":
			children := piece.GetChildren()
			if len(children) != 2 {
				continue
			}
			n, err := strconv.Atoi(children[1].GetValue())
			if err != nil || n < 0 || n >= len(operands) {
				sb.WriteString(piece.GetValue())
				continue
			}
			sb.WriteString(operands[n])
		case "PLAIN":
			sb.WriteString(piece.GetValue())
		}
	}
	return strings.ReplaceAll(sb.String(), "\t", "    ")
}
