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

// Package config holds the CLI-derived options threaded into the driver;
// it has no behavior of its own beyond FromOptions decoding the flag map
// teris-io/cli hands the action callback.
package config

// Options mirrors the command-line surface: one source path plus the
// boolean switches that gate each pipeline stage and toolchain step.
type Options struct {
	Source string

	PrintTree         bool
	PrintSymtab       bool
	PrintRecordSymtab bool

	Compile  bool
	Assemble bool
	Link     bool
	Optimize bool

	NoStdlib   bool
	NoFramePtr bool

	KeepAsmFile bool
	KeepObjFile bool
}

// FromOptions decodes the boolean flag set teris-io/cli passes to an
// action handler (present in the map with any value means "set").
func FromOptions(source string, flags map[string]string) Options {
	has := func(names ...string) bool {
		for _, n := range names {
			if _, ok := flags[n]; ok {
				return true
			}
		}
		return false
	}
	return Options{
		Source:            source,
		PrintTree:         has("t", "print-tree"),
		PrintSymtab:       has("s", "print-symtab"),
		PrintRecordSymtab: has("r", "print-record-symtab"),
		Compile:           has("c", "compile"),
		Assemble:          has("a", "assemble"),
		Link:              has("l", "link"),
		Optimize:          has("o", "optimize"),
		NoStdlib:          has("no-stdlib"),
		NoFramePtr:        has("no-frameptr"),
		KeepAsmFile:       has("ak", "keep-asm-file"),
		KeepObjFile:       has("ok", "keep-obj-file"),
	}
}

// DefaultPipeline reports whether none of -c/-a/-l was requested, in
// which case the driver runs the full compile+assemble+link pipeline.
func (o Options) DefaultPipeline() bool {
	return !o.Compile && !o.Assemble && !o.Link
}
