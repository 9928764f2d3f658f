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

// Package diag holds the compile-wide error counter and diagnostic sink
// threaded through every pass as an explicit parameter, instead of
// process-wide statics.
package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Kind string

const (
	Lexical   Kind = "lexical"
	Syntactic Kind = "syntactic"
	Semantic  Kind = "semantic"
	InlineAsm Kind = "asm"
	Codegen   Kind = "codegen"
)

// Diagnostic is one immediately-reported error or warning, tied to a
// source position.
type Diagnostic struct {
	Kind    Kind
	File    string
	Line    int32
	Col     int32
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Col, d.Kind, d.Message)
}

// Sink accumulates diagnostics and the error counter that gates code
// generation. It is owned by the driver and passed by reference to each
// pass, never held in a package-level global.
type Sink struct {
	File   string
	Out    io.Writer
	Log    *logrus.Logger
	errs   []Diagnostic
	nerror int
}

// NewSink builds a diagnostic sink for one translation unit. The logrus
// logger carries ambient trace/debug output (the driver's per-stage entries);
// it is distinct from the Diagnostic stream, which always also prints to
// Out regardless of log level.
func NewSink(file string) *Sink {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	return &Sink{File: file, Out: os.Stderr, Log: log}
}

func (s *Sink) report(kind Kind, line, col int32, format string, args ...interface{}) {
	d := Diagnostic{Kind: kind, File: s.File, Line: line, Col: col, Message: fmt.Sprintf(format, args...)}
	s.errs = append(s.errs, d)
	s.nerror++
	fmt.Fprintln(s.Out, d.String())
	s.Log.WithFields(logrus.Fields{
		"kind": kind, "file": s.File, "line": line, "col": col,
	}).Error(d.Message)
}

func (s *Sink) Lexical(line, col int32, format string, args ...interface{}) {
	s.report(Lexical, line, col, format, args...)
}

func (s *Sink) Syntactic(line, col int32, format string, args ...interface{}) {
	s.report(Syntactic, line, col, format, args...)
}

func (s *Sink) Semantic(line, col int32, format string, args ...interface{}) {
	s.report(Semantic, line, col, format, args...)
}

func (s *Sink) Asm(line, col int32, format string, args ...interface{}) {
	s.report(InlineAsm, line, col, format, args...)
}

func (s *Sink) Codegen(line, col int32, format string, args ...interface{}) {
	s.report(Codegen, line, col, format, args...)
}

// ErrorCount is the shared compile-wide counter; the driver checks it
// before invoking the code generator.
func (s *Sink) ErrorCount() int { return s.nerror }

func (s *Sink) Diagnostics() []Diagnostic { return s.errs }

// Trace logs ambient, non-diagnostic pipeline progress (one entry per
// stage the driver enters) at debug level through a structured logger
// rather than fmt.Printf.
func (s *Sink) Trace(stage string, fields logrus.Fields) {
	entry := s.Log.WithField("stage", stage)
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Debug("pass")
}

func (s *Sink) EnableTrace() { s.Log.SetLevel(logrus.DebugLevel) }
