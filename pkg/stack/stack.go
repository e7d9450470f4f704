// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package stack renders debugger stack frames and compares stack traces
// sampled from a hanging process.
package stack

import (
	"fmt"
	"strings"

	"github.com/ianlancetaylor/demangle"
)

// Frame is a single stack frame of a stopped process.
// Index 0 is the innermost frame.
type Frame struct {
	Index        int
	Addr         uint64
	Function     string // empty if there is no debug info for the frame
	Symbol       string
	SymbolOffset uint64
	Inlined      bool
	File         string
	Line         int
	Args         []Arg
	// Note replaces the whole frame line, used for sentinel frames.
	Note string
}

// Arg is an in-scope argument of a frame.
type Arg struct {
	Type  string
	Name  string
	Value string
	Node  *NodeInfo
}

// NodeInfo identifies an IR node passed as an argument.
type NodeInfo struct {
	Nr     string
	OpName string
}

// NoteFrame returns a frame that renders as the given text.
func NoteFrame(note string) Frame {
	return Frame{Note: note}
}

func (f *Frame) String() string {
	if f.Note != "" {
		return f.Note
	}
	if f.Function == "" {
		return fmt.Sprintf("frame #%v: 0x%016x `%v + %v", f.Index, f.Addr, demangle.Filter(f.Symbol), f.SymbolOffset)
	}
	name := f.Function
	args := "()"
	if f.Inlined {
		name += " [inlined]"
	} else {
		args = FormatArgs(f.Args)
	}
	loc := ""
	if f.File != "" {
		loc = fmt.Sprintf(" at %v:%v", f.File, f.Line)
	}
	return fmt.Sprintf("frame #%v: 0x%016x `%v%v %v", f.Index, f.Addr, name, loc, args)
}

func (a *Arg) String() string {
	s := fmt.Sprintf("(%v)%v=%v", a.Type, a.Name, a.Value)
	if a.Node != nil {
		s += fmt.Sprintf(" [node_nr=%v, node_opname=%v]", a.Node.Nr, a.Node.OpName)
	}
	return s
}

// FormatArgs renders a parenthesized argument list.
func FormatArgs(args []Arg) string {
	var parts []string
	for i := range args {
		parts = append(parts, args[i].String())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Lines renders frames one per line.
func Lines(frames []Frame) []string {
	var lines []string
	for i := range frames {
		lines = append(lines, frames[i].String())
	}
	return lines
}

// IsNodeType reports whether typ, or the type it points to, names the IR node type.
func IsNodeType(typ, nodeType string) bool {
	typ = strings.TrimSpace(typ)
	if strings.HasSuffix(typ, "*") {
		typ = strings.TrimSpace(strings.TrimSuffix(typ, "*"))
	}
	return nodeType != "" && strings.HasSuffix(typ, nodeType)
}
