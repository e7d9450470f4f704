// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package debugger defines the debugger capability used to introspect a running subject.
// Backends live in subpackages; all debugger-specific types stay behind these interfaces.
package debugger

import (
	"fmt"
	"time"
)

type Debugger interface {
	// CreateTarget prepares a debugging target for the binary.
	CreateTarget(bin string) (Target, error)
	Close() error
}

type Target interface {
	// Launch starts the binary with args (without argv[0]) in dir.
	// The process starts running asynchronously.
	Launch(args []string, dir string) (Process, error)
}

type Process interface {
	Pid() int
	// WaitForEvent waits for the next process state change.
	// Returns false if no event arrived within timeout.
	WaitForEvent(timeout time.Duration) (Event, bool, error)
	// Threads returns threads of a stopped process, the current thread first.
	Threads() ([]Thread, error)
	// Frames returns frames of a thread, innermost first.
	Frames(thread int) ([]Frame, error)
	Resume() error
	// Stop requests asynchronous interruption; the stop is reported as an event.
	Stop() error
	Kill() error
	// Evaluate evaluates expr in the given frame and returns the printed value.
	Evaluate(scope Scope, expr string) (string, error)
}

type State int

const (
	StateInvalid State = iota
	StateLaunching
	StateRunning
	StateStopped
	StateExited
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateInvalid:
		return "invalid"
	case StateLaunching:
		return "launching"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateExited:
		return "exited"
	case StateCrashed:
		return "crashed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Event struct {
	State    State
	Reason   string
	Signal   string
	ExitCode int
}

func (ev Event) String() string {
	s := ev.State.String()
	if ev.Reason != "" {
		s += " (" + ev.Reason + ")"
	}
	if ev.Signal != "" {
		s += " " + ev.Signal
	}
	return s
}

type Thread struct {
	ID      int
	Current bool
}

// Scope selects a frame of a thread for expression evaluation.
type Scope struct {
	Thread int
	Frame  int
}

// Frame is a raw frame as reported by the debugger.
type Frame struct {
	Level        int
	Addr         uint64
	Function     string // empty if there is no debug info
	Symbol       string
	SymbolOffset uint64
	Inlined      bool
	File         string
	Line         int
	Args         []Variable
}

type Variable struct {
	Name  string
	Type  string
	Value string
}
