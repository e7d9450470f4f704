// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package diagnose reruns a misbehaving subject under a debugger and samples
// its stack by repeatedly interrupting it.
package diagnose

import (
	"fmt"
	"time"

	"github.com/firmfuzz/firmfuzz/pkg/debugger"
	"github.com/firmfuzz/firmfuzz/pkg/log"
	"github.com/firmfuzz/firmfuzz/pkg/report"
	"github.com/firmfuzz/firmfuzz/pkg/stack"
)

// NoCrash is the single frame of the sample recorded when the subject exits
// normally under the debugger.
const NoCrash = "DID NOT CRASH IN DEBUGGER"

type Introspector struct {
	Debugger debugger.Debugger
	// Dir is the working directory of the subject.
	Dir string
	// MaxStops is the number of stack samples after which the session ends.
	MaxStops int
	// FirstWait bounds waiting for an event before the first sample, Wait afterwards.
	FirstWait time.Duration
	Wait      time.Duration
	// DumpFunc is a subject function that serializes its IR graphs to "<name>.vcg",
	// called at the last sample. Empty disables the dump.
	DumpFunc string
	// NodeType is the IR node type name; node arguments are annotated.
	NodeType string
}

func New(dbg debugger.Debugger, dir string) *Introspector {
	return &Introspector{
		Debugger:  dbg,
		Dir:       dir,
		MaxStops:  3,
		FirstWait: 8 * time.Second,
		Wait:      time.Second,
		DumpFunc:  "dump_all_ir_graphs",
		NodeType:  "ir_node",
	}
}

type Diagnosis struct {
	Points []*report.DebugPoint
	// HangConfirmed is set if the subject had to be interrupted.
	HangConfirmed bool
	// Crashed is set if the subject was killed by a fatal signal.
	Crashed bool
	// Reproduced is false if the subject exited with code 0 under the debugger.
	Reproduced bool
	// ExitCode is the exit code of the subject if it exited under the debugger.
	ExitCode int
}

// ProtocolError means the debugger reported a state the session cannot continue from.
type ProtocolError struct {
	Event debugger.Event
}

func (err *ProtocolError) Error() string {
	return fmt.Sprintf("debugger reported %v", err.Event)
}

// Diagnose launches args[0] with args[1:] under the debugger. Samples collected
// before an error are returned along with the error.
// The tag names diagnostic artifacts.
func (in *Introspector) Diagnose(args []string, tag string) (*Diagnosis, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	target, err := in.Debugger.CreateTarget(args[0])
	if err != nil {
		return nil, err
	}
	proc, err := target.Launch(args[1:], in.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to launch %v under debugger: %w", args[0], err)
	}
	defer func() {
		if err := proc.Kill(); err != nil {
			log.Logf(1, "failed to kill debugged process: %v", err)
		}
	}()
	s := &session{
		in:    in,
		proc:  proc,
		tag:   tag,
		start: time.Now(),
		diag:  &Diagnosis{Reproduced: true},
	}
	err = s.loop()
	return s.diag, err
}

type session struct {
	in    *Introspector
	proc  debugger.Process
	tag   string
	start time.Time
	diag  *Diagnosis
	stops int
}

func (s *session) loop() error {
	pausing := false
	for {
		wait := s.in.Wait
		if s.stops == 0 {
			wait = s.in.FirstWait
		}
		ev, ok, err := s.proc.WaitForEvent(wait)
		if err != nil {
			return fmt.Errorf("failed to wait for debugger event: %w", err)
		}
		if !ok {
			s.diag.HangConfirmed = true
			if pausing {
				log.Logf(1, "%v: no debugger events after interrupt", s.tag)
				return nil
			}
			if err := s.proc.Stop(); err != nil {
				return fmt.Errorf("failed to interrupt: %w", err)
			}
			pausing = true
			continue
		}
		log.Logf(2, "%v: debugger event: %v", s.tag, ev)
		switch ev.State {
		case debugger.StateLaunching, debugger.StateRunning:
		case debugger.StateStopped:
			pausing = false
			point, thread, err := s.sample()
			if err != nil {
				return err
			}
			s.stops++
			if s.stops < s.in.MaxStops {
				if err := s.proc.Resume(); err != nil {
					return fmt.Errorf("failed to resume: %w", err)
				}
				continue
			}
			s.dump(point, thread)
			return nil
		case debugger.StateExited:
			s.diag.ExitCode = ev.ExitCode
			s.diag.Reproduced = ev.ExitCode != 0
			s.diag.Points = append(s.diag.Points, &report.DebugPoint{
				Elapsed: time.Since(s.start),
				Frames:  []stack.Frame{stack.NoteFrame(NoCrash)},
			})
			return nil
		case debugger.StateCrashed:
			s.diag.Crashed = true
			_, _, err := s.sample()
			return err
		default:
			return &ProtocolError{Event: ev}
		}
	}
}

// sample records the stack of the current thread.
func (s *session) sample() (*report.DebugPoint, int, error) {
	point := &report.DebugPoint{Elapsed: time.Since(s.start)}
	threads, err := s.proc.Threads()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list threads: %w", err)
	}
	if len(threads) == 0 {
		return nil, 0, fmt.Errorf("stopped process has no threads")
	}
	thread := threads[0].ID
	frames, err := s.proc.Frames(thread)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list frames: %w", err)
	}
	for i := range frames {
		point.Frames = append(point.Frames, s.convert(thread, i, &frames[i]))
	}
	s.diag.Points = append(s.diag.Points, point)
	return point, thread, nil
}

func (s *session) convert(thread, index int, fr *debugger.Frame) stack.Frame {
	frame := stack.Frame{
		Index:        index,
		Addr:         fr.Addr,
		Function:     fr.Function,
		Symbol:       fr.Symbol,
		SymbolOffset: fr.SymbolOffset,
		Inlined:      fr.Inlined,
		File:         fr.File,
		Line:         fr.Line,
	}
	if fr.Inlined || fr.Function == "" {
		return frame
	}
	scope := debugger.Scope{Thread: thread, Frame: fr.Level}
	for _, v := range fr.Args {
		arg := stack.Arg{Type: v.Type, Name: v.Name, Value: v.Value}
		if stack.IsNodeType(v.Type, s.in.NodeType) {
			arg.Node = &stack.NodeInfo{
				Nr:     s.eval(scope, v.Name+"->node_nr"),
				OpName: s.eval(scope, v.Name+"->op->name"),
			}
		}
		frame.Args = append(frame.Args, arg)
	}
	return frame
}

func (s *session) eval(scope debugger.Scope, expr string) string {
	val, err := s.proc.Evaluate(scope, expr)
	if err != nil {
		log.Logf(2, "%v: failed to evaluate %v: %v", s.tag, expr, err)
		return "?"
	}
	return val
}

func (s *session) dump(point *report.DebugPoint, thread int) {
	if s.in.DumpFunc == "" {
		return
	}
	name := s.tag + "-last_stop"
	expr := fmt.Sprintf("%v(%q)", s.in.DumpFunc, name)
	if _, err := s.proc.Evaluate(debugger.Scope{Thread: thread}, expr); err != nil {
		log.Logf(1, "%v: graph dump failed: %v", s.tag, err)
		return
	}
	point.Artifacts = append(point.Artifacts, name+".vcg")
}
