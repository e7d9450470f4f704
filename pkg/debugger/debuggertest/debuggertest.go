// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package debuggertest provides a scripted debugger.Debugger for tests.
package debuggertest

import (
	"fmt"
	"sync"
	"time"

	"github.com/firmfuzz/firmfuzz/pkg/debugger"
)

// Step is a single scripted WaitForEvent outcome.
type Step struct {
	Event debugger.Event
	// Silent makes WaitForEvent report that the wait window expired.
	Silent bool
}

func Ev(state debugger.State) Step {
	return Step{Event: debugger.Event{State: state}}
}

func Silence() Step {
	return Step{Silent: true}
}

type Script struct {
	Steps []Step
	// Samples holds frames returned by consecutive Frames calls.
	// The last sample repeats once the list is exhausted.
	Samples [][]debugger.Frame
	// Values maps evaluated expressions to results, unknown ones fail.
	Values    map[string]string
	LaunchErr error
}

type Debugger struct {
	Script    Script
	mu        sync.Mutex
	Targets   []string
	Processes []*Process
}

func New(script Script) *Debugger {
	return &Debugger{Script: script}
}

func (d *Debugger) CreateTarget(bin string) (debugger.Target, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Targets = append(d.Targets, bin)
	return &target{d: d, bin: bin}, nil
}

func (d *Debugger) Close() error {
	return nil
}

// Last returns the most recently launched process.
func (d *Debugger) Last() *Process {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Processes) == 0 {
		return nil
	}
	return d.Processes[len(d.Processes)-1]
}

type target struct {
	d   *Debugger
	bin string
}

func (t *target) Launch(args []string, dir string) (debugger.Process, error) {
	if t.d.Script.LaunchErr != nil {
		return nil, t.d.Script.LaunchErr
	}
	p := &Process{
		script: t.d.Script,
		Args:   append([]string{}, args...),
		Dir:    dir,
	}
	t.d.mu.Lock()
	t.d.Processes = append(t.d.Processes, p)
	t.d.mu.Unlock()
	return p, nil
}

// Process replays the script and records every call made to it.
type Process struct {
	script  Script
	Args    []string
	Dir     string
	Calls   []string
	Waits   []time.Duration
	Evals   []string
	step    int
	sample  int
	Killed  bool
	Resumed int
	Stopped int
}

func (p *Process) Pid() int {
	return 1
}

func (p *Process) WaitForEvent(timeout time.Duration) (debugger.Event, bool, error) {
	p.Waits = append(p.Waits, timeout)
	if p.step >= len(p.script.Steps) {
		return debugger.Event{}, false, nil
	}
	step := p.script.Steps[p.step]
	p.step++
	if step.Silent {
		return debugger.Event{}, false, nil
	}
	return step.Event, true, nil
}

func (p *Process) Threads() ([]debugger.Thread, error) {
	return []debugger.Thread{{ID: 1, Current: true}}, nil
}

func (p *Process) Frames(thread int) ([]debugger.Frame, error) {
	if len(p.script.Samples) == 0 {
		return nil, nil
	}
	idx := min(p.sample, len(p.script.Samples)-1)
	p.sample++
	return append([]debugger.Frame{}, p.script.Samples[idx]...), nil
}

func (p *Process) Resume() error {
	p.Calls = append(p.Calls, "resume")
	p.Resumed++
	return nil
}

func (p *Process) Stop() error {
	p.Calls = append(p.Calls, "stop")
	p.Stopped++
	return nil
}

func (p *Process) Kill() error {
	p.Calls = append(p.Calls, "kill")
	p.Killed = true
	return nil
}

func (p *Process) Evaluate(scope debugger.Scope, expr string) (string, error) {
	p.Evals = append(p.Evals, expr)
	if v, ok := p.script.Values[expr]; ok {
		return v, nil
	}
	return "", fmt.Errorf("no symbol in %q", expr)
}
