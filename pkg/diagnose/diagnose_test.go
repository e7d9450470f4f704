// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package diagnose

import (
	"errors"
	"testing"
	"time"

	"github.com/firmfuzz/firmfuzz/pkg/debugger"
	"github.com/firmfuzz/firmfuzz/pkg/debugger/debuggertest"
	"github.com/firmfuzz/firmfuzz/pkg/stack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	evLaunch  = debuggertest.Ev(debugger.StateLaunching)
	evRunning = debuggertest.Ev(debugger.StateRunning)
	evStopped = debuggertest.Ev(debugger.StateStopped)
	silence   = debuggertest.Silence()
)

func loopFrames() []debugger.Frame {
	return []debugger.Frame{
		{
			Level: 0, Addr: 0x401136, Function: "optimize_node", File: "opt.c", Line: 10,
			Args: []debugger.Variable{
				{Name: "n", Type: "ir_node *", Value: "0x602010"},
				{Name: "depth", Type: "int", Value: "3"},
			},
		},
		{Level: 1, Addr: 0x401200, Function: "walk", File: "walk.c", Line: 20, Inlined: true,
			Args: []debugger.Variable{{Name: "n", Type: "ir_node *", Value: "0x1"}}},
		{Level: 2, Addr: 0x7ffff7a05b97, Symbol: "__libc_start_main", SymbolOffset: 231},
	}
}

func newIntrospector(dbg debugger.Debugger) *Introspector {
	in := New(dbg, "/reports")
	in.FirstWait = 8 * time.Second
	in.Wait = time.Second
	return in
}

func TestHangThreeStops(t *testing.T) {
	dbg := debuggertest.New(debuggertest.Script{
		Steps: []debuggertest.Step{
			evLaunch, evRunning,
			silence, evStopped,
			evRunning, silence, evStopped,
			evRunning, silence, evStopped,
		},
		Samples: [][]debugger.Frame{loopFrames()},
		Values: map[string]string{
			"n->node_nr":  "42",
			"n->op->name": `"Add"`,
			`dump_all_ir_graphs("20261018120000-2-last_stop")`: "void",
		},
	})
	in := newIntrospector(dbg)
	diag, err := in.Diagnose([]string{"/bin/cparser", "x.ir", "-O0"}, "20261018120000-2")
	require.NoError(t, err)
	assert.True(t, diag.HangConfirmed)
	assert.True(t, diag.Reproduced)
	assert.False(t, diag.Crashed)
	require.Len(t, diag.Points, 3)
	assert.Empty(t, diag.Points[0].Artifacts)
	assert.Equal(t, []string{"20261018120000-2-last_stop.vcg"}, diag.Points[2].Artifacts)

	assert.Equal(t, []string{"/bin/cparser"}, dbg.Targets)
	proc := dbg.Last()
	assert.Equal(t, []string{"x.ir", "-O0"}, proc.Args)
	assert.Equal(t, "/reports", proc.Dir)
	assert.Equal(t, []string{"stop", "resume", "stop", "resume", "stop", "kill"}, proc.Calls)
	// Long waits until the first sample, short ones after.
	assert.Equal(t, []time.Duration{
		8 * time.Second, 8 * time.Second, 8 * time.Second, 8 * time.Second,
		time.Second, time.Second, time.Second, time.Second, time.Second, time.Second,
	}, proc.Waits)

	assert.Equal(t, []string{
		"frame #0: 0x0000000000401136 `optimize_node at opt.c:10 " +
			`((ir_node *)n=0x602010 [node_nr=42, node_opname="Add"], (int)depth=3)`,
		"frame #1: 0x0000000000401200 `walk [inlined] at walk.c:20 ()",
		"frame #2: 0x00007ffff7a05b97 `__libc_start_main + 231",
	}, diag.Points[1].Lines())
}

func TestExitedUnderDebugger(t *testing.T) {
	dbg := debuggertest.New(debuggertest.Script{
		Steps: []debuggertest.Step{evLaunch, evRunning, debuggertest.Ev(debugger.StateExited)},
	})
	diag, err := newIntrospector(dbg).Diagnose([]string{"/bin/cparser"}, "id")
	require.NoError(t, err)
	assert.False(t, diag.Reproduced)
	assert.False(t, diag.HangConfirmed)
	require.Len(t, diag.Points, 1)
	assert.Equal(t, []stack.Frame{stack.NoteFrame(NoCrash)}, diag.Points[0].Frames)
	assert.Equal(t, []string{"kill"}, dbg.Last().Calls)
}

func TestExitedWithErrorUnderDebugger(t *testing.T) {
	dbg := debuggertest.New(debuggertest.Script{
		Steps: []debuggertest.Step{evLaunch, evRunning, {Event: debugger.Event{
			State:    debugger.StateExited,
			Reason:   "exited",
			ExitCode: 1,
		}}},
	})
	diag, err := newIntrospector(dbg).Diagnose([]string{"/bin/cparser"}, "id")
	require.NoError(t, err)
	assert.True(t, diag.Reproduced)
	assert.Equal(t, 1, diag.ExitCode)
	require.Len(t, diag.Points, 1)
	assert.Equal(t, []stack.Frame{stack.NoteFrame(NoCrash)}, diag.Points[0].Frames)
}

func TestCrashed(t *testing.T) {
	dbg := debuggertest.New(debuggertest.Script{
		Steps:   []debuggertest.Step{evLaunch, evRunning, debuggertest.Ev(debugger.StateCrashed)},
		Samples: [][]debugger.Frame{loopFrames()},
	})
	diag, err := newIntrospector(dbg).Diagnose([]string{"/bin/cparser"}, "id")
	require.NoError(t, err)
	assert.True(t, diag.Crashed)
	assert.True(t, diag.Reproduced)
	require.Len(t, diag.Points, 1)
	assert.Len(t, diag.Points[0].Frames, 3)
	// Node fields are not known to the fake.
	assert.Equal(t, &stack.NodeInfo{Nr: "?", OpName: "?"}, diag.Points[0].Frames[0].Args[0].Node)
	assert.Nil(t, diag.Points[0].Frames[0].Args[1].Node)
	assert.Empty(t, diag.Points[0].Frames[1].Args)
}

func TestProtocolError(t *testing.T) {
	dbg := debuggertest.New(debuggertest.Script{
		Steps:   []debuggertest.Step{evLaunch, silence, evStopped, debuggertest.Ev(debugger.StateInvalid)},
		Samples: [][]debugger.Frame{loopFrames()},
	})
	diag, err := newIntrospector(dbg).Diagnose([]string{"/bin/cparser"}, "id")
	var perr *ProtocolError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, debugger.StateInvalid, perr.Event.State)
	require.NotNil(t, diag)
	assert.Len(t, diag.Points, 1)
	assert.True(t, dbg.Last().Killed)
}

func TestNoEventsAfterInterrupt(t *testing.T) {
	dbg := debuggertest.New(debuggertest.Script{
		Steps: []debuggertest.Step{evLaunch, silence, silence},
	})
	diag, err := newIntrospector(dbg).Diagnose([]string{"/bin/cparser"}, "id")
	require.NoError(t, err)
	assert.True(t, diag.HangConfirmed)
	assert.Empty(t, diag.Points)
	assert.Equal(t, []string{"stop", "kill"}, dbg.Last().Calls)
}

func TestDumpFailure(t *testing.T) {
	dbg := debuggertest.New(debuggertest.Script{
		Steps:   []debuggertest.Step{evStopped, evStopped, evStopped},
		Samples: [][]debugger.Frame{{{Level: 0, Addr: 1, Function: "f"}}},
	})
	in := newIntrospector(dbg)
	in.MaxStops = 2
	diag, err := in.Diagnose([]string{"/bin/cparser"}, "id")
	require.NoError(t, err)
	require.Len(t, diag.Points, 2)
	assert.Empty(t, diag.Points[1].Artifacts)
	assert.Equal(t, []string{`dump_all_ir_graphs("id-last_stop")`}, dbg.Last().Evals)
	assert.Equal(t, []string{"resume", "kill"}, dbg.Last().Calls)
}

func TestLaunchError(t *testing.T) {
	dbg := debuggertest.New(debuggertest.Script{LaunchErr: errors.New("no such file")})
	_, err := newIntrospector(dbg).Diagnose([]string{"/bin/cparser"}, "id")
	assert.ErrorContains(t, err, "no such file")
	_, err = newIntrospector(dbg).Diagnose(nil, "id")
	assert.Error(t, err)
}
