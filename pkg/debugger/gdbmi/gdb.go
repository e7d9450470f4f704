// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package gdbmi implements debugger.Debugger on top of gdb driven over the GDB/MI protocol.
package gdbmi

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/firmfuzz/firmfuzz/pkg/debugger"
	"github.com/firmfuzz/firmfuzz/pkg/debugtracer"
	"github.com/firmfuzz/firmfuzz/pkg/log"
	"github.com/firmfuzz/firmfuzz/pkg/osutil"
	"golang.org/x/sync/errgroup"
)

type Debugger struct {
	// Gdb is the gdb binary, "gdb" by default.
	Gdb string
	// CommandTimeout bounds a single MI command round-trip.
	CommandTimeout time.Duration
	Tracer         debugtracer.DebugTracer
}

func New(gdb string, tracer debugtracer.DebugTracer) *Debugger {
	if gdb == "" {
		gdb = "gdb"
	}
	if tracer == nil {
		tracer = &debugtracer.NullTracer{}
	}
	return &Debugger{
		Gdb:            gdb,
		CommandTimeout: time.Minute,
		Tracer:         tracer,
	}
}

func (d *Debugger) CreateTarget(bin string) (debugger.Target, error) {
	if err := osutil.IsAccessible(bin); err != nil {
		return nil, fmt.Errorf("bad debug target: %w", err)
	}
	return &target{d: d, bin: bin}, nil
}

func (d *Debugger) Close() error {
	return nil
}

type target struct {
	d   *Debugger
	bin string
}

// Launch starts a new gdb session for the target and runs the binary in it.
func (t *target) Launch(args []string, dir string) (debugger.Process, error) {
	cmd := osutil.Command(t.d.Gdb, "--interpreter=mi2", "--nx", "--quiet")
	stderr := new(bytes.Buffer)
	cmd.Stderr = io.MultiWriter(log.VerboseWriter(2), stderr)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %v: %w", t.d.Gdb, err)
	}
	p := newProcess(cmd, stdin, stdout, t.d.Tracer, t.d.CommandTimeout)
	p.stderr = stderr
	if err := p.setup(t.bin, args, dir); err != nil {
		p.Kill()
		return nil, err
	}
	return p, nil
}

type process struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	tracer  debugtracer.DebugTracer
	timeout time.Duration
	events  chan debugger.Event
	kill    func(pid int) error
	stderr  *bytes.Buffer // read only after cmd.Wait
	done    chan struct{} // closed when gdb output ends
	stop    chan struct{} // closed by Kill
	eg      errgroup.Group

	mu        sync.Mutex
	pid       int
	nextToken int
	pending   map[int]chan *record
	console   strings.Builder
	killed    bool
	lost      bool // gdb exited on its own
}

func newProcess(cmd *exec.Cmd, stdin io.WriteCloser, stdout io.Reader,
	tracer debugtracer.DebugTracer, timeout time.Duration) *process {
	p := &process{
		cmd:       cmd,
		stdin:     stdin,
		tracer:    tracer,
		timeout:   timeout,
		events:    make(chan debugger.Event, 64),
		kill:      osutil.KillPid,
		done:      make(chan struct{}),
		stop:      make(chan struct{}),
		nextToken: 1,
		pending:   make(map[int]chan *record),
	}
	p.eg.Go(func() error {
		defer close(p.done)
		return p.readLoop(stdout)
	})
	return p
}

func (p *process) setup(bin string, args []string, dir string) error {
	if _, _, err := p.command("-gdb-set mi-async on"); err != nil {
		// Older gdb versions only know the deprecated name.
		if _, _, err := p.command("-gdb-set target-async on"); err != nil {
			return err
		}
	}
	cmds := []string{
		"-gdb-set pagination off",
		"-gdb-set confirm off",
		"-gdb-set startup-with-shell off",
		"-file-exec-and-symbols " + quote(bin),
		// Subject output must not be mixed into the MI stream.
		"-inferior-tty-set " + quote(os.DevNull),
	}
	if dir != "" {
		cmds = append(cmds, "-environment-cd "+quote(dir))
	}
	if len(args) != 0 {
		var quoted []string
		for _, arg := range args {
			quoted = append(quoted, quote(arg))
		}
		cmds = append(cmds, "-exec-arguments "+strings.Join(quoted, " "))
	}
	cmds = append(cmds, "-exec-run")
	for _, c := range cmds {
		if _, _, err := p.command(c); err != nil {
			return err
		}
	}
	return nil
}

func (p *process) readLoop(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), 16<<20)
	for scanner.Scan() {
		line := scanner.Text()
		p.tracer.Log("<- %s", line)
		rec, err := parseRecord(line)
		if err != nil {
			// Not an MI record, the target wrote to the gdb terminal.
			log.Logf(2, "target output: %v", line)
			continue
		}
		p.dispatch(rec)
	}
	p.mu.Lock()
	killed := p.killed
	p.mu.Unlock()
	if !killed {
		p.mu.Lock()
		p.lost = true
		p.mu.Unlock()
		reason := "gdb exited"
		if err := scanner.Err(); err != nil {
			reason = fmt.Sprintf("gdb output failed: %v", err)
		}
		p.emit(debugger.Event{State: debugger.StateInvalid, Reason: reason})
	}
	return scanner.Err()
}

func (p *process) emit(ev debugger.Event) {
	select {
	case p.events <- ev:
	case <-p.stop:
	}
}

func (p *process) dispatch(rec *record) {
	switch rec.kind {
	case kindResult:
		p.mu.Lock()
		ch := p.pending[rec.token]
		delete(p.pending, rec.token)
		p.mu.Unlock()
		if ch != nil {
			ch <- rec
		}
	case kindExec:
		if ev, ok := execEvent(rec); ok {
			p.emit(ev)
		}
	case kindNotify:
		if rec.class == "thread-group-started" {
			p.mu.Lock()
			p.pid = rec.results.num("pid")
			p.mu.Unlock()
			p.emit(debugger.Event{State: debugger.StateLaunching})
		}
	case kindConsole:
		p.mu.Lock()
		p.console.WriteString(rec.text)
		p.mu.Unlock()
	}
}

// fatalSignals terminate the subject unless handled; a stop on them is a crash.
var fatalSignals = map[string]bool{
	"SIGSEGV": true,
	"SIGABRT": true,
	"SIGBUS":  true,
	"SIGFPE":  true,
	"SIGILL":  true,
	"SIGSYS":  true,
}

func execEvent(rec *record) (debugger.Event, bool) {
	switch rec.class {
	case "running":
		return debugger.Event{State: debugger.StateRunning}, true
	case "stopped":
	default:
		return debugger.Event{}, false
	}
	ev := debugger.Event{
		State:  debugger.StateStopped,
		Reason: rec.results.str("reason"),
		Signal: rec.results.str("signal-name"),
	}
	switch ev.Reason {
	case "exited-normally":
		ev.State = debugger.StateExited
	case "exited":
		ev.State = debugger.StateExited
		code, _ := strconv.ParseInt(rec.results.str("exit-code"), 8, 32)
		ev.ExitCode = int(code)
	case "exited-signalled":
		ev.State = debugger.StateExited
		ev.ExitCode = -1
	case "signal-received":
		if fatalSignals[ev.Signal] {
			ev.State = debugger.StateCrashed
		}
	}
	return ev, true
}

// command sends an MI command and waits for its result record.
// Returns the result and console output produced by the command.
func (p *process) command(cmd string) (*record, string, error) {
	ch := make(chan *record, 1)
	p.mu.Lock()
	token := p.nextToken
	p.nextToken++
	p.pending[token] = ch
	p.console.Reset()
	p.mu.Unlock()

	line := fmt.Sprintf("%d%s\n", token, cmd)
	p.tracer.Log("-> %s", strings.TrimSpace(line))
	if _, err := io.WriteString(p.stdin, line); err != nil {
		return nil, "", fmt.Errorf("failed to send %q to gdb: %w", cmd, err)
	}
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case rec := <-ch:
		p.mu.Lock()
		console := p.console.String()
		p.mu.Unlock()
		if rec.class == "error" {
			return rec, console, fmt.Errorf("gdb: %v: %v", cmd, rec.results.str("msg"))
		}
		return rec, console, nil
	case <-p.done:
		return nil, "", fmt.Errorf("gdb exited while executing %q", cmd)
	case <-timer.C:
		return nil, "", fmt.Errorf("gdb did not reply to %q in %v", cmd, p.timeout)
	}
}

func (p *process) Pid() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

func (p *process) WaitForEvent(timeout time.Duration) (debugger.Event, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ev := <-p.events:
		return ev, true, nil
	case <-timer.C:
		return debugger.Event{}, false, nil
	}
}

func (p *process) Threads() ([]debugger.Thread, error) {
	rec, _, err := p.command("-thread-info")
	if err != nil {
		return nil, err
	}
	current := rec.results.num("current-thread-id")
	var threads []debugger.Thread
	for _, v := range rec.results.lst("threads") {
		th, ok := v.(tuple)
		if !ok {
			continue
		}
		id := th.num("id")
		thread := debugger.Thread{ID: id, Current: id == current}
		if thread.Current {
			threads = append([]debugger.Thread{thread}, threads...)
		} else {
			threads = append(threads, thread)
		}
	}
	return threads, nil
}

func (p *process) Frames(thread int) ([]debugger.Frame, error) {
	rec, _, err := p.command(fmt.Sprintf("-stack-list-frames --thread %v", thread))
	if err != nil {
		return nil, err
	}
	var frames []debugger.Frame
	for _, v := range rec.results.lst("stack") {
		fr, ok := v.(tuple)
		if !ok {
			continue
		}
		frame := debugger.Frame{
			Level: fr.num("level"),
			Addr:  fr.addr("addr"),
			File:  fr.str("file"),
			Line:  fr.num("line"),
		}
		name := fr.str("func")
		if name == "??" {
			name = ""
		}
		if frame.File != "" {
			frame.Function = name
		} else if err := p.resolveSymbol(thread, &frame, name); err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	// gdb lists an inlined call and its caller as separate frames with the same pc.
	for i := 0; i+1 < len(frames); i++ {
		if frames[i].Function != "" && frames[i].Addr == frames[i+1].Addr {
			frames[i].Inlined = true
		}
	}
	if err := p.frameArgs(thread, frames); err != nil {
		return nil, err
	}
	return frames, nil
}

var infoSymbolRe = regexp.MustCompile(`^(\S+)(?: \+ (\d+))? in section`)

func (p *process) resolveSymbol(thread int, frame *debugger.Frame, name string) error {
	frame.Symbol = name
	cmd := fmt.Sprintf("-interpreter-exec --thread %v console %v", thread,
		quote(fmt.Sprintf("info symbol 0x%x", frame.Addr)))
	_, console, err := p.command(cmd)
	if err != nil {
		return err
	}
	match := infoSymbolRe.FindStringSubmatch(strings.TrimSpace(console))
	if match == nil {
		return nil
	}
	frame.Symbol = match[1]
	if match[2] != "" {
		frame.SymbolOffset, _ = strconv.ParseUint(match[2], 10, 64)
	}
	return nil
}

func (p *process) frameArgs(thread int, frames []debugger.Frame) error {
	rec, _, err := p.command(fmt.Sprintf("-stack-list-arguments --thread %v --simple-values", thread))
	if err != nil {
		return err
	}
	byLevel := make(map[int]*debugger.Frame)
	for i := range frames {
		byLevel[frames[i].Level] = &frames[i]
	}
	for _, v := range rec.results.lst("stack-args") {
		fr, ok := v.(tuple)
		if !ok {
			continue
		}
		frame := byLevel[fr.num("level")]
		if frame == nil {
			continue
		}
		for _, a := range fr.lst("args") {
			arg, ok := a.(tuple)
			if !ok {
				continue
			}
			frame.Args = append(frame.Args, debugger.Variable{
				Name:  arg.str("name"),
				Type:  arg.str("type"),
				Value: arg.str("value"),
			})
		}
	}
	return nil
}

func (p *process) Resume() error {
	_, _, err := p.command("-exec-continue")
	return err
}

func (p *process) Stop() error {
	_, _, err := p.command("-exec-interrupt")
	return err
}

func (p *process) Evaluate(scope debugger.Scope, expr string) (string, error) {
	rec, _, err := p.command(fmt.Sprintf("-data-evaluate-expression --thread %v --frame %v %v",
		scope.Thread, scope.Frame, quote(expr)))
	if err != nil {
		return "", err
	}
	return rec.results.str("value"), nil
}

// Kill kills the inferior and the gdb session. It is safe to call Kill several times.
func (p *process) Kill() error {
	p.mu.Lock()
	if p.killed {
		p.mu.Unlock()
		return nil
	}
	p.killed = true
	pid := p.pid
	p.mu.Unlock()
	close(p.stop)

	var errs []error
	errs = append(errs, p.kill(pid))
	p.stdin.Close()
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	if err := p.eg.Wait(); err != nil {
		p.tracer.Log("gdb reader: %v", err)
	}
	p.cmd.Wait()
	if p.lost && p.stderr != nil && p.stderr.Len() != 0 && p.cmd.Process != nil {
		p.tracer.SaveFile(fmt.Sprintf("gdb-%v.stderr", p.cmd.Process.Pid), p.stderr.Bytes())
	}
	return errors.Join(errs...)
}
