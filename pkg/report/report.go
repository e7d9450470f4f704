// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package report holds the outcome of running one generated test case against
// all subject option variants, and computes the bug signature used for deduplication.
package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/firmfuzz/firmfuzz/pkg/stack"
)

type Outcome int

const (
	Success Outcome = iota
	Timeout
	Abort
	Crash
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Timeout:
		return "timeout"
	case Abort:
		return "abort"
	case Crash:
		return "crash"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// DebugPoint is a stack sample taken while the subject ran under the debugger.
type DebugPoint struct {
	// Elapsed is the time since the debugger launched the subject.
	Elapsed time.Duration
	Frames  []stack.Frame
	// Artifacts are diagnostic snapshot files written at this sample.
	Artifacts []string
}

func (p *DebugPoint) Lines() []string {
	return stack.Lines(p.Frames)
}

// RunRecord is the result of one subject invocation.
type RunRecord struct {
	// Args is the exact argv, binary first.
	Args []string
	// Prefix is the number of leading Args shared by all variants of a test case.
	Prefix   int
	Outcome  Outcome
	ExitCode int // Abort only
	Stderr   string
	Points   []*DebugPoint
	// Inconclusive is set when the debugger rerun did not reproduce the abort.
	Inconclusive bool
	DiagnosisErr error
	Duration     time.Duration
}

// VariantArgs returns the options that distinguish this run from other variants.
func (rec *RunRecord) VariantArgs() []string {
	if rec.Prefix >= len(rec.Args) {
		return nil
	}
	return rec.Args[rec.Prefix:]
}

func (rec *RunRecord) Invocation() string {
	if len(rec.Args) == 0 {
		return ""
	}
	return strings.Join(append([]string{filepath.Base(rec.Args[0])}, rec.Args[1:]...), " ")
}

// Traces returns rendered stack traces of all debug points.
func (rec *RunRecord) Traces() [][]string {
	var traces [][]string
	for _, p := range rec.Points {
		traces = append(traces, p.Lines())
	}
	return traces
}

// Report collects all runs of a single test case.
type Report struct {
	ID string
	// GenInvocation is the generator command line that produced the input.
	GenInvocation string
	Subject       string
	Version       string
	Instance      string

	Records   []*RunRecord
	Successes []*RunRecord
	Timeouts  []*RunRecord
	Aborts    []*RunRecord
	Crashes   []*RunRecord

	ident     string
	identDone bool
}

func New(id, genInvocation string) *Report {
	return &Report{
		ID:            id,
		GenInvocation: genInvocation,
	}
}

// Add files the record into the bucket matching its outcome.
func (rep *Report) Add(rec *RunRecord) {
	rep.Records = append(rep.Records, rec)
	switch rec.Outcome {
	case Success:
		rep.Successes = append(rep.Successes, rec)
	case Timeout:
		rep.Timeouts = append(rep.Timeouts, rec)
	case Abort:
		rep.Aborts = append(rep.Aborts, rec)
	case Crash:
		rep.Crashes = append(rep.Crashes, rec)
	default:
		panic(fmt.Sprintf("unknown outcome %v", rec.Outcome))
	}
	rep.identDone = false
}

func (rep *Report) IsBugReport() bool {
	return len(rep.Timeouts) != 0 || len(rep.Aborts) != 0
}

// Identifier returns the bug signature, or "" if the report is not a bug report.
func (rep *Report) Identifier() string {
	if !rep.IsBugReport() {
		return ""
	}
	if !rep.identDone {
		rep.ident = Identify(rep)
		rep.identDone = true
	}
	return rep.ident
}

func (rep *Report) Summary() string {
	return fmt.Sprintf("%v timeouts, %v aborts, %v successes",
		len(rep.Timeouts), len(rep.Aborts), len(rep.Successes))
}
