// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package triage runs a generated test case against all subject option variants
// and collects the outcomes into a report.
package triage

import (
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/firmfuzz/firmfuzz/pkg/diagnose"
	"github.com/firmfuzz/firmfuzz/pkg/generator"
	"github.com/firmfuzz/firmfuzz/pkg/log"
	"github.com/firmfuzz/firmfuzz/pkg/report"
	"github.com/firmfuzz/firmfuzz/pkg/runner"
	"github.com/firmfuzz/firmfuzz/pkg/stat"
)

// Supervisor runs the subject directly, see runner.Runner.
type Supervisor interface {
	Run(args []string, deadline time.Duration) (*report.RunRecord, error)
}

// Introspector reruns the subject under a debugger, see diagnose.Introspector.
type Introspector interface {
	Diagnose(args []string, tag string) (*diagnose.Diagnosis, error)
}

// Triager holds everything a triage run needs; it is built once at startup.
type Triager struct {
	Subject string
	// Flags follow the input file in every run.
	Flags    []string
	Deadline time.Duration
	Version  string
	Instance string
	Rand     *rand.Rand
	Runner   Supervisor
	Debug    Introspector
	// Progress receives one marker per run: "_" per test case, "." per variant,
	// then "T" for a timeout or "A" for an abort.
	Progress io.Writer
}

var (
	statRuns = stat.New("runs", "Subject runs", stat.Console, stat.Rate{},
		stat.Prometheus("firmfuzz_subject_runs"))
	statSuccesses = stat.New("successes", "Subject runs that exited cleanly",
		stat.Prometheus("firmfuzz_subject_successes"))
	statTimeouts = stat.New("timeouts", "Subject runs that did not finish in time", stat.Console,
		stat.Prometheus("firmfuzz_subject_timeouts"))
	statAborts = stat.New("aborts", "Subject runs that exited with an error", stat.Console,
		stat.Prometheus("firmfuzz_subject_aborts"))
	statInconclusive = stat.New("inconclusive", "Aborts that did not reproduce under the debugger",
		stat.Prometheus("firmfuzz_inconclusive_aborts"))
	statDiagFailed = stat.New("diagnosis failed", "Debugger sessions that failed",
		stat.Prometheus("firmfuzz_diagnosis_failures"))
	statRunTime = stat.New("run time", "Subject run time (ms)", stat.Distribution{})
)

// Run executes every option variant on the test case input.
func (tr *Triager) Run(tc *generator.TestCase, variants []string) *report.Report {
	rep := report.New(tc.ID, tc.Invocation)
	rep.Subject = filepath.Base(tr.Subject)
	rep.Version = tr.Version
	rep.Instance = tr.Instance
	tr.progress("_")
	for _, variant := range variants {
		rec := tr.runVariant(tc, PopulatePlaceholders(strings.Fields(variant), tr.Rand))
		if rec != nil {
			rep.Add(rec)
		}
	}
	return rep
}

func (tr *Triager) runVariant(tc *generator.TestCase, opts []string) *report.RunRecord {
	args := append([]string{tr.Subject, tc.IRFile}, tr.Flags...)
	prefix := len(args)
	args = append(args, opts...)
	tr.progress(".")
	statRuns.Add(1)
	rec, err := tr.Runner.Run(args, tr.Deadline)
	switch {
	case runner.IsHang(err):
		tr.progress("T")
		statTimeouts.Add(1)
		rec = &report.RunRecord{
			Args:     args,
			Outcome:  report.Timeout,
			Duration: tr.Deadline,
		}
		tr.diagnose(tc, rec)
	case err != nil:
		log.Logf(0, "%v: skipping %q: %v", tc.ID, opts, err)
		return nil
	case rec.Outcome == report.Abort:
		tr.progress("A")
		statAborts.Add(1)
		rec.Stderr = strings.TrimSpace(rec.Stderr)
		tr.diagnose(tc, rec)
	default:
		statSuccesses.Add(1)
	}
	statRunTime.Add(int(rec.Duration / time.Millisecond))
	rec.Prefix = prefix
	return rec
}

func (tr *Triager) diagnose(tc *generator.TestCase, rec *report.RunRecord) {
	diag, err := tr.Debug.Diagnose(rec.Args, tc.ID)
	if diag != nil {
		rec.Points = diag.Points
	}
	if err != nil {
		statDiagFailed.Add(1)
		log.Logf(0, "%v: diagnosis of %q failed: %v", tc.ID, rec.Invocation(), err)
		rec.DiagnosisErr = err
		return
	}
	if rec.Outcome == report.Abort && !diag.Reproduced {
		statInconclusive.Add(1)
		log.Logf(0, "%v: abort did not reproduce under the debugger\n\tgenerator: %v\n\tsubject: %v",
			tc.ID, tc.Invocation, rec.Invocation())
		rec.Inconclusive = true
	}
}

func (tr *Triager) progress(marker string) {
	if tr.Progress != nil {
		fmt.Fprint(tr.Progress, marker)
	}
}

// PopulatePlaceholders replaces "<size>" and "<value>" in every option with
// random numbers in [1, 10].
func PopulatePlaceholders(opts []string, rnd *rand.Rand) []string {
	var res []string
	for _, opt := range opts {
		opt = strings.ReplaceAll(opt, "<size>", strconv.Itoa(rnd.Intn(10)+1))
		opt = strings.ReplaceAll(opt, "<value>", strconv.Itoa(rnd.Intn(10)+1))
		res = append(res, opt)
	}
	return res
}
