// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/firmfuzz/firmfuzz/pkg/bucket"
	"github.com/firmfuzz/firmfuzz/pkg/debugger/gdbmi"
	"github.com/firmfuzz/firmfuzz/pkg/debugtracer"
	"github.com/firmfuzz/firmfuzz/pkg/diagnose"
	"github.com/firmfuzz/firmfuzz/pkg/fuzzconfig"
	"github.com/firmfuzz/firmfuzz/pkg/generator"
	"github.com/firmfuzz/firmfuzz/pkg/log"
	"github.com/firmfuzz/firmfuzz/pkg/osutil"
	"github.com/firmfuzz/firmfuzz/pkg/runner"
	"github.com/firmfuzz/firmfuzz/pkg/stat"
	"github.com/firmfuzz/firmfuzz/pkg/triage"
	"github.com/google/uuid"
)

type Fuzzer struct {
	cfg      *fuzzconfig.Config
	instance string
	rnd      *rand.Rand
	ids      *generator.IDs
	gen      *generator.Generator
	presets  []generator.Params
	variants []string
	triager  *triage.Triager
	store    *bucket.Store
}

var (
	statTestCases = stat.New("test cases", "Generated test cases", stat.Console, stat.Rate{},
		stat.Prometheus("firmfuzz_test_cases"))
	statGenFailures = stat.New("generation failures", "Test cases the generator failed to produce",
		stat.Console, stat.Prometheus("firmfuzz_generation_failures"))
	statBugReports = stat.New("bug reports", "Bug reports written", stat.Console,
		stat.Prometheus("firmfuzz_bug_reports"))
)

func newFuzzer(cfg *fuzzconfig.Config) (*Fuzzer, error) {
	if err := osutil.MkdirAll(cfg.ReportDir); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}
	version, err := fuzzconfig.SubjectVersion(cfg.Subject)
	if err != nil {
		return nil, err
	}
	variants := cfg.SubjectOptions
	if len(variants) == 0 {
		variants, err = fuzzconfig.SubjectOptions(cfg.Subject, cfg.ExcludeOptions)
		if err != nil {
			return nil, err
		}
	}
	var presets []generator.Params
	for _, opts := range cfg.GeneratorOptions {
		preset, err := generator.ParsePreset(opts)
		if err != nil {
			return nil, err
		}
		presets = append(presets, preset)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	instance := uuid.New().String()
	log.Logf(0, "instance %v, seed %v, subject %v", instance, seed, strings.SplitN(version, "\n", 2)[0])
	log.Logf(1, "subject options: %q", variants)
	log.Logf(1, "generator options: %q", cfg.GeneratorOptions)

	var tracer debugtracer.DebugTracer = &debugtracer.NullTracer{}
	if log.V(3) {
		tracer = &debugtracer.GenericTracer{
			WithTime:    true,
			TraceWriter: log.VerboseWriter(3),
			OutDir:      filepath.Join(cfg.ReportDir, "debug"),
		}
	}
	intro := diagnose.New(gdbmi.New(cfg.Gdb, tracer), cfg.ReportDir)
	intro.MaxStops = cfg.MaxStops
	intro.FirstWait = cfg.FirstWaitDuration()
	intro.Wait = cfg.WaitDuration()
	intro.DumpFunc = cfg.DumpFunc
	intro.NodeType = cfg.NodeType

	rnd := rand.New(rand.NewSource(seed))
	fz := &Fuzzer{
		cfg:      cfg,
		instance: instance,
		rnd:      rnd,
		ids:      generator.NewIDs(time.Now()),
		gen: &generator.Generator{
			Bin:     cfg.Generator,
			Dir:     cfg.ReportDir,
			Timeout: cfg.GeneratorDeadline(),
		},
		presets:  presets,
		variants: variants,
		triager: &triage.Triager{
			Subject:  cfg.Subject,
			Flags:    cfg.SubjectFlags,
			Deadline: cfg.SubjectDeadline(),
			Version:  version,
			Instance: instance,
			Rand:     rnd,
			Runner:   &runner.Runner{Dir: cfg.ReportDir},
			Debug:    intro,
			Progress: os.Stderr,
		},
		store: &bucket.Store{Dir: cfg.ReportDir},
	}
	fz.logKnownSignatures()
	return fz, nil
}

func (fz *Fuzzer) logKnownSignatures() {
	stats, err := bucket.ReadStatFile(filepath.Join(fz.cfg.ReportDir, "signatures.json"))
	if err != nil {
		log.Logf(0, "failed to read signature stats: %v", err)
		return
	}
	freqs := stats.Explain()
	if len(freqs) == 0 {
		return
	}
	log.Logf(0, "%v known signatures from %v reports", len(freqs), stats.Count)
	for _, freq := range freqs {
		log.Logf(1, "%v", freq)
	}
}

// loop runs all generator presets for the configured number of iterations
// or until the process is interrupted.
func (fz *Fuzzer) loop() {
	shutdown := make(chan struct{})
	osutil.HandleInterrupts(shutdown)
	go fz.heartbeat(shutdown)
	for i := 0; i < fz.cfg.Iterations; i++ {
		for _, preset := range fz.presets {
			select {
			case <-shutdown:
				return
			default:
			}
			fz.fuzzOne(preset)
		}
	}
}

func (fz *Fuzzer) fuzzOne(preset generator.Params) {
	id := fz.ids.Next()
	statTestCases.Add(1)
	params := generator.RandomParams(fz.rnd).Merge(preset)
	tc, err := fz.gen.Generate(id, params)
	if err != nil {
		statGenFailures.Add(1)
		log.Logf(0, "could not generate ir graph: %v", err)
		fz.discard(id)
		return
	}
	rep := fz.triager.Run(tc, fz.variants)
	if !rep.IsBugReport() {
		fz.discard(id)
		return
	}
	file, err := fz.store.Save(rep)
	if err != nil {
		log.Logf(0, "failed to save report %v: %v", id, err)
		return
	}
	statBugReports.Add(1)
	fmt.Fprintf(os.Stderr, "\nReport was written to %v (%v)\n", file, rep.Summary())
}

func (fz *Fuzzer) discard(id string) {
	if err := fz.store.Discard(id); err != nil {
		log.Logf(0, "failed to remove artifacts of %v: %v", id, err)
	}
}

func (fz *Fuzzer) heartbeat(shutdown chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-shutdown:
			return
		case <-ticker.C:
		}
		var parts []string
		for _, v := range stat.Collect(stat.Console) {
			parts = append(parts, fmt.Sprintf("%v %v", v.Name, v.Value))
		}
		log.Logf(0, "\n%v", strings.Join(parts, ", "))
	}
}
