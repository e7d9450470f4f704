// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzconfig

import "time"

type Config struct {
	// Path to the compiler under test.
	Subject string `json:"subject" yaml:"subject"`
	// Path to the random IR generator.
	Generator string `json:"generator" yaml:"generator"`
	// Debugger binary used to diagnose hangs and aborts ("gdb" by default).
	Gdb string `json:"gdb,omitempty" yaml:"gdb,omitempty"`
	// Location of the report directory. Outputs here include:
	// - <report_dir>/<id>.{ir,vcg}: inputs of the current test case
	// - <report_dir>/<signature>/<id>.txt: bug reports
	// - <report_dir>/<signature>/<id>.tar.xz: bundle with all artifacts of a bug report
	// - <report_dir>/signatures.json: number of reports per signature
	ReportDir string `json:"report_dir" yaml:"report_dir"`
	// Subject flags passed to every run after the input file (e.g. ["-O0", "-m32"]).
	SubjectFlags []string `json:"subject_flags" yaml:"subject_flags"`
	// Subject option variants, each string is one run. "<size>" and "<value>"
	// are replaced with random numbers. If empty, every optimization
	// reported by "<subject> --help-optimization" is a variant.
	SubjectOptions []string `json:"subject_options,omitempty" yaml:"subject_options,omitempty"`
	// Optimizations never selected from the subject's catalog.
	ExcludeOptions []string `json:"exclude_options,omitempty" yaml:"exclude_options,omitempty"`
	// Generator option presets, one test case per preset per iteration.
	GeneratorOptions []string `json:"generator_options,omitempty" yaml:"generator_options,omitempty"`
	// Number of fuzzing iterations over all generator presets.
	Iterations int `json:"iterations" yaml:"iterations"`
	// Timeouts in seconds.
	SubjectTimeout   int `json:"subject_timeout" yaml:"subject_timeout"`
	GeneratorTimeout int `json:"generator_timeout" yaml:"generator_timeout"`
	// Debugger session parameters: the number of stack samples of a hanging subject,
	// the wait before the first sample and between the following samples (in milliseconds).
	MaxStops  int `json:"max_stops" yaml:"max_stops"`
	FirstWait int `json:"first_wait" yaml:"first_wait"`
	Wait      int `json:"wait" yaml:"wait"`
	// Subject function called at the last sample to dump IR graphs (empty disables dumps).
	DumpFunc string `json:"dump_func" yaml:"dump_func"`
	// IR node type name, arguments of this type are annotated in stack traces.
	NodeType string `json:"node_type" yaml:"node_type"`
	// Seed for option placeholders and generator parameters (random if 0).
	Seed int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
	// Address to serve Prometheus metrics on (e.g. "localhost:50000", optional).
	HTTP string `json:"http,omitempty" yaml:"http,omitempty"`
	// Files to write cpu/memory profiles of the fuzzer to (optional).
	CPUProfile string `json:"cpu_profile,omitempty" yaml:"cpu_profile,omitempty"`
	MemProfile string `json:"mem_profile,omitempty" yaml:"mem_profile,omitempty"`
}

func (cfg *Config) SubjectDeadline() time.Duration {
	return time.Duration(cfg.SubjectTimeout) * time.Second
}

func (cfg *Config) GeneratorDeadline() time.Duration {
	return time.Duration(cfg.GeneratorTimeout) * time.Second
}

func (cfg *Config) FirstWaitDuration() time.Duration {
	return time.Duration(cfg.FirstWait) * time.Millisecond
}

func (cfg *Config) WaitDuration() time.Duration {
	return time.Duration(cfg.Wait) * time.Millisecond
}
