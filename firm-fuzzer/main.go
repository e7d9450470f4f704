// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// firm-fuzzer generates random IR graphs, compiles them with every subject
// option variant and files bug reports for variants that hang or abort.
// Settings beyond the command line flags are read from firmfuzz.cfg
// (or firmfuzz.yml) in the working directory if present.
package main

import (
	"flag"
	"os"

	"github.com/firmfuzz/firmfuzz/pkg/fuzzconfig"
	"github.com/firmfuzz/firmfuzz/pkg/generator"
	"github.com/firmfuzz/firmfuzz/pkg/log"
	"github.com/firmfuzz/firmfuzz/pkg/tool"
)

var (
	flagSubjectOptions   tool.StringsFlag
	flagGeneratorOptions tool.StringsFlag
	flagDebug            = flag.Bool("debug", false, "enable debugging output")
)

func main() {
	flag.Var(&flagSubjectOptions, "subject-option",
		"subject options to apply on generated graphs (may be given several times)")
	flag.Var(&flagGeneratorOptions, "generator-option",
		"generator options for graph generation (may be given several times)")
	if err := tool.ParseFlags(flag.CommandLine, os.Args[1:]); err != nil {
		tool.Fail(err)
	}
	if *flagDebug {
		log.SetVerbosity(1)
	}
	cfg, err := fuzzconfig.Load(".")
	if err != nil {
		tool.Failf("failed to load config: %v", err)
	}
	if len(flagSubjectOptions) != 0 {
		cfg.SubjectOptions = flagSubjectOptions
	}
	if len(flagGeneratorOptions) != 0 {
		for _, preset := range flagGeneratorOptions {
			if _, err := generator.ParsePreset(preset); err != nil {
				tool.Fail(err)
			}
		}
		cfg.GeneratorOptions = flagGeneratorOptions
	}
	defer tool.InstallProfiling(cfg.CPUProfile, cfg.MemProfile)()
	fz, err := newFuzzer(cfg)
	if err != nil {
		log.Fatal(err)
	}
	fz.initHTTP()
	fz.loop()
}
