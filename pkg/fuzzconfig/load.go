// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package fuzzconfig holds the fuzzer configuration.
package fuzzconfig

import (
	"fmt"
	"path/filepath"

	"github.com/firmfuzz/firmfuzz/pkg/config"
	"github.com/firmfuzz/firmfuzz/pkg/generator"
	"github.com/firmfuzz/firmfuzz/pkg/osutil"
)

// Names of the config files looked up in the working directory, in order.
var fileNames = []string{"firmfuzz.cfg", "firmfuzz.yml", "firmfuzz.yaml"}

// Find returns the config file in dir, or "" if there is none.
func Find(dir string) string {
	for _, name := range fileNames {
		file := filepath.Join(dir, name)
		if osutil.IsExist(file) {
			return file
		}
	}
	return ""
}

// Load loads the config file found in dir, or the defaults if there is none.
func Load(dir string) (*Config, error) {
	if file := Find(dir); file != "" {
		return LoadFile(file)
	}
	cfg := DefaultValues()
	if err := Complete(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadData(data []byte) (*Config, error) {
	cfg := DefaultValues()
	if err := config.LoadData(data, cfg); err != nil {
		return nil, err
	}
	if err := Complete(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadFile(filename string) (*Config, error) {
	cfg := DefaultValues()
	if err := config.LoadFile(filename, cfg); err != nil {
		return nil, err
	}
	if err := Complete(cfg); err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return cfg, nil
}

// DefaultValues returns the config of the usual checkout layout:
// the fuzzer runs next to the generator build with the subject in a sibling checkout.
func DefaultValues() *Config {
	return &Config{
		Subject:          "../cparser/build/debug/cparser",
		Generator:        "./build/debug/firmsmith",
		Gdb:              "gdb",
		ReportDir:        "./bugreports",
		SubjectFlags:     []string{"-O0", "-m32"},
		ExcludeOptions:   []string{"-fdeconv", "-freassociation", "-fthread-jumps", "-fcombo"},
		GeneratorOptions: append([]string{}, generator.DefaultPresets...),
		Iterations:       1000,
		SubjectTimeout:   10,
		GeneratorTimeout: 5,
		MaxStops:         3,
		FirstWait:        8000,
		Wait:             1000,
		DumpFunc:         "dump_all_ir_graphs",
		NodeType:         "ir_node",
	}
}

func Complete(cfg *Config) error {
	if cfg.Subject == "" {
		return fmt.Errorf("config param subject is empty")
	}
	if cfg.Generator == "" {
		return fmt.Errorf("config param generator is empty")
	}
	if cfg.ReportDir == "" {
		return fmt.Errorf("config param report_dir is empty")
	}
	cfg.Subject = osutil.Abs(cfg.Subject)
	cfg.Generator = osutil.Abs(cfg.Generator)
	cfg.ReportDir = osutil.Abs(cfg.ReportDir)
	if cfg.Gdb == "" {
		cfg.Gdb = "gdb"
	}
	if cfg.Iterations < 1 {
		return fmt.Errorf("bad config param iterations: %v", cfg.Iterations)
	}
	if cfg.SubjectTimeout < 1 || cfg.GeneratorTimeout < 1 {
		return fmt.Errorf("bad config timeouts: subject %v, generator %v",
			cfg.SubjectTimeout, cfg.GeneratorTimeout)
	}
	if cfg.MaxStops < 1 {
		return fmt.Errorf("bad config param max_stops: %v", cfg.MaxStops)
	}
	if cfg.FirstWait < 1 || cfg.Wait < 1 {
		return fmt.Errorf("bad config debugger waits: first_wait %v, wait %v", cfg.FirstWait, cfg.Wait)
	}
	if len(cfg.GeneratorOptions) == 0 {
		return fmt.Errorf("config param generator_options is empty")
	}
	for _, preset := range cfg.GeneratorOptions {
		if _, err := generator.ParsePreset(preset); err != nil {
			return err
		}
	}
	return nil
}
