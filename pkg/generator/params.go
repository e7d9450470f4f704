// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package generator

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
)

// Toggle is a generator mode flag that is either left at the generator's default or forced.
type Toggle int

const (
	Default Toggle = iota
	On
	Off
)

// Params are the generator knobs. Zero values are left to the generator.
type Params struct {
	Seed         uint64
	CfgSize      int
	CfbSize      int
	NFuncs       int
	FuncMaxCalls int
	FuncCycles   Toggle
	Loops        Toggle
	Memory       Toggle
	Calls        Toggle
	NoStats      bool
}

const maxGraphSize = 50

// RandomParams picks a seed and structural sizes like the generator's own driver does:
// block size shrinks as the graph size grows.
func RandomParams(rnd *rand.Rand) Params {
	cfg := rnd.Intn(maxGraphSize)
	return Params{
		Seed:    rnd.Uint64(),
		CfgSize: cfg,
		CfbSize: rnd.Intn(maxGraphSize - cfg/2),
	}
}

// ParsePreset parses a generator option string, e.g.
// "-fno-func-cycles --nfuncs 100 --func-maxcalls 2 --cfg-size 5 --cfb-size 5".
func ParsePreset(preset string) (Params, error) {
	var p Params
	fs := flag.NewFlagSet("generator", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&p.CfgSize, "cfg-size", 0, "")
	fs.IntVar(&p.CfbSize, "cfb-size", 0, "")
	fs.IntVar(&p.NFuncs, "nfuncs", 0, "")
	fs.IntVar(&p.FuncMaxCalls, "func-maxcalls", 0, "")
	fs.Func("seed", "", func(s string) error {
		v, err := strconv.ParseUint(s, 0, 64)
		p.Seed = v
		return err
	})
	fs.BoolVar(&p.NoStats, "nostats", false, "")
	for _, tg := range p.toggles() {
		fs.BoolFunc("f"+tg.name, "", func(string) error {
			*tg.val = On
			return nil
		})
		fs.BoolFunc("fno-"+tg.name, "", func(string) error {
			*tg.val = Off
			return nil
		})
	}
	if err := fs.Parse(strings.Fields(preset)); err != nil {
		return Params{}, fmt.Errorf("bad generator options %q: %w", preset, err)
	}
	if fs.NArg() != 0 {
		return Params{}, fmt.Errorf("bad generator options %q: unexpected %q", preset, fs.Arg(0))
	}
	return p, nil
}

type toggle struct {
	name string
	val  *Toggle
}

func (p *Params) toggles() []toggle {
	return []toggle{
		{"func-cycles", &p.FuncCycles},
		{"loops", &p.Loops},
		{"memory", &p.Memory},
		{"calls", &p.Calls},
	}
}

// Merge returns p with all non-default fields of over applied on top.
func (p Params) Merge(over Params) Params {
	if over.Seed != 0 {
		p.Seed = over.Seed
	}
	if over.CfgSize != 0 {
		p.CfgSize = over.CfgSize
	}
	if over.CfbSize != 0 {
		p.CfbSize = over.CfbSize
	}
	if over.NFuncs != 0 {
		p.NFuncs = over.NFuncs
	}
	if over.FuncMaxCalls != 0 {
		p.FuncMaxCalls = over.FuncMaxCalls
	}
	mine, theirs := p.toggles(), over.toggles()
	for i := range mine {
		if *theirs[i].val != Default {
			*mine[i].val = *theirs[i].val
		}
	}
	p.NoStats = p.NoStats || over.NoStats
	return p
}

// Args converts the parameters into generator command line flags.
func (p Params) Args(id string) []string {
	args := []string{
		"--cfg-size", strconv.Itoa(p.CfgSize),
		"--cfb-size", strconv.Itoa(p.CfbSize),
		"--seed", strconv.FormatUint(p.Seed, 10),
		"--strid", id,
	}
	if p.NFuncs != 0 {
		args = append(args, "--nfuncs", strconv.Itoa(p.NFuncs))
	}
	if p.FuncMaxCalls != 0 {
		args = append(args, "--func-maxcalls", strconv.Itoa(p.FuncMaxCalls))
	}
	for _, tg := range p.toggles() {
		switch *tg.val {
		case On:
			args = append(args, "-f"+tg.name)
		case Off:
			args = append(args, "-fno-"+tg.name)
		}
	}
	if p.NoStats {
		args = append(args, "--nostats")
	}
	return args
}

// DefaultPresets are generator option sets exercising different program shapes.
var DefaultPresets = []string{
	// Few functions, complex call graph.
	"-ffunc-cycles --nfuncs 5 --func-maxcalls 5 --cfg-size 10 --cfb-size 10",
	// Many functions, no cycles, small graphs.
	"-fno-func-cycles --nfuncs 100 --func-maxcalls 2 --cfg-size 5 --cfb-size 5",
	// Few big functions without memory operations.
	"-fno-memory --nfuncs 3 --func-maxcalls 2 --cfg-size 100 --cfb-size 100",
}
