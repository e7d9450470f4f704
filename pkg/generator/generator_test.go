// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package generator

import (
	"errors"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/firmfuzz/firmfuzz/pkg/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePreset(t *testing.T) {
	tests := []struct {
		preset string
		params Params
	}{
		{
			preset: DefaultPresets[0],
			params: Params{FuncCycles: On, NFuncs: 5, FuncMaxCalls: 5, CfgSize: 10, CfbSize: 10},
		},
		{
			preset: DefaultPresets[1],
			params: Params{FuncCycles: Off, NFuncs: 100, FuncMaxCalls: 2, CfgSize: 5, CfbSize: 5},
		},
		{
			preset: DefaultPresets[2],
			params: Params{Memory: Off, NFuncs: 3, FuncMaxCalls: 2, CfgSize: 100, CfbSize: 100},
		},
		{
			preset: "--seed 0x10 -floops -fno-calls --nostats",
			params: Params{Seed: 16, Loops: On, Calls: Off, NoStats: true},
		},
		{
			preset: "",
		},
	}
	for _, test := range tests {
		params, err := ParsePreset(test.preset)
		require.NoError(t, err, test.preset)
		if diff := cmp.Diff(test.params, params); diff != "" {
			t.Errorf("%q: params mismatch (-want +got):\n%s", test.preset, diff)
		}
	}
}

func TestParsePresetErrors(t *testing.T) {
	for _, preset := range []string{
		"--cfg-size",
		"--cfg-size big",
		"-fwhatever",
		"--seed -1",
		"--nfuncs 3 stray",
	} {
		_, err := ParsePreset(preset)
		assert.Error(t, err, preset)
	}
}

func TestArgs(t *testing.T) {
	random := Params{Seed: 123, CfgSize: 40, CfbSize: 7}
	preset, err := ParsePreset(DefaultPresets[1])
	require.NoError(t, err)
	assert.Equal(t, []string{
		"--cfg-size", "5", "--cfb-size", "5", "--seed", "123", "--strid", "20261018120000-2",
		"--nfuncs", "100", "--func-maxcalls", "2", "-fno-func-cycles",
	}, random.Merge(preset).Args("20261018120000-2"))
	assert.Equal(t, []string{"--cfg-size", "40", "--cfb-size", "7", "--seed", "123", "--strid", "x"},
		random.Args("x"))
}

func TestMergeKeepsBase(t *testing.T) {
	base := Params{Seed: 1, CfgSize: 2, Loops: On, Memory: Off}
	got := base.Merge(Params{Memory: On, NFuncs: 4})
	assert.Equal(t, Params{Seed: 1, CfgSize: 2, Loops: On, Memory: On, NFuncs: 4}, got)
	assert.Equal(t, Off, base.Memory)
}

func TestRandomParams(t *testing.T) {
	rnd := rand.New(testutil.RandSource(t))
	for i := 0; i < testutil.IterCount(); i++ {
		p := RandomParams(rnd)
		assert.GreaterOrEqual(t, p.CfgSize, 0)
		assert.Less(t, p.CfgSize, maxGraphSize)
		assert.GreaterOrEqual(t, p.CfbSize, 0)
		assert.Less(t, p.CfbSize, maxGraphSize-p.CfgSize/2)
	}
}

func TestIDs(t *testing.T) {
	ids := NewIDs(time.Date(2026, 10, 18, 12, 3, 4, 0, time.UTC))
	assert.Equal(t, "20261018120304-2", ids.Next())
	assert.Equal(t, "20261018120304-3", ids.Next())
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	bin := testutil.Script(t, "firmsmith", `
while [ $# -gt 0 ]; do
	if [ "$1" = "--strid" ]; then id=$2; fi
	shift
done
touch $id.ir $id.vcg`)
	gen := &Generator{Bin: bin, Dir: dir, Timeout: 10 * time.Second}
	tc, err := gen.Generate("id-2", Params{Seed: 9, CfgSize: 1, CfbSize: 2})
	require.NoError(t, err)
	assert.Equal(t, "id-2", tc.ID)
	assert.Equal(t, filepath.Join(dir, "id-2.ir"), tc.IRFile)
	assert.Equal(t, filepath.Join(dir, "id-2.vcg"), tc.VCGFile)
	assert.Equal(t, "firmsmith --cfg-size 1 --cfb-size 2 --seed 9 --strid id-2", tc.Invocation)
	assert.FileExists(t, tc.IRFile)
}

func TestGenerateFailure(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		timedout bool
		exitCode int
	}{
		{"exit", "echo oops; exit 3", false, 3},
		{"hang", "sleep 1000", true, -9},
		{"no output", "true", false, 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			gen := &Generator{
				Bin:     testutil.Script(t, "firmsmith", test.body),
				Dir:     t.TempDir(),
				Timeout: 500 * time.Millisecond,
			}
			tc, err := gen.Generate("id", Params{})
			assert.Nil(t, tc)
			var fail *Failure
			require.True(t, errors.As(err, &fail), "%v", err)
			assert.Equal(t, test.timedout, fail.Timedout)
			if !test.timedout {
				assert.Equal(t, test.exitCode, fail.ExitCode)
			}
		})
	}
}
