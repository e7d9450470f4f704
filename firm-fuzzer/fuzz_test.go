// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package main

import (
	"path/filepath"
	"testing"

	"github.com/firmfuzz/firmfuzz/pkg/fuzzconfig"
	"github.com/firmfuzz/firmfuzz/pkg/generator"
	"github.com/firmfuzz/firmfuzz/pkg/osutil"
	"github.com/firmfuzz/firmfuzz/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const generatorScript = `
while [ $# -gt 0 ]; do
	if [ "$1" = "--strid" ]; then id=$2; fi
	shift
done
echo graph > $id.ir
echo graph > $id.vcg`

func testConfig(t *testing.T, subjectBody string) *fuzzconfig.Config {
	cfg := fuzzconfig.DefaultValues()
	cfg.Subject = testutil.Script(t, "cparser", `
if [ "$1" = "--version" ]; then echo "cparser 1.22.1"; exit 0; fi
`+subjectBody)
	cfg.Generator = testutil.Script(t, "firmsmith", generatorScript)
	cfg.Gdb = "/nonexistent/gdb"
	cfg.ReportDir = t.TempDir()
	cfg.SubjectOptions = []string{"-fgvn", "-fif-conv"}
	cfg.Seed = 1
	return cfg
}

func TestFuzzOneSuccess(t *testing.T) {
	cfg := testConfig(t, "exit 0")
	fz, err := newFuzzer(cfg)
	require.NoError(t, err)
	assert.Equal(t, "cparser 1.22.1", fz.triager.Version)
	assert.NotEmpty(t, fz.instance)
	require.Len(t, fz.presets, len(generator.DefaultPresets))

	fz.fuzzOne(fz.presets[0])
	files, err := osutil.ListDir(cfg.ReportDir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFuzzOneBugReport(t *testing.T) {
	cfg := testConfig(t, `
echo "cparser: Assertion failed: x, file ir/opt/gvn.c, line 12" >&2
exit 1`)
	fz, err := newFuzzer(cfg)
	require.NoError(t, err)

	fz.fuzzOne(fz.presets[0])
	bucketDir := filepath.Join(cfg.ReportDir, "a_ir_opt_gvn.c_12")
	reports, err := filepath.Glob(filepath.Join(bucketDir, "*.txt"))
	require.NoError(t, err)
	require.Len(t, reports, 1)
	archives, err := filepath.Glob(filepath.Join(bucketDir, "*.tar.xz"))
	require.NoError(t, err)
	assert.Len(t, archives, 1)
	assert.True(t, osutil.IsExist(filepath.Join(cfg.ReportDir, "signatures.json")))
	leftovers, err := filepath.Glob(filepath.Join(cfg.ReportDir, "*.ir"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFuzzOneGeneratorFailure(t *testing.T) {
	cfg := testConfig(t, "exit 0")
	cfg.Generator = testutil.Script(t, "firmsmith", "exit 2")
	fz, err := newFuzzer(cfg)
	require.NoError(t, err)
	failures := statGenFailures.Val()
	fz.fuzzOne(fz.presets[0])
	assert.Equal(t, failures+1, statGenFailures.Val())
}
