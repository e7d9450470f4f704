// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package osutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExist(t *testing.T) {
	if f := os.Args[0]; !IsExist(f) {
		t.Fatalf("executable %v does not exist", f)
	}
	if f := os.Args[0] + "-foo-bar-buz"; IsExist(f) {
		t.Fatalf("file %v exists", f)
	}
}

func TestRunCmd(t *testing.T) {
	out, err := RunCmd(time.Minute, "", "sh", "-c", "echo out; echo err >&2")
	require.NoError(t, err)
	assert.Equal(t, "out\nerr\n", string(out))

	_, err = RunCmd(time.Minute, "", "sh", "-c", "exit 3")
	var verr *VerboseError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 3, verr.ExitCode)
	assert.False(t, verr.Timedout)

	_, err = RunCmd(time.Minute, "", "sh", "-c", "kill -ABRT $$")
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, -6, verr.ExitCode)
}

func TestRunTimeout(t *testing.T) {
	start := time.Now()
	_, err := RunCmd(200*time.Millisecond, "", "sh", "-c", "sleep 30")
	var verr *VerboseError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Timedout)
	assert.Less(t, time.Since(start), 20*time.Second)
}

func TestRename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "b")
	require.NoError(t, WriteFile(src, []byte("data")))
	require.NoError(t, Rename(src, dst))
	assert.False(t, IsExist(src))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestListDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"x-1.ir", "x-1.vcg"} {
		require.NoError(t, WriteFile(filepath.Join(dir, name), nil))
	}
	require.NoError(t, MkdirAll(filepath.Join(dir, "sub")))
	names, err := ListDir(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x-1.ir", "x-1.vcg", "sub"}, names)
	_, err = ListDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
