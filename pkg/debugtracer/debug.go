// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package debugtracer provides sinks for debugger protocol transcripts.
package debugtracer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/firmfuzz/firmfuzz/pkg/osutil"
)

type DebugTracer interface {
	Log(msg string, args ...any)
	SaveFile(filename string, data []byte)
}

type GenericTracer struct {
	WithTime    bool
	TraceWriter io.Writer
	OutDir      string
}

type TestTracer struct {
	T testing.TB
}

type NullTracer struct {
}

// Transcript keeps all logged lines in memory.
type Transcript struct {
	mu    sync.Mutex
	lines []string
}

func (gt *GenericTracer) Log(msg string, args ...any) {
	if gt.WithTime {
		timeStr := time.Now().Format("02-Jan-2006 15:04:05")
		newArgs := append([]any{timeStr}, args...)
		fmt.Fprintf(gt.TraceWriter, "%s: "+msg+"\n", newArgs...)
	} else {
		fmt.Fprintf(gt.TraceWriter, msg+"\n", args...)
	}
}

func (gt *GenericTracer) SaveFile(filename string, data []byte) {
	if gt.OutDir == "" {
		return
	}
	osutil.MkdirAll(gt.OutDir)
	osutil.WriteFile(filepath.Join(gt.OutDir, filename), data)
}

func (tt *TestTracer) Log(msg string, args ...any) {
	tt.T.Logf(msg, args...)
}

func (tt *TestTracer) SaveFile(filename string, data []byte) {
	tt.T.Logf("%v:\n%s", filename, data)
}

func (nt *NullTracer) Log(msg string, args ...any) {
	// Not implemented.
}

func (nt *NullTracer) SaveFile(filename string, data []byte) {
	// Not implemented.
}

func (tr *Transcript) Log(msg string, args ...any) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.lines = append(tr.lines, fmt.Sprintf(msg, args...))
}

// SaveFile appends the file contents to the transcript.
func (tr *Transcript) SaveFile(filename string, data []byte) {
	tr.Log("%v: %s", filename, data)
}

func (tr *Transcript) String() string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return strings.Join(tr.lines, "\n")
}
