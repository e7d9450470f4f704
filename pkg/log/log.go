// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package log provides functionality similar to standard log package with some extensions:
//   - verbosity levels
//   - global verbosity setting that can be used by multiple packages
//   - ability to redirect all output (for tests)
package log

import (
	"fmt"
	"io"
	golog "log"
	"os"
	"sync"
	"sync/atomic"
)

var (
	verbosity atomic.Int32
	mu        sync.Mutex
	logger    = golog.New(os.Stderr, "", golog.LstdFlags)
)

// SetVerbosity sets the maximum level that is still printed.
// Level 0 is always printed.
func SetVerbosity(v int) {
	verbosity.Store(int32(v))
}

// V reports whether messages of level v are printed.
func V(v int) bool {
	return v <= int(verbosity.Load())
}

// SetOutput redirects log output, mostly useful for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

func Logf(v int, msg string, args ...any) {
	if !V(v) {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	logger.Output(2, fmt.Sprintf(msg, args...))
}

func Fatal(err error) {
	Fatalf("%v", err)
}

func Fatalf(msg string, args ...any) {
	mu.Lock()
	logger.Output(2, fmt.Sprintf(msg, args...))
	mu.Unlock()
	os.Exit(1)
}

// VerboseWriter is an io.Writer that logs everything written to it at the given level.
type VerboseWriter int

func (w VerboseWriter) Write(data []byte) (int, error) {
	Logf(int(w), "%s", data)
	return len(data), nil
}
