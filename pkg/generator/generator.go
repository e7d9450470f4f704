// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package generator drives the external random IR generator.
package generator

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/firmfuzz/firmfuzz/pkg/log"
	"github.com/firmfuzz/firmfuzz/pkg/osutil"
)

// TestCase is a generated input.
type TestCase struct {
	ID     string
	Params Params
	// Invocation is the generator command line, for reports.
	Invocation string
	IRFile     string
	VCGFile    string
}

type Generator struct {
	Bin string
	// Dir is where the generator runs and writes its artifacts.
	Dir     string
	Timeout time.Duration
}

// Failure means the generator failed or did not finish in time.
type Failure struct {
	Invocation string
	ExitCode   int
	Timedout   bool
	Output     []byte
	Reason     string
}

func (err *Failure) Error() string {
	switch {
	case err.Timedout:
		return fmt.Sprintf("generator timed out: %v", err.Invocation)
	case err.Reason != "":
		return fmt.Sprintf("generator %v: %v", err.Reason, err.Invocation)
	}
	return fmt.Sprintf("generator exited with %v: %v", err.ExitCode, err.Invocation)
}

// Generate runs the generator to produce the IR of test case id.
func (g *Generator) Generate(id string, params Params) (*TestCase, error) {
	args := params.Args(id)
	tc := &TestCase{
		ID:         id,
		Params:     params,
		Invocation: strings.Join(append([]string{filepath.Base(g.Bin)}, args...), " "),
		IRFile:     filepath.Join(g.Dir, id+".ir"),
		VCGFile:    filepath.Join(g.Dir, id+".vcg"),
	}
	log.Logf(1, "generating: %v", tc.Invocation)
	output, err := osutil.RunCmd(g.Timeout, g.Dir, g.Bin, args...)
	if err != nil {
		fail := &Failure{Invocation: tc.Invocation, ExitCode: -1, Output: output}
		var verr *osutil.VerboseError
		if errors.As(err, &verr) {
			fail.ExitCode = verr.ExitCode
			fail.Timedout = verr.Timedout
		} else {
			fail.Reason = err.Error()
		}
		return nil, fail
	}
	if !osutil.IsExist(tc.IRFile) {
		return nil, &Failure{Invocation: tc.Invocation, Output: output, Reason: "did not produce " + tc.IRFile}
	}
	return tc, nil
}

// IDs allocates test case ids of the form <start timestamp>-<counter>.
type IDs struct {
	mu    sync.Mutex
	stamp string
	next  int
}

func NewIDs(start time.Time) *IDs {
	return &IDs{
		stamp: start.Format("20060102150405"),
		next:  2,
	}
}

func (ids *IDs) Next() string {
	ids.mu.Lock()
	defer ids.mu.Unlock()
	id := fmt.Sprintf("%v-%v", ids.stamp, ids.next)
	ids.next++
	return id
}
