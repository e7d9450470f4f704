// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package runner executes the subject directly and classifies the outcome.
package runner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/firmfuzz/firmfuzz/pkg/log"
	"github.com/firmfuzz/firmfuzz/pkg/osutil"
	"github.com/firmfuzz/firmfuzz/pkg/report"
)

type Runner struct {
	// Dir is the working directory of the subject.
	Dir string
}

// HangError is returned when the subject did not exit before the deadline.
// The subject's process group is killed by then.
type HangError struct {
	Args     []string
	Deadline time.Duration
}

func (err *HangError) Error() string {
	return fmt.Sprintf("%q did not exit in %v", err.Args, err.Deadline)
}

func IsHang(err error) bool {
	var hang *HangError
	return errors.As(err, &hang)
}

// Run starts args[0] with args[1:] and waits up to deadline for it to exit.
// A clean exit yields a Success record and a non-zero exit an Abort record.
func (r *Runner) Run(args []string, deadline time.Duration) (*report.RunRecord, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	cmd := osutil.Command(args[0], args[1:]...)
	cmd.Dir = r.Dir
	cmd.Stdout = io.Discard
	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %v: %w", args[0], err)
	}
	timedout, err := osutil.Wait(cmd, deadline)
	duration := time.Since(start)
	if timedout {
		log.Logf(1, "%q timed out after %v", args, duration)
		return nil, &HangError{Args: args, Deadline: deadline}
	}
	rec := &report.RunRecord{
		Args:     args,
		Outcome:  report.Success,
		Stderr:   stderr.String(),
		Duration: duration,
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to wait for %v: %w", args[0], err)
		}
		rec.Outcome = report.Abort
		rec.ExitCode = osutil.ExitCode(err)
		log.Logf(1, "%q exited with %v", args, rec.ExitCode)
	}
	return rec, nil
}
