// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzconfig

import (
	"bufio"
	"bytes"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/firmfuzz/firmfuzz/pkg/osutil"
)

const queryTimeout = time.Minute

// SubjectVersion returns the output of "<subject> --version".
func SubjectVersion(bin string) (string, error) {
	out, err := osutil.RunCmd(queryTimeout, "", bin, "--version")
	if err != nil {
		return "", osutil.PrependContext("failed to query subject version", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// SubjectOptions returns the subject's optimizations usable as option variants.
func SubjectOptions(bin string, exclude []string) ([]string, error) {
	out, err := osutil.RunCmd(queryTimeout, "", bin, "--help-optimization")
	if err != nil {
		return nil, osutil.PrependContext("failed to query subject optimizations", err)
	}
	opts := ParseOptimizations(out, exclude)
	if len(opts) == 0 {
		return nil, fmt.Errorf("subject reported no usable optimizations")
	}
	return opts, nil
}

// ParseOptimizations extracts optimization flags from the subject's help output.
// Negative forms and flags that only verify or dump IR are skipped,
// as are the excluded ones.
func ParseOptimizations(output []byte, exclude []string) []string {
	var opts []string
	s := bufio.NewScanner(bytes.NewReader(output))
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) == 0 {
			continue
		}
		opt := fields[0]
		if !strings.HasPrefix(opt, "-f") ||
			strings.HasPrefix(opt, "-fno-") ||
			opt == "-fshape-blocks" ||
			opt == "-foccults" ||
			strings.Contains(opt, "-fverify") ||
			strings.Contains(opt, "-fdump") ||
			slices.Contains(exclude, opt) {
			continue
		}
		opts = append(opts, opt)
	}
	return opts
}
