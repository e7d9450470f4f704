// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stack

import (
	"strings"
)

// Normalize strips the per-sample "frame #N: 0xADDR " prefix from a frame line.
func Normalize(line string) string {
	pos := strings.Index(line, ": ")
	if pos == -1 {
		return line
	}
	line = line[pos+2:]
	if strings.HasPrefix(line, "0x") {
		if sp := strings.IndexByte(line, ' '); sp != -1 {
			line = line[sp+1:]
		}
	}
	return line
}

// CommonSuffix returns the longest common outermost part of the traces.
// In every trace index 0 is the innermost frame; the result is ordered
// from the outermost frame inwards. Frame prefixes are ignored, and runs
// of identical consecutive frames count as a single frame.
func CommonSuffix(traces [][]string) []string {
	if len(traces) == 0 {
		return nil
	}
	pos := make([]int, len(traces))
	for i, trace := range traces {
		pos[i] = len(trace) - 1
	}
	var common []string
	for {
		same := ""
		for i, trace := range traces {
			if pos[i] < 0 {
				return common
			}
			frame := Normalize(trace[pos[i]])
			if i == 0 {
				same = frame
			} else if frame != same {
				return common
			}
		}
		common = append(common, same)
		for i, trace := range traces {
			// Debuggers sometimes list the same frame twice.
			for pos[i] >= 0 && Normalize(trace[pos[i]]) == same {
				pos[i]--
			}
		}
	}
}
