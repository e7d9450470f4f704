// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package report

import (
	"regexp"
	"strings"
)

var assertionRe = regexp.MustCompile(`(?m)Assertion failed: .* file (.*), line (\d*)`)

// maxContributions bounds the number of records that form a signature.
const maxContributions = 3

// Identify computes the bug signature of the report.
// Timeouts contribute before aborts. Only the first few contributions are used
// and duplicates among them are dropped, so reports that differ in later
// records share a signature.
func Identify(rep *Report) string {
	var parts []string
	for _, rec := range rep.Timeouts {
		parts = append(parts, "t_"+strings.Join(rec.VariantArgs(), "_"))
	}
	for _, rec := range rep.Aborts {
		if loc, ok := AssertionLocation(rec.Stderr); ok {
			parts = append(parts, "a_"+loc)
		} else {
			parts = append(parts, "a_"+strings.Join(rec.VariantArgs(), "_"))
		}
	}
	if len(parts) > maxContributions {
		parts = parts[:maxContributions]
	}
	var res []string
	seen := make(map[string]bool)
	for _, part := range parts {
		if seen[part] {
			continue
		}
		seen[part] = true
		res = append(res, part)
	}
	return strings.Join(res, "_")
}

// AssertionLocation extracts "<file>_<line>" of the first failed assertion in output,
// with path separators replaced by underscores.
func AssertionLocation(output string) (string, bool) {
	match := assertionRe.FindStringSubmatch(output)
	if match == nil {
		return "", false
	}
	return strings.ReplaceAll(match[1]+"_"+match[2], "/", "_"), true
}
