// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"flag"
	"fmt"
	"strings"
)

// ParseFlags parses args and rejects positional arguments.
func ParseFlags(set *flag.FlagSet, args []string) error {
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() != 0 {
		return fmt.Errorf("unexpected arguments: %q", set.Args())
	}
	return nil
}

// StringsFlag collects values of a flag that may be given several times.
// Each value is kept as is, including spaces.
type StringsFlag []string

func (f *StringsFlag) String() string {
	return strings.Join(*f, ", ")
}

func (f *StringsFlag) Set(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("empty value")
	}
	*f = append(*f, value)
	return nil
}
