// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"flag"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestParseFlags(t *testing.T) {
	type Values struct {
		Subject   []string
		Generator []string
		Debug     bool
	}
	type Test struct {
		args string
		vals *Values
	}
	tests := []Test{
		{"", &Values{}},
		{"-debug", &Values{Debug: true}},
		{"-subject-option=-finline -subject-option=-fgvn -debug",
			&Values{Subject: []string{"-finline", "-fgvn"}, Debug: true}},
		{"-generator-option=-floops", &Values{Generator: []string{"-floops"}}},
		{"-debug stray", nil},
		{"-unknown", nil},
		{"-subject-option=", nil},
	}
	for i, test := range tests {
		t.Run(test.args, func(t *testing.T) {
			var subject, generator StringsFlag
			vals := new(Values)
			set := flag.NewFlagSet("test", flag.ContinueOnError)
			set.SetOutput(io.Discard)
			set.Var(&subject, "subject-option", "")
			set.Var(&generator, "generator-option", "")
			set.BoolVar(&vals.Debug, "debug", false, "")
			err := ParseFlags(set, strings.Fields(test.args))
			if test.vals == nil {
				if err == nil {
					t.Fatalf("#%v: parsing did not fail", i)
				}
				return
			}
			if err != nil {
				t.Fatalf("#%v: parsing failed: %v", i, err)
			}
			vals.Subject = subject
			vals.Generator = generator
			if diff := cmp.Diff(test.vals, vals); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestStringsFlagKeepsSpaces(t *testing.T) {
	var f StringsFlag
	assert.NoError(t, f.Set("-fno-memory --nfuncs 3"))
	assert.NoError(t, f.Set("-floops"))
	assert.Equal(t, StringsFlag{"-fno-memory --nfuncs 3", "-floops"}, f)
	assert.Equal(t, "-fno-memory --nfuncs 3, -floops", f.String())
}
