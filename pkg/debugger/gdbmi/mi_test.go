// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package gdbmi

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord(t *testing.T) {
	tests := []struct {
		line string
		rec  *record
	}{
		{
			line: `12^done`,
			rec:  &record{kind: kindResult, token: 12, class: "done", results: tuple{}},
		},
		{
			line: `3^error,msg="No symbol \"foo\" in current context."`,
			rec: &record{kind: kindResult, token: 3, class: "error",
				results: tuple{"msg": `No symbol "foo" in current context.`}},
		},
		{
			line: `*stopped,reason="signal-received",signal-name="SIGINT",frame={addr="0x1",func="f",args=[]},thread-id="1"`,
			rec: &record{kind: kindExec, token: -1, class: "stopped", results: tuple{
				"reason":      "signal-received",
				"signal-name": "SIGINT",
				"frame":       tuple{"addr": "0x1", "func": "f", "args": list(nil)},
				"thread-id":   "1",
			}},
		},
		{
			line: `5^done,stack=[frame={level="0",addr="0x10"},frame={level="1",addr="0x20"}]`,
			rec: &record{kind: kindResult, token: 5, class: "done", results: tuple{
				"stack": list{tuple{"level": "0", "addr": "0x10"}, tuple{"level": "1", "addr": "0x20"}},
			}},
		},
		{
			line: `=thread-group-started,id="i1",pid="4242"`,
			rec: &record{kind: kindNotify, token: -1, class: "thread-group-started",
				results: tuple{"id": "i1", "pid": "4242"}},
		},
		{
			line: `~"foo + 12 in section .text\n"`,
			rec:  &record{kind: kindConsole, token: -1, text: "foo + 12 in section .text\n"},
		},
		{
			line: `&"warning: \101\tx\\"`,
			rec:  &record{kind: kindLog, token: -1, text: "warning: A\tx\\"},
		},
		{
			line: `^done,value=["a","b"],empty={}`,
			rec: &record{kind: kindResult, token: -1, class: "done",
				results: tuple{"value": list{"a", "b"}, "empty": tuple{}}},
		},
		{
			line: `(gdb) `,
			rec:  &record{kind: kindPrompt, token: -1},
		},
	}
	for _, test := range tests {
		rec, err := parseRecord(test.line)
		require.NoError(t, err, test.line)
		if diff := cmp.Diff(test.rec, rec, cmp.AllowUnexported(record{})); diff != "" {
			t.Errorf("%v: record mismatch (-want +got):\n%s", test.line, diff)
		}
	}
}

func TestParseRecordErrors(t *testing.T) {
	for _, line := range []string{
		``,
		`12`,
		`!foo`,
		`^done,x=`,
		`^done,x="unterminated`,
		`^done,x={a="1"`,
		`^done,x=[1]`,
		`~noquote`,
	} {
		_, err := parseRecord(line)
		assert.Error(t, err, "%q", line)
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"dump_all_ir_graphs(\"id-last_stop\")"`, quote(`dump_all_ir_graphs("id-last_stop")`))
	assert.Equal(t, `"a\\b\n"`, quote("a\\b\n"))
	p := &parser{s: quote("x \"y\" \\ z\n")}
	s, err := p.cstring()
	require.NoError(t, err)
	assert.Equal(t, "x \"y\" \\ z\n", s)
}
