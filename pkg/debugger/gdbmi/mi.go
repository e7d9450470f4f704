// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package gdbmi

import (
	"fmt"
	"strconv"
	"strings"
)

// Record kinds as defined by the GDB/MI output syntax.
const (
	kindResult  = '^'
	kindExec    = '*'
	kindStatus  = '+'
	kindNotify  = '='
	kindConsole = '~'
	kindTarget  = '@'
	kindLog     = '&'
	kindPrompt  = '('
)

// Values are either string, tuple or list.
type (
	tuple map[string]any
	list  []any
)

type record struct {
	kind    byte
	token   int // -1 if absent
	class   string
	results tuple
	text    string // stream records only
}

func parseRecord(line string) (*record, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.HasPrefix(line, "(gdb)") {
		return &record{kind: kindPrompt, token: -1}, nil
	}
	p := &parser{s: line}
	rec := &record{token: -1}
	start := p.pos
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	if p.pos != start {
		tok, err := strconv.Atoi(p.s[start:p.pos])
		if err != nil {
			return nil, fmt.Errorf("bad token in %q: %w", line, err)
		}
		rec.token = tok
	}
	if p.eof() {
		return nil, fmt.Errorf("truncated record %q", line)
	}
	rec.kind = p.next()
	switch rec.kind {
	case kindConsole, kindTarget, kindLog:
		text, err := p.cstring()
		if err != nil {
			return nil, fmt.Errorf("bad stream record %q: %w", line, err)
		}
		rec.text = text
		return rec, nil
	case kindResult, kindExec, kindStatus, kindNotify:
	default:
		return nil, fmt.Errorf("unknown record kind in %q", line)
	}
	end := strings.IndexByte(p.s[p.pos:], ',')
	if end == -1 {
		end = len(p.s) - p.pos
	}
	rec.class = p.s[p.pos : p.pos+end]
	p.pos += end
	rec.results = make(tuple)
	for !p.eof() {
		if p.next() != ',' {
			return nil, fmt.Errorf("expected ',' at %v in %q", p.pos-1, line)
		}
		name, val, err := p.result()
		if err != nil {
			return nil, fmt.Errorf("bad results in %q: %w", line, err)
		}
		rec.results[name] = val
	}
	return rec, nil
}

type parser struct {
	s   string
	pos int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.s)
}

func (p *parser) next() byte {
	c := p.s[p.pos]
	p.pos++
	return c
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.s[p.pos]
}

func (p *parser) result() (string, any, error) {
	eq := strings.IndexByte(p.s[p.pos:], '=')
	if eq == -1 {
		return "", nil, fmt.Errorf("no '=' after %v", p.pos)
	}
	name := p.s[p.pos : p.pos+eq]
	p.pos += eq + 1
	val, err := p.value()
	return name, val, err
}

func (p *parser) value() (any, error) {
	switch p.peek() {
	case '"':
		return p.cstring()
	case '{':
		return p.tuple()
	case '[':
		return p.list()
	}
	return nil, fmt.Errorf("unexpected %q at %v", p.peek(), p.pos)
}

func (p *parser) tuple() (any, error) {
	p.next()
	res := make(tuple)
	if p.peek() == '}' {
		p.next()
		return res, nil
	}
	for {
		name, val, err := p.result()
		if err != nil {
			return nil, err
		}
		res[name] = val
		if p.eof() {
			return nil, fmt.Errorf("unterminated tuple")
		}
		switch p.next() {
		case ',':
		case '}':
			return res, nil
		default:
			return nil, fmt.Errorf("unexpected %q in tuple at %v", p.s[p.pos-1], p.pos-1)
		}
	}
}

// list returns list elements; names of results in a list are dropped.
func (p *parser) list() (any, error) {
	p.next()
	var res list
	if p.peek() == ']' {
		p.next()
		return res, nil
	}
	for {
		var val any
		var err error
		switch p.peek() {
		case '"', '{', '[':
			val, err = p.value()
		default:
			_, val, err = p.result()
		}
		if err != nil {
			return nil, err
		}
		res = append(res, val)
		if p.eof() {
			return nil, fmt.Errorf("unterminated list")
		}
		switch p.next() {
		case ',':
		case ']':
			return res, nil
		default:
			return nil, fmt.Errorf("unexpected %q in list at %v", p.s[p.pos-1], p.pos-1)
		}
	}
}

func (p *parser) cstring() (string, error) {
	if p.eof() || p.next() != '"' {
		return "", fmt.Errorf("expected '\"' at %v", p.pos)
	}
	var buf strings.Builder
	for !p.eof() {
		c := p.next()
		switch c {
		case '"':
			return buf.String(), nil
		case '\\':
			if p.eof() {
				return "", fmt.Errorf("truncated escape")
			}
			e := p.next()
			switch e {
			case 'n':
				buf.WriteByte('\n')
			case 't':
				buf.WriteByte('\t')
			case 'r':
				buf.WriteByte('\r')
			case 'e':
				buf.WriteByte(0x1b)
			case '0', '1', '2', '3', '4', '5', '6', '7':
				end := p.pos - 1
				for end < len(p.s) && end < p.pos+2 && p.s[end] >= '0' && p.s[end] <= '7' {
					end++
				}
				v, err := strconv.ParseUint(p.s[p.pos-1:end], 8, 8)
				if err != nil {
					return "", fmt.Errorf("bad octal escape: %w", err)
				}
				buf.WriteByte(byte(v))
				p.pos = end
			default:
				buf.WriteByte(e)
			}
		default:
			buf.WriteByte(c)
		}
	}
	return "", fmt.Errorf("unterminated string")
}

// quote produces a C string literal acceptable as an MI command parameter.
func quote(s string) string {
	var buf strings.Builder
	buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte('"')
	return buf.String()
}

func (t tuple) str(name string) string {
	s, _ := t[name].(string)
	return s
}

func (t tuple) tup(name string) tuple {
	v, _ := t[name].(tuple)
	return v
}

func (t tuple) lst(name string) list {
	v, _ := t[name].(list)
	return v
}

func (t tuple) num(name string) int {
	v, _ := strconv.Atoi(t.str(name))
	return v
}

func (t tuple) addr(name string) uint64 {
	v, _ := strconv.ParseUint(t.str(name), 0, 64)
	return v
}
