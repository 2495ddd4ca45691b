package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// parsePyList reads the Python-literal genre lists found in raw TMDB
// metadata dumps, e.g. [{'id': 28, 'name': 'Action'}]. Only lists of
// strings and of flat dicts with scalar values are accepted.
func parsePyList(s string) ([]any, error) {
	p := &pyParser{src: s}
	p.skipSpace()
	if !p.eat('[') {
		return nil, p.errorf("expected '['")
	}
	var out []any
	for {
		p.skipSpace()
		if p.eat(']') {
			break
		}
		if len(out) > 0 {
			if !p.eat(',') {
				return nil, p.errorf("expected ',' or ']'")
			}
			p.skipSpace()
			if p.eat(']') {
				break
			}
		}
		v, err := p.item()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("trailing data")
	}
	return out, nil
}

type pyParser struct {
	src string
	pos int
}

func (p *pyParser) errorf(format string, args ...any) error {
	return fmt.Errorf("python literal at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *pyParser) skipSpace() {
	for p.pos < len(p.src) && strings.IndexByte(" \t\r\n", p.src[p.pos]) >= 0 {
		p.pos++
	}
}

func (p *pyParser) eat(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *pyParser) item() (any, error) {
	if p.pos < len(p.src) && p.src[p.pos] == '{' {
		return p.dict()
	}
	return p.str()
}

func (p *pyParser) dict() (map[string]any, error) {
	p.pos++
	out := map[string]any{}
	for {
		p.skipSpace()
		if p.eat('}') {
			return out, nil
		}
		if len(out) > 0 {
			if !p.eat(',') {
				return nil, p.errorf("expected ',' or '}'")
			}
			p.skipSpace()
			if p.eat('}') {
				return out, nil
			}
		}
		key, err := p.str()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !p.eat(':') {
			return nil, p.errorf("expected ':'")
		}
		p.skipSpace()
		val, err := p.scalar()
		if err != nil {
			return nil, err
		}
		out[key] = val
	}
}

func (p *pyParser) scalar() (any, error) {
	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end")
	}
	switch c := p.src[p.pos]; {
	case c == '\'' || c == '"':
		return p.str()
	case c == '-' || (c >= '0' && c <= '9'):
		start := p.pos
		for p.pos < len(p.src) && strings.IndexByte("+-.0123456789eE", p.src[p.pos]) >= 0 {
			p.pos++
		}
		f, err := strconv.ParseFloat(p.src[start:p.pos], 64)
		if err != nil {
			return nil, p.errorf("bad number %q", p.src[start:p.pos])
		}
		return f, nil
	}
	for word, v := range map[string]any{"None": nil, "True": true, "False": false} {
		if strings.HasPrefix(p.src[p.pos:], word) {
			p.pos += len(word)
			return v, nil
		}
	}
	return nil, p.errorf("unexpected %q", p.src[p.pos])
}

func (p *pyParser) str() (string, error) {
	if p.pos >= len(p.src) || (p.src[p.pos] != '\'' && p.src[p.pos] != '"') {
		return "", p.errorf("expected a quoted string")
	}
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		switch c {
		case quote:
			return b.String(), nil
		case '\\':
			if p.pos >= len(p.src) {
				return "", p.errorf("unterminated escape")
			}
			e := p.src[p.pos]
			p.pos++
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '\'', '"':
				b.WriteByte(e)
			default:
				return "", p.errorf("unsupported escape \\%c", e)
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", p.errorf("unterminated string")
}
