package nginx

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokOpen
	tokClose
	tokSemi
)

type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
	line  int
}

// lex splits nginx configuration text into words, braces and semicolons.
// Comments are dropped. Quoted strings become a single word without quotes.
func lex(text string) []token {
	var tokens []token
	line := 1
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '#':
			for i < len(text) && text[i] != '\n' {
				i++
			}
		case c == '{':
			tokens = append(tokens, token{kind: tokOpen, text: "{", start: i, end: i + 1, line: line})
			i++
		case c == '}':
			tokens = append(tokens, token{kind: tokClose, text: "}", start: i, end: i + 1, line: line})
			i++
		case c == ';':
			tokens = append(tokens, token{kind: tokSemi, text: ";", start: i, end: i + 1, line: line})
			i++
		case c == '"' || c == '\'':
			start, startLine := i, line
			var b strings.Builder
			i++
			for i < len(text) && text[i] != c {
				if text[i] == '\\' && i+1 < len(text) {
					i++
				}
				if text[i] == '\n' {
					line++
				}
				b.WriteByte(text[i])
				i++
			}
			if i < len(text) {
				i++
			}
			tokens = append(tokens, token{kind: tokWord, text: b.String(), start: start, end: i, line: startLine})
		default:
			start := i
			for i < len(text) && !isDelimiter(text[i]) {
				// ${var} is part of the word
				if text[i] == '$' && i+1 < len(text) && text[i+1] == '{' {
					if j := strings.IndexByte(text[i:], '}'); j > 0 {
						i += j + 1
						continue
					}
				}
				i++
			}
			tokens = append(tokens, token{kind: tokWord, text: text[start:i], start: start, end: i, line: line})
		}
	}
	return tokens
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '{', '}', ';', '"', '\'':
		return true
	}
	return false
}

// Directive is one parsed statement, with its child block if it has one.
// Start and End are byte offsets into the source text.
type Directive struct {
	Name         string
	Args         []string
	Block        []*Directive
	HasBlock     bool
	Unterminated bool
	Line         int
	Start        int
	End          int
}

// Child returns the first direct child directive with the given name.
func (d *Directive) Child(name string) *Directive {
	for _, c := range d.Block {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Children returns every direct child directive with the given name.
func (d *Directive) Children(name string) []*Directive {
	var out []*Directive
	for _, c := range d.Block {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

type parser struct {
	tokens []token
	pos    int
	issues []error
}

// parseDirectives builds the directive tree. It never fails: structural
// problems are returned as issues and the affected directive is marked.
func parseDirectives(text string) ([]*Directive, []error) {
	p := &parser{tokens: lex(text)}
	var all []*Directive
	for p.pos < len(p.tokens) {
		dirs, closed := p.parseBlock(false)
		all = append(all, dirs...)
		if closed {
			// parseBlock consumed a '}' with no matching '{'
			p.issues = append(p.issues, fmt.Errorf("line %d: unexpected '}'", p.tokens[p.pos-1].line))
		}
	}
	return all, p.issues
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

// parseBlock reads directives until the closing brace of the current block.
// It reports closed=false at end of input, or when a new server block opens
// inside a server, which means the enclosing server was never closed.
func (p *parser) parseBlock(inServer bool) (dirs []*Directive, closed bool) {
	for {
		tok, ok := p.peek()
		if !ok {
			return dirs, false
		}

		switch tok.kind {
		case tokClose:
			p.pos++
			return dirs, true
		case tokSemi:
			p.pos++
			continue
		case tokOpen:
			p.issues = append(p.issues, fmt.Errorf("line %d: block without a directive name", tok.line))
			p.pos++
			if _, ok := p.parseBlock(inServer); !ok {
				return dirs, false
			}
			continue
		}

		if inServer && tok.text == "server" && p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].kind == tokOpen {
			return dirs, false
		}

		d := &Directive{Name: tok.text, Line: tok.line, Start: tok.start, End: tok.end}
		p.pos++

	args:
		for {
			next, ok := p.peek()
			if !ok {
				p.issues = append(p.issues, fmt.Errorf("line %d: %s: unexpected end of input", d.Line, d.Name))
				d.Unterminated = true
				dirs = append(dirs, d)
				return dirs, false
			}
			switch next.kind {
			case tokWord:
				d.Args = append(d.Args, next.text)
				d.End = next.end
				p.pos++
			case tokSemi:
				d.End = next.end
				p.pos++
				break args
			case tokOpen:
				p.pos++
				d.HasBlock = true
				children, ok := p.parseBlock(inServer || d.Name == "server")
				d.Block = children
				if ok {
					d.End = p.tokens[p.pos-1].end
				} else {
					d.Unterminated = true
					if len(children) > 0 {
						d.End = children[len(children)-1].End
					}
					p.issues = append(p.issues, fmt.Errorf("line %d: %s block is not closed", d.Line, d.Name))
				}
				break args
			case tokClose:
				p.issues = append(p.issues, fmt.Errorf("line %d: %s: missing ';'", d.Line, d.Name))
				d.Unterminated = true
				break args
			}
		}

		dirs = append(dirs, d)
		if d.Unterminated && d.HasBlock {
			// the unclosed block swallowed the rest of this level
			if inServer || d.Name != "server" {
				return dirs, false
			}
		}
	}
}
