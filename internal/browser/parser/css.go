// internal/browser/parser/css.go
package parser

import (
	"strings"
)

// Declaration is a single property: value pair (e.g., display: none).
type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// Rule is a selector prelude with its declaration block. The selector text is
// kept raw; matching is left to the caller's selector engine.
type Rule struct {
	Selector     string
	Declarations []Declaration
}

// StyleSheet is the list of rules of a parsed style sheet, in source order.
type StyleSheet struct {
	Rules []Rule
}

// Parser is a forgiving CSS tokenizer covering rule sets and declaration
// lists. At-rules are skipped.
type Parser struct {
	input string
	pos   int
}

// NewParser creates a parser over input.
func NewParser(input string) *Parser {
	return &Parser{input: input}
}

// Parse reads a whole style sheet.
func (p *Parser) Parse() StyleSheet {
	var sheet StyleSheet
	for {
		p.consumeWhitespace()
		if p.eof() {
			break
		}
		switch {
		case p.startsWith("/*"):
			p.skipComment()
		case p.currentChar() == '@':
			p.skipAtRule()
		default:
			prelude := p.parsePrelude()
			if p.eof() {
				return sheet
			}
			decls := p.parseDeclarationBlock()
			if prelude != "" {
				sheet.Rules = append(sheet.Rules, Rule{Selector: prelude, Declarations: decls})
			}
		}
	}
	return sheet
}

// ParseInline parses the contents of a style attribute.
func ParseInline(style string) []Declaration {
	p := NewParser(style)
	return p.parseDeclarationList('}')
}

// Lookup returns the winning value of prop: the last important declaration,
// otherwise the last declaration.
func Lookup(decls []Declaration, prop string) (string, bool) {
	prop = strings.ToLower(prop)
	var (
		value     string
		found     bool
		important bool
	)
	for _, d := range decls {
		if d.Property != prop {
			continue
		}
		if important && !d.Important {
			continue
		}
		value, found, important = d.Value, true, d.Important
	}
	return value, found
}

// parsePrelude reads raw selector text up to the opening brace.
func (p *Parser) parsePrelude() string {
	start := p.pos
	for !p.eof() && p.currentChar() != '{' {
		ch := p.currentChar()
		if ch == '"' || ch == '\'' {
			p.skipQuotedString(ch)
			continue
		}
		p.pos++
	}
	return strings.TrimSpace(p.input[start:p.pos])
}

// parseDeclarationBlock parses { ... } starting at the opening brace.
func (p *Parser) parseDeclarationBlock() []Declaration {
	p.consumeChar() // '{'
	decls := p.parseDeclarationList('}')
	if !p.eof() && p.currentChar() == '}' {
		p.consumeChar()
	}
	return decls
}

func (p *Parser) parseDeclarationList(end byte) []Declaration {
	var decls []Declaration
	for {
		p.consumeWhitespace()
		if p.eof() || p.currentChar() == end {
			break
		}
		if p.startsWith("/*") {
			p.skipComment()
			continue
		}
		if p.currentChar() == ';' {
			p.consumeChar()
			continue
		}

		prop, val, important := p.parseDeclaration(end)
		if prop != "" && val != "" {
			decls = append(decls, Declaration{
				Property:  strings.ToLower(prop),
				Value:     val,
				Important: important,
			})
		}
	}
	return decls
}

// parseDeclaration parses a single 'property: value;' pair, recovering at the
// next semicolon on malformed input.
func (p *Parser) parseDeclaration(end byte) (prop, val string, important bool) {
	recoverAt := func() {
		p.skipTo(';', end)
		if !p.eof() && p.currentChar() == ';' {
			p.consumeChar()
		}
	}

	if !isValidIdentifierStart(p.currentChar()) {
		recoverAt()
		return "", "", false
	}
	prop = p.parseIdentifier()
	p.consumeWhitespace()

	if p.eof() || p.currentChar() != ':' {
		recoverAt()
		return "", "", false
	}
	p.consumeChar()
	p.consumeWhitespace()

	val = p.parseValue(end)
	if strings.HasSuffix(strings.ToLower(val), "!important") {
		important = true
		val = strings.TrimSpace(val[:len(val)-len("!important")])
	}

	p.consumeWhitespace()
	if !p.eof() && p.currentChar() == ';' {
		p.consumeChar()
	}
	return prop, val, important
}

func (p *Parser) parseValue(end byte) string {
	start := p.pos
	for !p.eof() {
		ch := p.currentChar()
		if ch == ';' || ch == end {
			break
		}
		switch {
		case ch == '"' || ch == '\'':
			p.skipQuotedString(ch)
		case ch == '(':
			p.consumeChar()
			p.skipBlock('(', ')')
		case p.startsWith("/*"):
			p.skipComment()
		default:
			p.pos++
		}
	}
	return strings.TrimSpace(p.input[start:p.pos])
}

// --- Lexer-like helpers ---

func (p *Parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *Parser) currentChar() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

func (p *Parser) consumeChar() byte {
	ch := p.currentChar()
	if !p.eof() {
		p.pos++
	}
	return ch
}

func (p *Parser) consumeWhitespace() {
	for !p.eof() && isWhitespace(p.currentChar()) {
		p.pos++
	}
}

func (p *Parser) startsWith(s string) bool {
	return strings.HasPrefix(p.input[p.pos:], s)
}

func (p *Parser) skipComment() {
	p.pos += 2
	if end := strings.Index(p.input[p.pos:], "*/"); end == -1 {
		p.pos = len(p.input)
	} else {
		p.pos += end + 2
	}
}

func (p *Parser) skipTo(targets ...byte) {
	for !p.eof() {
		if strings.IndexByte(string(targets), p.currentChar()) >= 0 {
			return
		}
		p.pos++
	}
}

// skipBlock consumes up to and including the close matching an open that
// has already been consumed.
func (p *Parser) skipBlock(open, close byte) {
	depth := 1
	for !p.eof() {
		switch p.consumeChar() {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

func (p *Parser) skipQuotedString(quote byte) {
	p.consumeChar()
	for !p.eof() {
		ch := p.consumeChar()
		if ch == '\\' {
			p.consumeChar()
		} else if ch == quote {
			return
		}
	}
}

func (p *Parser) skipAtRule() {
	p.consumeChar() // '@'
	_ = p.parseIdentifier()
	for !p.eof() {
		ch := p.currentChar()
		if ch == '{' {
			p.consumeChar()
			p.skipBlock('{', '}')
			return
		}
		if ch == ';' {
			p.consumeChar()
			return
		}
		p.pos++
	}
}

func (p *Parser) parseIdentifier() string {
	start := p.pos
	for !p.eof() && isValidIdentifierChar(p.currentChar()) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

func isValidIdentifierStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '-'
}

func isValidIdentifierChar(ch byte) bool {
	return isValidIdentifierStart(ch) || (ch >= '0' && ch <= '9')
}
