package search

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrSyntax is wrapped by every error returned from Parse.
var ErrSyntax = errors.New("invalid search query")

var fieldAliases = map[string]string{
	"issuekey":     "key",
	"issue_key":    "key",
	"issue_type":   "issuetype",
	"type":         "issuetype",
	"projectkey":   "project",
	"project_key":  "project",
	"fix_versions": "fixversion",
	"fix_version":  "fixversion",
	"fixversions":  "fixversion",
	"label":        "labels",
	"component":    "components",
}

// CanonicalField lower-cases a field name and resolves its aliases.
func CanonicalField(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := fieldAliases[name]; ok {
		return alias
	}
	return name
}

// Tokenize splits a query into parentheses, operators and predicate tokens.
// Quotes do not protect the structural characters ( ) & |.
func Tokenize(query string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if tok := strings.TrimSpace(cur.String()); tok != "" {
			tokens = append(tokens, tok)
		}
		cur.Reset()
	}
	for _, r := range query {
		switch r {
		case '(', ')', '&', '|':
			flush()
			tokens = append(tokens, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func isStructural(tok string) bool {
	switch tok {
	case "(", ")", "&", "|":
		return true
	}
	return false
}

type parser struct {
	tokens []string
	pos    int
}

func (p *parser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *parser) next() string {
	tok := p.peek()
	p.pos++
	return tok
}

// Parse parses a query into an expression tree. An empty query parses to a
// nil Expr with no error.
func Parse(query string) (Expr, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, p.peek())
	}
	return expr, nil
}

// ParseSearchQuery is Parse for callers that treat a bad query as no filter.
// It returns nil for empty and malformed queries.
func ParseSearchQuery(query string) Expr {
	expr, err := Parse(query)
	if err != nil {
		slog.Debug("ignoring malformed search query", "query", query, "err", err)
		return nil
	}
	return expr
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek() == "|" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.peek() == "&" {
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseFactor() (Expr, error) {
	tok := p.next()
	switch {
	case tok == "(":
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next() != ")" {
			return nil, fmt.Errorf("%w: missing closing parenthesis", ErrSyntax)
		}
		return expr, nil
	case tok == "":
		return nil, fmt.Errorf("%w: unexpected end of query", ErrSyntax)
	case isStructural(tok):
		return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, tok)
	}
	return parsePredicate(tok)
}

func parsePredicate(tok string) (*Predicate, error) {
	field, raw, ok := strings.Cut(tok, ":")
	if !ok {
		return &Predicate{Field: TextField, Groups: [][]string{{normalizeValue(tok)}}}, nil
	}
	field = CanonicalField(field)
	if field == "" {
		return nil, fmt.Errorf("%w: missing field name in %q", ErrSyntax, tok)
	}
	groups := parseValues(raw)
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: no values for field %q", ErrSyntax, field)
	}
	return &Predicate{Field: field, Groups: groups}, nil
}

// parseValues splits on unquoted ';' into alternatives and on unquoted ','
// into required values. Empty values are dropped.
func parseValues(raw string) [][]string {
	var groups [][]string
	for _, alt := range splitUnquoted(raw, ';') {
		var values []string
		for _, v := range splitUnquoted(alt, ',') {
			if v = normalizeValue(v); v != "" {
				values = append(values, v)
			}
		}
		if len(values) > 0 {
			groups = append(groups, values)
		}
	}
	return groups
}

func splitUnquoted(s string, sep rune) []string {
	var parts []string
	var cur strings.Builder
	quoted := false
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			cur.WriteRune(r)
		case r == sep && !quoted:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(parts, cur.String())
}

// normalizeValue trims, strips one layer of double quotes and lower-cases.
func normalizeValue(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	return strings.ToLower(v)
}
