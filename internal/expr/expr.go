// Package expr evaluates the filter expressions carried by repository.Query
// against JSON documents. Stores that cannot push a filter down to their
// backend decode each candidate document and apply it here.
//
// Grammar:
//
//	expr    := and { OR and }
//	and     := unary { AND unary }
//	unary   := NOT unary | primary
//	primary := "(" expr ")"
//	         | contains "(" field "," operand ")"
//	         | field ( "=" | "<>" ) operand
//	         | field IN "(" operand { "," operand } ")"
//	operand := :param | 'string' | bareword
//
// An expression that is empty or whitespace matches every document.
package expr

import (
	"fmt"
	"strings"
)

// Filter is a compiled expression with its parameters resolved.
type Filter struct {
	root node
}

// Compile parses src and resolves every :param against bindings.
func Compile(src string, bindings map[string]string) (*Filter, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, bindings: bindings}
	if p.peek().kind == tokEOF {
		return &Filter{root: always{}}, nil
	}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at %d", t.text, t.pos)
	}
	return &Filter{root: n}, nil
}

// Match reports whether doc satisfies the filter.
func (f *Filter) Match(doc map[string]any) bool {
	return f.root.eval(doc)
}

// PartitionValue resolves an equality predicate such as "segment = :segment"
// into its field and value.
func PartitionValue(predicate string, bindings map[string]string) (field, value string, err error) {
	f, err := Compile(predicate, bindings)
	if err != nil {
		return "", "", fmt.Errorf("partition predicate: %w", err)
	}
	c, ok := f.root.(compare)
	if !ok || c.negate {
		return "", "", fmt.Errorf("partition predicate must be a single equality, got %q", predicate)
	}
	return c.field, c.value, nil
}

type node interface {
	eval(doc map[string]any) bool
}

type always struct{}

func (always) eval(map[string]any) bool { return true }

type or []node

func (o or) eval(doc map[string]any) bool {
	for _, n := range o {
		if n.eval(doc) {
			return true
		}
	}
	return false
}

type and []node

func (a and) eval(doc map[string]any) bool {
	for _, n := range a {
		if !n.eval(doc) {
			return false
		}
	}
	return true
}

type not struct{ n node }

func (n not) eval(doc map[string]any) bool { return !n.n.eval(doc) }

// contains matches when the field is a list holding value or a string with
// value as a substring.
type contains struct {
	field, value string
}

func (c contains) eval(doc map[string]any) bool {
	switch v := doc[c.field].(type) {
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok && s == c.value {
				return true
			}
		}
	case []string:
		for _, s := range v {
			if s == c.value {
				return true
			}
		}
	case string:
		return strings.Contains(v, c.value)
	}
	return false
}

type compare struct {
	field, value string
	negate       bool
}

func (c compare) eval(doc map[string]any) bool {
	s, ok := doc[c.field].(string)
	return ok && (s == c.value) != c.negate
}

type in struct {
	field  string
	values []string
}

func (n in) eval(doc map[string]any) bool {
	s, ok := doc[n.field].(string)
	if !ok {
		return false
	}
	for _, v := range n.values {
		if s == v {
			return true
		}
	}
	return false
}

type parser struct {
	toks     []token
	pos      int
	bindings map[string]string
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, fmt.Errorf("expected %s at %d, got %q", what, t.pos, t.text)
	}
	return t, nil
}

func (p *parser) parseOr() (node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	nodes := or{first}
	for p.peek().keyword("OR") {
		p.next()
		n, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if len(nodes) == 1 {
		return first, nil
	}
	return nodes, nil
}

func (p *parser) parseAnd() (node, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	nodes := and{first}
	for p.peek().keyword("AND") {
		p.next()
		n, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if len(nodes) == 1 {
		return first, nil
	}
	return nodes, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.peek().keyword("NOT") {
		p.next()
		n, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return not{n}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch {
	case t.kind == tokLParen:
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return n, nil
	case t.keyword("contains") && p.peek().kind == tokLParen:
		p.next()
		field, err := p.expect(tokIdent, "field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokComma, ","); err != nil {
			return nil, err
		}
		v, err := p.operand()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return contains{field: field.text, value: v}, nil
	case t.kind == tokIdent:
		return p.parseComparison(t.text)
	}
	return nil, fmt.Errorf("unexpected %q at %d", t.text, t.pos)
}

func (p *parser) parseComparison(field string) (node, error) {
	op := p.next()
	switch {
	case op.kind == tokEq || op.kind == tokNeq:
		v, err := p.operand()
		if err != nil {
			return nil, err
		}
		return compare{field: field, value: v, negate: op.kind == tokNeq}, nil
	case op.keyword("IN"):
		if _, err := p.expect(tokLParen, "("); err != nil {
			return nil, err
		}
		var values []string
		for {
			v, err := p.operand()
			if err != nil {
				return nil, err
			}
			values = append(values, v)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return in{field: field, values: values}, nil
	}
	return nil, fmt.Errorf("expected comparison after %q at %d, got %q", field, op.pos, op.text)
}

func (p *parser) operand() (string, error) {
	t := p.next()
	switch t.kind {
	case tokParam:
		v, ok := p.bindings[t.text]
		if !ok {
			return "", fmt.Errorf("unbound parameter %s", t.text)
		}
		return v, nil
	case tokString, tokIdent:
		return t.text, nil
	}
	return "", fmt.Errorf("expected value at %d, got %q", t.pos, t.text)
}
