// Package search implements the boolean issue query language used to filter
// the active-work timeline, e.g.
//
//	(labels:backend,frontend | assignee:"kiss,mate") & issuetype:task
//
// A query is a tree of predicates joined by & (and) and | (or). Each
// predicate is field:values, where ';' separates alternatives and ','
// separates values that must all match. A token without a colon searches
// the issue's free text.
package search

import (
	"strings"

	"github.com/alfredjeanlab/flowboard/internal/model"
)

// TextField is the pseudo-field matched by free-text predicates.
const TextField = "_text"

// Expr is a parsed query node.
type Expr interface {
	Match(iss *model.Issue) bool
	String() string
	node()
}

// Predicate matches a single field. Groups is an OR of AND lists: the
// predicate holds when every value of at least one group matches.
type Predicate struct {
	Field  string
	Groups [][]string
}

// And holds when both sides match.
type And struct {
	Left, Right Expr
}

// Or holds when either side matches.
type Or struct {
	Left, Right Expr
}

func (*Predicate) node() {}
func (*And) node()       {}
func (*Or) node()        {}

func (p *Predicate) Match(iss *model.Issue) bool {
	value := FieldValue(iss, p.Field)
	for _, group := range p.Groups {
		all := true
		for _, v := range group {
			if !MatchesValue(value, v) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func (a *And) Match(iss *model.Issue) bool { return a.Left.Match(iss) && a.Right.Match(iss) }
func (o *Or) Match(iss *model.Issue) bool  { return o.Left.Match(iss) || o.Right.Match(iss) }

func (p *Predicate) String() string {
	groups := make([]string, len(p.Groups))
	for i, g := range p.Groups {
		groups[i] = strings.Join(g, ",")
	}
	values := strings.Join(groups, ";")
	if p.Field == TextField {
		return values
	}
	return p.Field + ":" + values
}

func (a *And) String() string { return "(" + a.Left.String() + " & " + a.Right.String() + ")" }
func (o *Or) String() string  { return "(" + o.Left.String() + " | " + o.Right.String() + ")" }

// Predicates returns every predicate of the tree in source order.
func Predicates(e Expr) []*Predicate {
	switch n := e.(type) {
	case *Predicate:
		return []*Predicate{n}
	case *And:
		return append(Predicates(n.Left), Predicates(n.Right)...)
	case *Or:
		return append(Predicates(n.Left), Predicates(n.Right)...)
	}
	return nil
}
