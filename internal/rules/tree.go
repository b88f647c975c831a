// Package rules compiles triage rule trees into SQL filter expressions and
// reconciles declarative actions into Gmail label mutations. It performs no
// I/O and is safe for concurrent use.
package rules

import "strings"

// Node is a rule tree node: either a Condition or a Group.
type Node interface {
	isNode()
}

// Predicate combines the children of a Group.
type Predicate string

const (
	PredicateAll Predicate = "all"
	PredicateAny Predicate = "any"
)

func (p Predicate) joiner() (string, bool) {
	switch p {
	case PredicateAll:
		return " and ", true
	case PredicateAny:
		return " or ", true
	default:
		return "", false
	}
}

// Group combines its children with a predicate.
type Group struct {
	Predicate Predicate
	Rules     []Node
}

func (Group) isNode() {}

// Expression is a compiled boolean filter. Args holds bound values in
// placeholder order and is empty for inline compilation.
type Expression struct {
	SQL  string
	Args []any
}

func (e *Expression) String() string {
	if e == nil {
		return ""
	}
	return e.SQL
}

// Compiler turns rule trees into SQL filter expressions.
//
// With Bind unset, values are embedded as quoted literals. Such output must
// not be executed against a database when rule values are untrusted; the
// store always compiles with Bind set.
type Compiler struct {
	Dialect Dialect
	Bind    bool
}

// CompileRule compiles n to an inline Postgres expression. A nil expression
// means the tree places no constraint on messages.
func CompileRule(n Node) (*Expression, error) {
	return Compiler{Dialect: Postgres}.Compile(n)
}

// Compile compiles n. The top-level expression is not parenthesized; callers
// embedding it in a larger clause must wrap it themselves.
func (c Compiler) Compile(n Node) (*Expression, error) {
	st := &compiler{dialect: c.Dialect, bind: c.Bind}
	sql, err := st.node(n)
	if err != nil {
		return nil, err
	}
	if sql == "" {
		return nil, nil
	}
	return &Expression{SQL: sql, Args: st.args}, nil
}

type compiler struct {
	dialect Dialect
	bind    bool
	args    []any
}

// node returns "" for subtrees that contribute no constraint.
func (c *compiler) node(n Node) (string, error) {
	switch n := n.(type) {
	case Condition:
		return c.condition(n)
	case *Condition:
		return c.condition(*n)
	case Group:
		return c.group(n)
	case *Group:
		return c.group(*n)
	default:
		return "", invalid(ErrInvalidNode, "")
	}
}

func (c *compiler) group(g Group) (string, error) {
	sep, ok := g.Predicate.joiner()
	if !ok {
		return "", invalid(ErrInvalidPredicate, string(g.Predicate))
	}

	parts := make([]string, 0, len(g.Rules))
	for _, child := range g.Rules {
		sql, err := c.node(child)
		if err != nil {
			return "", err
		}
		if sql != "" {
			parts = append(parts, sql)
		}
	}

	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], nil
	default:
		return "(" + strings.Join(parts, sep) + ")", nil
	}
}
