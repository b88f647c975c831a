package rules

// Raw node types as they appear in rule files.
const (
	TypeRule      = "rule"
	TypeCondition = "condition"
)

// RawNode is the JSON/YAML shape of a rule tree node:
//
//	{"type": "rule", "predicate": "all", "rules": [...]}
//	{"type": "condition", "field": "subject", "operator": "contains", "value": "x"}
type RawNode struct {
	Type      string    `json:"type" yaml:"type"`
	Predicate string    `json:"predicate,omitempty" yaml:"predicate,omitempty"`
	Rules     []RawNode `json:"rules,omitempty" yaml:"rules,omitempty"`
	Field     string    `json:"field,omitempty" yaml:"field,omitempty"`
	Operator  string    `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value     string    `json:"value,omitempty" yaml:"value,omitempty"`
}

// Node converts the raw form into a typed tree. Only the node types are
// checked here; fields, operators, values and predicates are validated at
// compile time.
func (r RawNode) Node() (Node, error) {
	switch r.Type {
	case TypeCondition:
		return Condition{Field: r.Field, Operator: Operator(r.Operator), Value: r.Value}, nil
	case TypeRule:
		g := Group{Predicate: Predicate(r.Predicate), Rules: make([]Node, 0, len(r.Rules))}
		for _, child := range r.Rules {
			n, err := child.Node()
			if err != nil {
				return nil, err
			}
			g.Rules = append(g.Rules, n)
		}
		return g, nil
	default:
		return nil, invalid(ErrInvalidNode, r.Type)
	}
}
