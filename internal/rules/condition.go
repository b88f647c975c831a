package rules

import "strings"

// Condition is a single field/operator/value comparison.
type Condition struct {
	Field    string
	Operator Operator
	Value    string
}

func (Condition) isNode() {}

// ValidateCondition checks the field, then the operator, then the value.
func ValidateCondition(c Condition) error {
	desc, ok := LookupField(c.Field)
	if !ok {
		return invalid(ErrInvalidField, c.Field)
	}
	if !desc.Kind.allows(c.Operator) {
		return invalid(ErrInvalidOperator, string(c.Operator))
	}
	if !desc.Kind.accepts(c.Value) {
		return invalid(ErrInvalidValue, c.Value)
	}
	return nil
}

func (c *compiler) condition(cond Condition) (string, error) {
	if err := ValidateCondition(cond); err != nil {
		return "", err
	}

	f := cond.Field
	switch cond.Operator {
	case OpIs:
		return f + " = " + c.operand(cond.Value), nil
	case OpIsNot:
		return f + " != " + c.operand(cond.Value), nil
	case OpContains:
		return f + " " + c.dialect.like() + " " + c.operand("%"+cond.Value+"%"), nil
	case OpNotContains:
		return "(" + f + " not " + c.dialect.like() + " " + c.operand("%"+cond.Value+"%") + ")", nil
	case OpGreaterThan:
		return f + " > " + c.ago(cond.Value), nil
	case OpLessThan:
		return f + " < " + c.ago(cond.Value), nil
	default:
		// Unreachable: ValidateCondition rejects unknown operators.
		return "", invalid(ErrInvalidOperator, string(cond.Operator))
	}
}

// operand renders a value either inline or as the next bound placeholder.
func (c *compiler) operand(v string) string {
	if c.bind {
		c.args = append(c.args, v)
		return c.dialect.placeholder(len(c.args))
	}
	return quote(v)
}

// ago renders the instant that lies offset before now.
func (c *compiler) ago(offset string) string {
	offset = strings.Join(strings.Fields(offset), " ")
	switch c.dialect {
	case SQLite:
		return "datetime('now', " + c.operand("-"+offset) + ")"
	default:
		if c.bind {
			return "now() - " + c.operand(offset) + "::interval"
		}
		return "now() - interval " + quote(offset)
	}
}

func quote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
