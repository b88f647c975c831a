package rules

import (
	"regexp"
	"sort"
)

// Kind is the value type of a message field.
type Kind int

const (
	// KindText fields hold free text and accept any non-empty value.
	KindText Kind = iota
	// KindDateOffset fields hold timestamps and are compared against
	// "now minus <integer> <unit>".
	KindDateOffset
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindDateOffset:
		return "datetime"
	default:
		return "unknown"
	}
}

// Operator is a condition comparison.
type Operator string

const (
	OpIs          Operator = "is"
	OpIsNot       Operator = "is_not"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

// FieldDescriptor describes one filterable message column.
type FieldDescriptor struct {
	Name string
	Kind Kind
}

// Operators returns the operators allowed for the field.
func (f FieldDescriptor) Operators() []Operator {
	return append([]Operator(nil), kinds[f.Kind].operators...)
}

type kindSpec struct {
	operators []Operator
	pattern   *regexp.Regexp
}

var kinds = map[Kind]kindSpec{
	KindText: {
		operators: []Operator{OpIs, OpIsNot, OpContains, OpNotContains},
		pattern:   regexp.MustCompile(`(?s)^.+$`),
	},
	KindDateOffset: {
		operators: []Operator{OpGreaterThan, OpLessThan},
		pattern:   regexp.MustCompile(`^\d+\s+(day|days|month|months|year|years)$`),
	},
}

// Field names double as column names in the message store.
var fields = map[string]Kind{
	"from_address": KindText,
	"to_address":   KindText,
	"subject":      KindText,
	"body":         KindText,
	"received_at":  KindDateOffset,
}

// LookupField returns the descriptor for a field name.
func LookupField(name string) (FieldDescriptor, bool) {
	kind, ok := fields[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return FieldDescriptor{Name: name, Kind: kind}, true
}

// Fields returns every known field, sorted by name.
func Fields() []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(fields))
	for name, kind := range fields {
		out = append(out, FieldDescriptor{Name: name, Kind: kind})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (k Kind) allows(op Operator) bool {
	for _, allowed := range kinds[k].operators {
		if allowed == op {
			return true
		}
	}
	return false
}

func (k Kind) accepts(value string) bool {
	return kinds[k].pattern.MatchString(value)
}
