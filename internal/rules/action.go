package rules

// Action declares the label state matching messages should end up in.
// Nil fields leave the corresponding labels untouched.
type Action struct {
	Unread    *bool   `json:"unread,omitempty" yaml:"unread,omitempty"`
	Starred   *bool   `json:"starred,omitempty" yaml:"starred,omitempty"`
	Important *bool   `json:"important,omitempty" yaml:"important,omitempty"`
	Location  *string `json:"location,omitempty" yaml:"location,omitempty"`
	Category  *string `json:"category,omitempty" yaml:"category,omitempty"`
}

// Mutation is the label change for a batch modify call.
type Mutation struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

// Empty reports whether the mutation changes nothing.
func (m Mutation) Empty() bool {
	return len(m.Add) == 0 && len(m.Remove) == 0
}

// ReconcileAction translates an action into disjoint add/remove label sets.
//
// Fields are processed in the order unread, starred, important, location,
// category. Starred and important are only ever added. A location or category
// is validated before anything is recorded for it, so on error the returned
// mutation holds exactly the fields processed before the failing one. A
// mutation returned alongside an error must not be applied.
func ReconcileAction(a Action) (Mutation, error) {
	var m mutationBuilder

	if a.Unread != nil {
		if *a.Unread {
			m.add(LabelUnread)
		} else {
			m.remove(LabelUnread)
		}
	}
	if a.Starred != nil && *a.Starred {
		m.add(LabelStarred)
	}
	if a.Important != nil && *a.Important {
		m.add(LabelImportant)
	}
	if a.Location != nil {
		if err := m.exclusive(LocationGroup, *a.Location, ErrInvalidLocation); err != nil {
			return m.result(), err
		}
	}
	if a.Category != nil {
		if err := m.exclusive(CategoryGroup, *a.Category, ErrInvalidCategory); err != nil {
			return m.result(), err
		}
	}
	return m.result(), nil
}

type mutationBuilder struct {
	adds, removes []string
}

func (m *mutationBuilder) add(label string) {
	if !contains(m.adds, label) {
		m.adds = append(m.adds, label)
	}
}

func (m *mutationBuilder) remove(label string) {
	if !contains(m.removes, label) && !contains(m.adds, label) {
		m.removes = append(m.removes, label)
	}
}

func (m *mutationBuilder) exclusive(g ExclusiveGroup, label string, sentinel error) error {
	if !g.Contains(label) {
		return invalid(sentinel, label)
	}
	m.add(label)
	for _, other := range g.Others(label) {
		m.remove(other)
	}
	return nil
}

func (m *mutationBuilder) result() Mutation {
	return Mutation{
		Add:    append([]string{}, m.adds...),
		Remove: append([]string{}, m.removes...),
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
