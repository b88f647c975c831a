package rules

// Gmail system labels touched by actions.
const (
	LabelUnread    = "UNREAD"
	LabelStarred   = "STARRED"
	LabelImportant = "IMPORTANT"
)

// ExclusiveGroup is a set of labels of which a message carries at most one:
// applying a member removes all the others.
type ExclusiveGroup struct {
	name    string
	members []string
}

var (
	// LocationGroup holds the mailbox locations.
	LocationGroup = ExclusiveGroup{
		name:    "location",
		members: []string{"INBOX", "SPAM", "TRASH"},
	}

	// CategoryGroup holds the inbox category tabs.
	CategoryGroup = ExclusiveGroup{
		name: "category",
		members: []string{
			"CATEGORY_PERSONAL",
			"CATEGORY_SOCIAL",
			"CATEGORY_PROMOTIONS",
			"CATEGORY_UPDATES",
			"CATEGORY_FORUMS",
		},
	}
)

// Name returns the group name.
func (g ExclusiveGroup) Name() string { return g.name }

// Members returns a copy of the member labels in registry order.
func (g ExclusiveGroup) Members() []string {
	return append([]string(nil), g.members...)
}

// Contains reports whether label is a member.
func (g ExclusiveGroup) Contains(label string) bool {
	for _, m := range g.members {
		if m == label {
			return true
		}
	}
	return false
}

// Others returns every member except label, in registry order.
func (g ExclusiveGroup) Others(label string) []string {
	out := make([]string, 0, len(g.members))
	for _, m := range g.members {
		if m != label {
			out = append(out, m)
		}
	}
	return out
}
