// Package types defines core data structures for mailrules.
package types

import "time"

// Email is a Gmail message as stored locally. Field JSON names match the
// column names rule conditions refer to.
type Email struct {
	ID         string    `json:"message_id"`
	ThreadID   string    `json:"thread_id"`
	From       string    `json:"from_address"`
	To         string    `json:"to_address,omitempty"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	Labels     []string  `json:"labels,omitempty"`
}

// LabelCount is the number of stored messages carrying a label.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// SyncResult holds the result of a fetch run.
type SyncResult struct {
	Listed  int `json:"listed"`
	Fetched int `json:"fetched"`
	Failed  int `json:"failed"`
	Total   int `json:"total_in_db"`
}

// ApplyResult holds the result of applying one rule file.
type ApplyResult struct {
	Rule     string   `json:"rule"`
	Filter   string   `json:"filter,omitempty"`
	Add      []string `json:"add"`
	Remove   []string `json:"remove"`
	Matched  int      `json:"matched"`
	Modified int      `json:"modified"`
	Batches  int      `json:"batches"`
	DryRun   bool     `json:"dry_run,omitempty"`
}
