// Package gmailtest provides an in-memory gmail.Client for tests.
package gmailtest

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/daviddao/mailrules/internal/gmail"
	"github.com/daviddao/mailrules/internal/types"
)

// Batch records one BatchModify call.
type Batch struct {
	IDs    []string
	Add    []string
	Remove []string
}

// Fake is a mailbox held in memory. Label filters on List match when a
// message carries every requested label. It is safe for concurrent use.
type Fake struct {
	mu       sync.Mutex
	order    []string
	messages map[string]*types.Email

	// ListErr fails every List call when set.
	ListErr error
	// GetErr fails Get for the listed IDs.
	GetErr map[string]error
	// ModifyErr fails every BatchModify call when set.
	ModifyErr error

	Batches  []Batch
	GetCalls int
}

var _ gmail.Client = (*Fake)(nil)

// New returns a Fake holding emails in list order.
func New(emails ...*types.Email) *Fake {
	f := &Fake{messages: make(map[string]*types.Email)}
	for _, e := range emails {
		f.order = append(f.order, e.ID)
		f.messages[e.ID] = e
	}
	return f
}

// Labels returns the current labels of a message, sorted.
func (f *Fake) Labels(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.messages[id]
	if !ok {
		return nil
	}
	labels := slices.Clone(e.Labels)
	slices.Sort(labels)
	return labels
}

func (f *Fake) List(ctx context.Context, q gmail.ListQuery, pageToken string) (gmail.ListPage, error) {
	if err := ctx.Err(); err != nil {
		return gmail.ListPage{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return gmail.ListPage{}, f.ListErr
	}

	var matched []string
	for _, id := range f.order {
		if hasAll(f.messages[id].Labels, q.LabelIDs) {
			matched = append(matched, id)
		}
	}

	start := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n > len(matched) {
			return gmail.ListPage{}, fmt.Errorf("bad page token %q", pageToken)
		}
		start = n
	}
	size := q.PageSize
	if size <= 0 {
		size = 100
	}
	end := min(start+size, len(matched))

	page := gmail.ListPage{IDs: slices.Clone(matched[start:end])}
	if end < len(matched) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

func (f *Fake) Get(ctx context.Context, id string) (*types.Email, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GetCalls++
	if err := f.GetErr[id]; err != nil {
		return nil, err
	}
	e, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %s not found", id)
	}
	cp := *e
	cp.Labels = slices.Clone(e.Labels)
	return &cp, nil
}

func (f *Fake) BatchModify(ctx context.Context, ids []string, add, remove []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ModifyErr != nil {
		return f.ModifyErr
	}
	if len(ids) > gmail.MaxBatchModify {
		return fmt.Errorf("batch of %d exceeds %d", len(ids), gmail.MaxBatchModify)
	}
	f.Batches = append(f.Batches, Batch{IDs: slices.Clone(ids), Add: slices.Clone(add), Remove: slices.Clone(remove)})

	for _, id := range ids {
		e, ok := f.messages[id]
		if !ok {
			continue
		}
		labels := slices.DeleteFunc(e.Labels, func(l string) bool { return slices.Contains(remove, l) })
		for _, l := range add {
			if !slices.Contains(labels, l) {
				labels = append(labels, l)
			}
		}
		e.Labels = labels
	}
	return nil
}

func hasAll(labels, want []string) bool {
	for _, w := range want {
		if !slices.Contains(labels, w) {
			return false
		}
	}
	return true
}
