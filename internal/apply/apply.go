// Package apply runs a rule file against stored messages and pushes the
// resulting label changes to Gmail.
package apply

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/daviddao/mailrules/internal/config"
	"github.com/daviddao/mailrules/internal/db"
	"github.com/daviddao/mailrules/internal/gmail"
	"github.com/daviddao/mailrules/internal/rules"
	"github.com/daviddao/mailrules/internal/types"
)

// DefaultChunkSize is the number of messages modified per Gmail call.
const DefaultChunkSize = 100

// Options controls a rule application.
type Options struct {
	ChunkSize int
	DryRun    bool
	Logger    *zap.Logger
}

// Run applies rf to every stored message its rule selects.
//
// The action is reconciled before any I/O, so an invalid action never
// touches Gmail. Each chunk is modified in Gmail first and then mirrored into
// the store. On error the result reports the chunks already applied.
func Run(ctx context.Context, client gmail.Client, store db.Store, rf *config.RuleFile, opts Options) (*types.ApplyResult, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	size := opts.ChunkSize
	if size == 0 {
		size = DefaultChunkSize
	}
	if size < 1 || size > gmail.MaxBatchModify {
		return nil, fmt.Errorf("chunk size %d out of range 1..%d", size, gmail.MaxBatchModify)
	}

	m, err := rules.ReconcileAction(rf.Action)
	if err != nil {
		return nil, fmt.Errorf("rule %s: reconcile action: %w", rf.Name, err)
	}
	n, err := rf.Node()
	if err != nil {
		return nil, err
	}
	expr, err := rules.Compiler{Dialect: store.Dialect()}.Compile(n)
	if err != nil {
		return nil, fmt.Errorf("rule %s: compile: %w", rf.Name, err)
	}

	result := &types.ApplyResult{
		Rule:   rf.Name,
		Filter: expr.String(),
		Add:    m.Add,
		Remove: m.Remove,
		DryRun: opts.DryRun,
	}

	ids, err := store.MatchingIDs(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", rf.Name, err)
	}
	result.Matched = len(ids)
	log.Info("rule matched",
		zap.String("rule", rf.Name),
		zap.Int("matched", len(ids)),
		zap.Strings("add", m.Add),
		zap.Strings("remove", m.Remove))

	if len(ids) == 0 || m.Empty() {
		return result, nil
	}

	chunks := Chunk(ids, size)
	if opts.DryRun {
		result.Batches = len(chunks)
		return result, nil
	}

	for i, chunk := range chunks {
		if err := client.BatchModify(ctx, chunk, m.Add, m.Remove); err != nil {
			return result, fmt.Errorf("rule %s: batch %d/%d: %w", rf.Name, i+1, len(chunks), err)
		}
		result.Batches++
		result.Modified += len(chunk)
		if err := store.ApplyMutation(ctx, chunk, m); err != nil {
			return result, fmt.Errorf("rule %s: update local labels: %w", rf.Name, err)
		}
		log.Debug("applied batch", zap.Int("batch", i+1), zap.Int("size", len(chunk)))
	}
	return result, nil
}

// Chunk splits ids into consecutive slices of at most size elements.
// The chunks share ids' backing array.
func Chunk(ids []string, size int) [][]string {
	if size < 1 {
		size = DefaultChunkSize
	}
	return slices.Collect(slices.Chunk(ids, size))
}
