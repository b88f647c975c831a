// Package sync fetches messages from Gmail into the local store.
package sync

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/daviddao/mailrules/internal/db"
	"github.com/daviddao/mailrules/internal/gmail"
	"github.com/daviddao/mailrules/internal/types"
)

// Options controls a fetch run.
type Options struct {
	Labels      []string
	Query       string
	PageSize    int
	MaxMessages int
	Workers     int

	Logger *zap.Logger
	// Progress, if set, is called after each message with the number
	// processed so far and the number listed. It may be called concurrently.
	Progress func(done, total int)
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}

// Fetch lists message IDs page by page, downloads each message with a
// bounded pool of workers, and upserts the message and its labels.
//
// A message that Gmail fails to return is logged and counted in Failed.
// Listing errors, store errors and cancellation abort the run.
func Fetch(ctx context.Context, client gmail.Client, store db.Store, opts Options) (*types.SyncResult, error) {
	opts = opts.withDefaults()
	log := opts.Logger

	ids, err := listIDs(ctx, client, opts)
	if err != nil {
		return nil, err
	}
	result := &types.SyncResult{Listed: len(ids)}
	log.Info("listed messages", zap.Int("count", len(ids)), zap.Strings("labels", opts.Labels))

	var fetched, failed, done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer func() {
				if opts.Progress != nil {
					opts.Progress(int(done.Add(1)), len(ids))
				}
			}()

			e, err := client.Get(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				log.Warn("fetch message failed", zap.String("id", id), zap.Error(err))
				return nil
			}
			if err := store.UpsertEmail(gctx, e); err != nil {
				return err
			}
			if err := store.ReplaceLabels(gctx, e.ID, e.Labels); err != nil {
				return err
			}
			fetched.Add(1)
			log.Debug("stored message", zap.String("id", e.ID), zap.Strings("labels", e.Labels))
			return nil
		})
	}

	waitErr := g.Wait()
	result.Fetched = int(fetched.Load())
	result.Failed = int(failed.Load())
	if ctx.Err() != nil {
		waitErr = ctx.Err()
	}
	if waitErr != nil {
		return result, fmt.Errorf("fetch messages: %w", waitErr)
	}

	total, err := store.EmailCount(ctx)
	if err != nil {
		return result, err
	}
	result.Total = total

	log.Info("fetch complete",
		zap.Int("fetched", result.Fetched),
		zap.Int("failed", result.Failed),
		zap.Int("total", result.Total))
	return result, nil
}

// listIDs pages through the message list until it is exhausted or
// MaxMessages IDs have been collected. Duplicate IDs are dropped.
func listIDs(ctx context.Context, client gmail.Client, opts Options) ([]string, error) {
	q := gmail.ListQuery{LabelIDs: opts.Labels, Query: opts.Query, PageSize: opts.PageSize}
	seen := make(map[string]bool)
	var ids []string
	token := ""
	for page := 1; ; page++ {
		resp, err := client.List(ctx, q, token)
		if err != nil {
			return nil, fmt.Errorf("list page %d: %w", page, err)
		}
		for _, id := range resp.IDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
			if opts.MaxMessages > 0 && len(ids) >= opts.MaxMessages {
				return ids, nil
			}
		}
		opts.Logger.Debug("listed page", zap.Int("page", page), zap.Int("ids", len(resp.IDs)))
		if resp.NextPageToken == "" {
			return ids, nil
		}
		token = resp.NextPageToken
	}
}
