// Package batch splits ordered work into chunks bounded by external capacity limits.
package batch

import (
	"context"
	"fmt"
	"log"
)

const (
	// MessageLimit is the number of distinct items one outgoing message may carry.
	MessageLimit = 11
	// BulkLimit is the number of per-item calls grouped into one transactional batch.
	BulkLimit = 15 * MessageLimit
)

// Chunk splits items into consecutive slices of at most size elements. The last
// slice may be shorter; an empty input yields no slices.
func Chunk[T any](items []T, size int) [][]T {
	if size < 1 {
		panic(fmt.Sprintf("batch: chunk size must be at least 1, got %d", size))
	}
	if len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end:end])
	}
	return out
}

// Transactor opens and closes a transactional batch of game calls.
type Transactor interface {
	BatchOpen(ctx context.Context) error
	BatchClose(ctx context.Context) error
}

// Process runs each chunk of items inside its own batch. When a batch fails to
// close, onCloseFailure is called and must return the error that aborts the
// run; if it returns nil a backup error is returned instead. When each fails the
// batch is still closed so the game accepts the next one, and the item error
// is returned.
func Process[T any](
	ctx context.Context,
	tx Transactor,
	items []T,
	size int,
	each func(ctx context.Context, chunk []T) error,
	onCloseFailure func(chunk []T, err error) error,
) error {
	for _, chunk := range Chunk(items, size) {
		if err := tx.BatchOpen(ctx); err != nil {
			return fmt.Errorf("open batch of %d: %w", len(chunk), err)
		}
		if err := each(ctx, chunk); err != nil {
			if cerr := tx.BatchClose(ctx); cerr != nil {
				log.Printf("[batch] close after failed chunk of %d: %v", len(chunk), cerr)
			}
			return err
		}
		if err := tx.BatchClose(ctx); err != nil {
			if onCloseFailure != nil {
				if abort := onCloseFailure(chunk, err); abort != nil {
					return abort
				}
			}
			return fmt.Errorf("batch of %d items failed to close and was not handled: %w", len(chunk), err)
		}
	}
	return nil
}
