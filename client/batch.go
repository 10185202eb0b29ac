package client

import (
	"context"
	"time"
)

// Batch accumulates statements for sequential execution over a single
// handle. The translator exposes no multi-statement endpoint, so each
// entry is sent as its own request, strictly in the order added; later
// entries only go on the wire after the previous exchange finished.
//
// By default execution continues past failed entries and the aggregate
// error reports how many failed. FailFast stops at the first failure
// and marks the remaining entries skipped. As with Query, an entry
// fails only when its request never completed; a response body carrying
// a server-side error envelope still counts as a completed entry.
type Batch struct {
	client   *Client
	queries  []string
	failFast bool
}

// BatchResult is the outcome of one batch entry.
type BatchResult struct {
	// Index is the entry's position in the batch
	Index int

	// Query is the statement as added
	Query string

	// Data is the raw response body, nil when the entry failed or was skipped
	Data []byte

	// Err is set when the entry's request never completed
	Err error

	// Duration is how long the entry's exchange took
	Duration time.Duration

	// Skipped marks entries never sent because an earlier entry failed
	// under FailFast
	Skipped bool
}

// NewBatch creates an empty batch bound to the handle.
func (c *Client) NewBatch() *Batch {
	return &Batch{client: c}
}

// Add appends a statement to the batch. Returns the batch for chaining.
func (b *Batch) Add(query string) *Batch {
	b.queries = append(b.queries, query)
	return b
}

// FailFast makes Execute stop at the first failed entry instead of
// continuing. Returns the batch for chaining.
func (b *Batch) FailFast() *Batch {
	b.failFast = true
	return b
}

// Len returns the number of statements added so far.
func (b *Batch) Len() int {
	return len(b.queries)
}

// Execute sends the batch. The whole batch is validated up front: a
// disconnected handle, an empty batch or a blank entry is rejected
// before anything reaches the wire. One BatchResult per entry comes
// back in order, alongside a *BatchError when any entry failed. Cancel
// ctx to abandon entries that have not been sent yet.
func (b *Batch) Execute(ctx context.Context) ([]BatchResult, error) {
	if state := b.client.stateMgr.GetState(); state != CONNECTED {
		return nil, ErrNotConnected("Batch", state)
	}
	if len(b.queries) == 0 {
		return nil, ErrEmptyBatch()
	}
	for i, q := range b.queries {
		if q == "" {
			err := ErrEmptyQuery("Batch")
			err.Details["index"] = i
			return nil, err
		}
	}

	b.client.logger.Info("executing batch",
		Int("queries", len(b.queries)),
		Bool("failFast", b.failFast))

	results := make([]BatchResult, len(b.queries))
	failed := 0
	firstFailure := -1
	aborted := false

	for i, q := range b.queries {
		results[i] = BatchResult{Index: i, Query: q}

		if aborted {
			results[i].Skipped = true
			continue
		}

		start := time.Now()
		data, err := b.client.roundTrip(ctx, "Batch", q)
		results[i].Duration = time.Since(start)

		if err != nil {
			results[i].Err = err
			failed++
			if firstFailure < 0 {
				firstFailure = i
			}
			if b.failFast {
				aborted = true
			}
			continue
		}
		results[i].Data = data
	}

	if failed > 0 {
		return results, ErrBatchPartialFailure(failed, len(b.queries), firstFailure)
	}
	return results, nil
}
