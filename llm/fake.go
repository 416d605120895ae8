package llm

import (
	"context"
	"iter"
	"sync"
)

// FakeClient is a scripted Client for tests.
type FakeClient struct {
	mu sync.Mutex

	// Deltas are yielded in order by Stream.
	Deltas []string
	// StreamErr, when set, is yielded after the deltas.
	StreamErr error
	// Replies are returned by successive Generate calls. The last reply
	// repeats once exhausted.
	Replies []string
	// GenerateErr, when set, fails every Generate call.
	GenerateErr error

	// Requests records every request in call order.
	Requests []Request

	generated int
}

// Generate implements Client.
func (f *FakeClient) Generate(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.GenerateErr != nil {
		return "", f.GenerateErr
	}
	if len(f.Replies) == 0 {
		return "", ErrEmptyResponse
	}
	i := min(f.generated, len(f.Replies)-1)
	f.generated++
	return f.Replies[i], nil
}

// Stream implements Client. It stops early when ctx is cancelled.
func (f *FakeClient) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	deltas := append([]string(nil), f.Deltas...)
	streamErr := f.StreamErr
	f.mu.Unlock()

	return func(yield func(string, error) bool) {
		for _, d := range deltas {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if !yield(d, nil) {
				return
			}
		}
		if streamErr != nil {
			yield("", streamErr)
		}
	}
}

// Calls returns a copy of the recorded requests.
func (f *FakeClient) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.Requests...)
}

var _ Client = (*FakeClient)(nil)
