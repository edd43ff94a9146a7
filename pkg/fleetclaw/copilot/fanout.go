// fanout.go runs one operation across an explicit set of independent bot
// identities in parallel. Results come back in submission order no matter
// which identity finishes first, and a failure in one identity's operation
// never cancels or corrupts the others.
package copilot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// DefaultFanOutWorkers caps concurrent identity operations. Identity sets
// are human-scale, so a small pool is plenty.
const DefaultFanOutWorkers = 5

// FanOutOp applies one operation to a single identity.
type FanOutOp func(ctx context.Context, identity string) (string, error)

// FanOutResult is one identity's slot in the aggregated output.
type FanOutResult struct {
	Identity string
	Output   string
	Err      error
}

// ProgressSink receives best-effort progress from a fan-out job. Updates
// are lossy: implementations must never block, and dropping an update is
// acceptable. Losing a result is not.
type ProgressSink interface {
	Progress(done, total int)
	Status(message string)
}

// ChannelSink is a ProgressSink backed by bounded channels; writes that
// would block are dropped so slow or absent consumers cannot stall a job.
type ChannelSink struct {
	progress chan [2]int
	status   chan string
}

// NewChannelSink creates a sink with the given buffer size per channel.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChannelSink{
		progress: make(chan [2]int, buffer),
		status:   make(chan string, buffer),
	}
}

// Progress records a done/total update, dropping it when the buffer is full.
func (s *ChannelSink) Progress(done, total int) {
	select {
	case s.progress <- [2]int{done, total}:
	default:
	}
}

// Status records a free-text update, dropping it when the buffer is full.
func (s *ChannelSink) Status(message string) {
	select {
	case s.status <- message:
	default:
	}
}

// Updates returns the progress channel for consumers.
func (s *ChannelSink) Updates() <-chan [2]int { return s.progress }

// Messages returns the status channel for consumers.
func (s *ChannelSink) Messages() <-chan string { return s.status }

// FanOut applies op to every identity concurrently through a worker pool
// and returns one result slot per identity in submission order. The call
// is fully synchronous: it returns only after every identity completed.
// A panic inside op is confined to that identity's slot as an error.
// Duplicate identities are rejected before anything executes.
func FanOut(ctx context.Context, identities []string, op FanOutOp, sink ProgressSink, workers int) ([]FanOutResult, error) {
	seen := make(map[string]bool, len(identities))
	for _, id := range identities {
		if seen[id] {
			return nil, fmt.Errorf("fan-out: duplicate identity %q", id)
		}
		seen[id] = true
	}

	if workers <= 0 || workers > DefaultFanOutWorkers {
		workers = DefaultFanOutWorkers
	}

	results := make([]FanOutResult, len(identities))
	total := len(identities)
	var done atomic.Int64

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, id := range identities {
		wg.Add(1)
		go func(idx int, identity string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = runIdentity(ctx, identity, op)

			n := int(done.Add(1))
			if sink != nil {
				sink.Progress(n, total)
			}
		}(i, id)
	}
	wg.Wait()

	return results, nil
}

// runIdentity executes op for one identity, converting panics to errors so
// a misbehaving operation only poisons its own slot.
func runIdentity(ctx context.Context, identity string, op FanOutOp) (res FanOutResult) {
	res.Identity = identity
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	res.Output, res.Err = op(ctx, identity)
	return res
}
