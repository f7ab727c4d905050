package worker

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
)

// Result is the completion report of one worker.
type Result struct {
	DeviceID int
	Err      error
}

// Group supervises a set of workers sharing one shutdown flag. Each worker
// runs in its own goroutine and owns all of its sampling state.
type Group struct {
	stop atomic.Bool

	mu      sync.Mutex
	wg      sync.WaitGroup
	workers []*Worker
	results []Result

	doneOnce sync.Once
	done     chan struct{}
}

// Go starts w under the group. The worker's Stop flag is replaced by the
// group's.
func (g *Group) Go(ctx context.Context, w *Worker) {
	w.Stop = &g.stop

	g.mu.Lock()
	g.workers = append(g.workers, w)
	g.mu.Unlock()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		err := w.Run(ctx)
		g.mu.Lock()
		g.results = append(g.results, Result{DeviceID: w.DeviceID(), Err: err})
		g.mu.Unlock()
	}()
}

// Shutdown sets the shared stop flag. Workers observe it at the top of
// their next cycle.
func (g *Group) Shutdown() {
	g.stop.Store(true)
}

// Wait blocks until every worker has returned and reports their results
// ordered by device id.
func (g *Group) Wait() []Result {
	g.wg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	out := append([]Result(nil), g.results...)
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// Done returns a channel that is closed once every worker started so far has
// returned, whether or not Shutdown was called. Call it after the last Go.
func (g *Group) Done() <-chan struct{} {
	g.doneOnce.Do(func() {
		g.done = make(chan struct{})
		go func() {
			g.wg.Wait()
			close(g.done)
		}()
	})
	return g.done
}

// AllFailed reports whether results is non-empty and every worker in it
// returned an error.
func AllFailed(results []Result) bool {
	for _, r := range results {
		if r.Err == nil {
			return false
		}
	}
	return len(results) > 0
}

// Statuses returns the latest snapshot of every worker that has published one.
func (g *Group) Statuses() []Status {
	g.mu.Lock()
	workers := append([]*Worker(nil), g.workers...)
	g.mu.Unlock()

	out := make([]Status, 0, len(workers))
	for _, w := range workers {
		if st, ok := w.Status(); ok {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}
