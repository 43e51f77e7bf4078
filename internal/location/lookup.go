package location

import (
	"context"
	"sync"

	"github.com/vbonduro/wastecapture/internal/domain"
)

// Lookup is a handle on one background resolution, tagged with the session
// generation that started it.
type Lookup struct {
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}

	mu     sync.Mutex
	result *domain.Location
}

// Start runs resolve on its own goroutine and returns immediately.
func Start(generation uint64, resolve func(context.Context) *domain.Location) *Lookup {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Lookup{generation: generation, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(l.done)
		loc := resolve(ctx)
		if ctx.Err() != nil {
			return
		}
		l.mu.Lock()
		l.result = loc
		l.mu.Unlock()
	}()

	return l
}

func (l *Lookup) Generation() uint64 { return l.generation }

// Result returns a copy of the resolved location, or nil while the lookup is
// pending, after it failed, or once it was cancelled. It never blocks.
func (l *Lookup) Result() *domain.Location {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.result == nil {
		return nil
	}
	loc := *l.result
	return &loc
}

// Done is closed when the resolution goroutine has returned.
func (l *Lookup) Done() <-chan struct{} { return l.done }

// Cancel stops the lookup and discards any result it produced.
func (l *Lookup) Cancel() {
	l.cancel()
	l.mu.Lock()
	l.result = nil
	l.mu.Unlock()
}
