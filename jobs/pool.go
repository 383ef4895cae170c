package jobs

import (
	"sync"
)

// result is the concrete FinishedJob produced by Pool.
type result struct {
	identifier string
	value      any
	err        error
}

func (r *result) Identifier() string { return r.identifier }

func (r *result) ReturnCode() int {
	if r.err != nil {
		return -1
	}
	return 0
}

func (r *result) Result() any { return r.value }

// Pool is an in-process JobHandler backed by a bounded goroutine pool. It is
// the default handler an EnsembleCore runs against when no external job
// handler (e.g. jobs/rpc.Handler) is supplied.
type Pool struct {
	mu       sync.Mutex
	capacity int
	active   int
	done     map[string]*result
	byHandle map[string]map[string]bool // uniqueHandler -> set of identifiers still pending or held
	cond     *sync.Cond
}

// NewPool creates a Pool with the given worker capacity.
func NewPool(capacity int) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	p := &Pool{
		capacity: capacity,
		done:     make(map[string]*result),
		byHandle: make(map[string]map[string]bool),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// HowManyFreeSpots reports the number of workers not currently busy.
func (p *Pool) HowManyFreeSpots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capacity - p.active
}

// Submit dispatches work on its own goroutine as soon as a slot is free,
// blocking the caller while every slot is busy. Callers that must not block
// should check HowManyFreeSpots first, matching the original submit/poll
// contract.
func (p *Pool) Submit(work WorkUnit) error {
	p.mu.Lock()
	for p.active >= p.capacity {
		p.cond.Wait()
	}
	p.active++
	if p.byHandle[work.UniqueHandler] == nil {
		p.byHandle[work.UniqueHandler] = make(map[string]bool)
	}
	p.byHandle[work.UniqueHandler][work.Identifier] = true
	p.mu.Unlock()

	go func() {
		value, err := work.Work()
		p.mu.Lock()
		// A job drained by DrainHandler while still running is no longer
		// registered under its unique handler; its result is discarded.
		if p.byHandle[work.UniqueHandler][work.Identifier] {
			p.done[work.Identifier] = &result{identifier: work.Identifier, value: value, err: err}
		}
		p.active--
		p.cond.Signal()
		p.mu.Unlock()
	}()
	return nil
}

// IsJobFinished reports whether the given identifier has a result ready.
func (p *Pool) IsJobFinished(identifier string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.done[identifier]
	return ok
}

// GetFinished drains and returns the finished job, removing it from the
// pool's bookkeeping under both its identifier and its unique handler
// group.
func (p *Pool) GetFinished(identifier, uniqueHandler string) (FinishedJob, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.done[identifier]
	if !ok {
		return nil, ErrJobNotFound
	}
	delete(p.done, identifier)
	if siblings, ok := p.byHandle[uniqueHandler]; ok {
		delete(siblings, identifier)
		if len(siblings) == 0 {
			delete(p.byHandle, uniqueHandler)
		}
	}
	return r, nil
}

// DrainHandler discards every job, finished or still pending, registered
// under uniqueHandler, without requiring that each be individually
// collected first. Used by JobCoordinator to clean up siblings of a failed
// job (§5 cancellation semantics).
func (p *Pool) DrainHandler(uniqueHandler string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for identifier := range p.byHandle[uniqueHandler] {
		delete(p.done, identifier)
	}
	delete(p.byHandle, uniqueHandler)
}

var _ JobHandler = (*Pool)(nil)
