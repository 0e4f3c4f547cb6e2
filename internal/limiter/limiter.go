// Package limiter provides bounded-concurrency gates around expensive
// external calls. Pools are process-wide and shared across all stories; no
// per-story fairness is guaranteed beyond arrival order.
package limiter

import (
	"context"
)

// Pool is a counting semaphore. Acquire suspends the caller until a slot is
// free; it never fails on saturation, only on context cancellation. Callers
// wrap acquisition with a timeout when they need one.
type Pool struct {
	sem chan struct{}
}

// NewPool creates a pool with the given capacity. Capacity below 1 is
// clamped to 1.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Acquire takes one slot, blocking until available or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees one slot. Must be called exactly once per successful Acquire,
// on every exit path including failure.
func (p *Pool) Release() {
	select {
	case <-p.sem:
	default:
		// Release without a matching Acquire is a programming error; keep the
		// counter sane instead of blocking.
	}
}

// InUse returns the number of currently held slots.
func (p *Pool) InUse() int {
	return len(p.sem)
}

// AdmissionController bundles the independent pools gating the external
// collaborators.
type AdmissionController struct {
	Generation  *Pool
	Persistence *Pool
	Extraction  *Pool
}

// NewAdmissionController builds the three standard pools.
func NewAdmissionController(generation, persistence, extraction int) *AdmissionController {
	return &AdmissionController{
		Generation:  NewPool(generation),
		Persistence: NewPool(persistence),
		Extraction:  NewPool(extraction),
	}
}
