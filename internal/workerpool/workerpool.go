// Package workerpool bounds the number of concurrently running one-shot
// script commands.
package workerpool

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/wireit-go/wireit/internal/core/ports"
)

var _ ports.WorkerPool = (*Pool)(nil)

// Pool implements ports.WorkerPool over golang.org/x/sync/semaphore.Weighted.
type Pool struct {
	sem *semaphore.Weighted
}

// New constructs a Pool allowing up to parallelism concurrent acquisitions.
// parallelism below 1 is treated as 1: a pool that can never grant a slot
// would deadlock every one-shot execution.
func New(parallelism int) *Pool {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(parallelism))}
}

// Acquire implements ports.WorkerPool.
func (p *Pool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// Release implements ports.WorkerPool.
func (p *Pool) Release() {
	p.sem.Release(1)
}
