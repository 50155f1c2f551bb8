// Package worker provides a fixed-size pool for running independent tasks.
package worker

import "sync"

// Pool runs submitted tasks on a fixed number of goroutines.
type Pool struct {
	workers   int
	taskQueue chan func()
	waitGroup sync.WaitGroup
}

// NewPool starts a pool with the given number of workers. A non-positive
// count gets one worker.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	pool := &Pool{
		workers:   workers,
		taskQueue: make(chan func(), workers),
	}

	pool.waitGroup.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.worker()
	}

	return pool
}

func (p *Pool) worker() {
	defer p.waitGroup.Done()
	for task := range p.taskQueue {
		task()
	}
}

// Submit queues a task. Blocks while all workers are busy and the queue is
// full.
func (p *Pool) Submit(task func()) {
	p.taskQueue <- task
}

// Shutdown stops accepting tasks and waits for queued ones to finish.
func (p *Pool) Shutdown() {
	close(p.taskQueue)
	p.waitGroup.Wait()
}
