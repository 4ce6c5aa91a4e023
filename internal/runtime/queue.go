package runtime

import "sync"

// keyedQueue runs jobs in submission order per key. Jobs for different keys
// run concurrently, each key on its own goroutine while it has work.
type keyedQueue struct {
	mu      sync.Mutex
	pending map[string][]func()
	wg      sync.WaitGroup
}

func newKeyedQueue() *keyedQueue {
	return &keyedQueue{pending: make(map[string][]func())}
}

// Go queues job behind the unfinished jobs of key.
func (q *keyedQueue) Go(key string, job func()) {
	q.mu.Lock()
	jobs, draining := q.pending[key]
	q.pending[key] = append(jobs, job)
	q.mu.Unlock()
	if !draining {
		q.wg.Add(1)
		go q.drain(key)
	}
}

func (q *keyedQueue) drain(key string) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		jobs := q.pending[key]
		if len(jobs) == 0 {
			delete(q.pending, key)
			q.mu.Unlock()
			return
		}
		job := jobs[0]
		q.pending[key] = jobs[1:]
		q.mu.Unlock()
		job()
	}
}

// Wait blocks until every queued job has finished.
func (q *keyedQueue) Wait() { q.wg.Wait() }
