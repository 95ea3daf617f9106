package coordinator

import "sync"

// keyedQueue runs tasks sharing a key one at a time in submission order.
// Tasks with different keys run concurrently.
type keyedQueue struct {
	mu      sync.Mutex
	idle    *sync.Cond
	pending map[string][]func()
	active  int
}

func newKeyedQueue() *keyedQueue {
	q := &keyedQueue{pending: make(map[string][]func())}
	q.idle = sync.NewCond(&q.mu)
	return q
}

func (q *keyedQueue) Enqueue(key string, task func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.active++
	tasks, running := q.pending[key]
	q.pending[key] = append(tasks, task)
	if !running {
		go q.drain(key)
	}
}

func (q *keyedQueue) drain(key string) {
	for {
		q.mu.Lock()
		tasks := q.pending[key]
		if len(tasks) == 0 {
			delete(q.pending, key)
			q.mu.Unlock()
			return
		}
		task := tasks[0]
		q.pending[key] = tasks[1:]
		q.mu.Unlock()

		task()

		q.mu.Lock()
		q.active--
		if q.active == 0 {
			q.idle.Broadcast()
		}
		q.mu.Unlock()
	}
}

func (q *keyedQueue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active > 0
}

// Wait blocks until every enqueued task, including ones enqueued while
// waiting, has finished.
func (q *keyedQueue) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.active > 0 {
		q.idle.Wait()
	}
}
