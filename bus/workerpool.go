package bus

import (
	"sync"

	"github.com/nathanplt/pub-sub-system/internal/log"
	"github.com/rs/zerolog"
)

// Task is a unit of work submitted to a WorkerPool.
type Task func()

// WorkerPool is a fixed-size pool of goroutines that drains a shared task
// queue. Tasks submitted across the pool are dequeued in submission order,
// but completion order across workers is not guaranteed. A panic escaping
// a task is logged and does not take down the worker or the pool.
type WorkerPool struct {
	tasks chan Task
	wg    sync.WaitGroup
}

// NewWorkerPool starts n worker goroutines draining a queue of the given
// capacity and returns the running pool.
func NewWorkerPool(n, queueCap int) *WorkerPool {
	if n <= 0 {
		n = 1
	}
	if queueCap < 0 {
		queueCap = 0
	}
	p := &WorkerPool{tasks: make(chan Task, queueCap)}

	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker()
	}
	return p
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	logger := log.WithComponent("workerpool")
	for task := range p.tasks {
		runTask(task, logger)
	}
}

// runTask invokes task, recovering a panic so one bad handler cannot kill
// the worker goroutine or the rest of the pool.
func runTask(task Task, logger zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("worker task panicked")
		}
	}()
	task()
}

// Post submits a task. It blocks if the queue is full; callers that need
// drop-on-full semantics should select on a done channel themselves.
func (p *WorkerPool) Post(t Task) {
	p.tasks <- t
}

// QueueLen reports how many tasks are currently waiting (not counting ones
// a worker has already dequeued and is running).
func (p *WorkerPool) QueueLen() int {
	return len(p.tasks)
}

// Stop signals workers to finish pending tasks and exit; it does not wait
// for them — call Join for that. After Stop the pool cannot accept new
// tasks.
func (p *WorkerPool) Stop() {
	close(p.tasks)
}

// Join waits for every worker to exit. The pool is not reusable after
// Stop+Join.
func (p *WorkerPool) Join() {
	p.wg.Wait()
}
