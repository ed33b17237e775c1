package runner

import "sync"

// workerPool bounds how many site pipelines run at once.
type workerPool struct {
	semaphore chan struct{}
	wg        sync.WaitGroup
}

func newWorkerPool(maxWorkers int) *workerPool {
	return &workerPool{
		semaphore: make(chan struct{}, maxWorkers),
	}
}

// submit runs the job in a goroutine once a worker slot is free.
func (p *workerPool) submit(job func()) {
	p.wg.Add(1)
	p.semaphore <- struct{}{}

	go func() {
		defer p.wg.Done()
		defer func() { <-p.semaphore }()

		job()
	}()
}

// wait blocks until all submitted jobs have finished.
func (p *workerPool) wait() {
	p.wg.Wait()
}
