package render

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// workerPool runs rasterization jobs on a fixed set of goroutines. Each
// worker owns a queue and steals from the others when its own runs dry,
// which keeps the pool busy when stroke complexity varies wildly (one
// full-page ink path next to a dozen tiny ones).
type workerPool struct {
	workers int
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
	next    atomic.Uint64
}

// newWorkerPool starts a pool with n workers, or GOMAXPROCS if n <= 0.
func newWorkerPool(n int) *workerPool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	queueSize := n * 4
	if queueSize < 8 {
		queueSize = 8
	}
	p := &workerPool{
		workers: n,
		queues:  make([]chan func(), n),
		done:    make(chan struct{}),
	}
	for i := range p.queues {
		p.queues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker(i)
	}
	return p
}

func (p *workerPool) worker(id int) {
	defer p.wg.Done()
	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case job := <-own:
			if job != nil {
				job()
			}
		default:
			if job := p.steal(id); job != nil {
				job()
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case job := <-own:
				if job != nil {
					job()
				}
			}
		}
	}
}

func (p *workerPool) drain(q chan func()) {
	for {
		select {
		case job := <-q:
			if job != nil {
				job()
			}
		default:
			return
		}
	}
}

func (p *workerPool) steal(self int) func() {
	for i := 0; i < p.workers; i++ {
		if i == self {
			continue
		}
		select {
		case job := <-p.queues[i]:
			return job
		default:
		}
	}
	return nil
}

// submit queues one job round-robin. A no-op once the pool is closed.
func (p *workerPool) submit(job func()) {
	if job == nil || !p.running.Load() {
		return
	}
	id := int(p.next.Add(1)-1) % p.workers
	select {
	case p.queues[id] <- job:
	case <-p.done:
	}
}

// close stops accepting work, runs what is already queued, and waits for
// the workers to exit. Safe to call more than once.
func (p *workerPool) close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}
