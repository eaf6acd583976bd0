package connectors

import "sync"

// SerialPool runs work for many keys in parallel while keeping the work for
// a single key in submission order. At most workers functions run at once.
type SerialPool struct {
	sem chan struct{}

	mu     sync.Mutex
	queues map[int64][]func()
	wg     sync.WaitGroup
}

// NewSerialPool creates a pool; workers below 1 is treated as 1.
func NewSerialPool(workers int) *SerialPool {
	if workers < 1 {
		workers = 1
	}
	return &SerialPool{
		sem:    make(chan struct{}, workers),
		queues: make(map[int64][]func()),
	}
}

// Submit queues fn behind any pending work for key.
func (p *SerialPool) Submit(key int64, fn func()) {
	p.mu.Lock()
	// a key present in the map has a drainer running
	if q, ok := p.queues[key]; ok {
		p.queues[key] = append(q, fn)
		p.mu.Unlock()
		return
	}
	p.queues[key] = nil
	p.wg.Add(1)
	p.mu.Unlock()

	go p.drain(key, fn)
}

func (p *SerialPool) drain(key int64, fn func()) {
	defer p.wg.Done()

	for fn != nil {
		p.sem <- struct{}{}
		fn()
		<-p.sem

		p.mu.Lock()
		q := p.queues[key]
		if len(q) == 0 {
			delete(p.queues, key)
			fn = nil
		} else {
			fn = q[0]
			p.queues[key] = q[1:]
		}
		p.mu.Unlock()
	}
}

// Wait blocks until all submitted work has finished.
func (p *SerialPool) Wait() {
	p.wg.Wait()
}
