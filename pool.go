package mailbuild

import (
	"errors"
	"runtime"
	"sync"
)

const (
	MinPoolSize = 1

	// MaxPoolSize bounds automatic sizing; each browser takes ~200MB.
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// ProoferPool hands out up to Size proofers, one browser each, so that
// several emails can be captured at once. Proofers are made on demand.
type ProoferPool struct {
	opts    []ProoferOption
	factory func(opts ...ProoferOption) *Proofer

	idle  chan *Proofer // released proofers
	slots chan struct{} // one token per proofer not yet made

	mu     sync.Mutex
	all    []*Proofer
	closed bool
}

// NewProoferPool creates a pool of n proofers (at least one) built
// with opts.
func NewProoferPool(n int, opts ...ProoferOption) *ProoferPool {
	n = max(n, MinPoolSize)
	p := &ProoferPool{
		opts:    opts,
		factory: NewProofer,
		idle:    make(chan *Proofer, n),
		slots:   make(chan struct{}, n),
	}
	for range n {
		p.slots <- struct{}{}
	}
	return p
}

// Acquire prefers an idle proofer, makes a new one while slots remain,
// and otherwise blocks until one is released. It returns nil once the
// pool is closed.
func (p *ProoferPool) Acquire() *Proofer {
	select {
	case pr := <-p.idle:
		return pr
	default:
	}

	select {
	case pr := <-p.idle:
		return pr
	case <-p.slots:
		return p.create()
	}
}

func (p *ProoferPool) create() *Proofer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	// NewProofer does not start a browser, so this is cheap under the lock.
	pr := p.factory(p.opts...)
	p.all = append(p.all, pr)
	return pr
}

// Release makes pr available again. After Close it does nothing.
func (p *ProoferPool) Release(pr *Proofer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || pr == nil {
		return
	}
	// idle has room for every proofer ever made; a full channel means
	// pr was released twice.
	select {
	case p.idle <- pr:
	default:
	}
}

// Close shuts every browser the pool started. It is safe to call twice.
func (p *ProoferPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.idle)
	// Buffered proofers are about to be shut; Acquire must not see them.
	for range p.idle {
	}
	all := p.all
	p.mu.Unlock()

	errs := make([]error, 0, len(all))
	for _, pr := range all {
		errs = append(errs, pr.Close())
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *ProoferPool) Size() int {
	return cap(p.slots)
}

// ResolvePoolSize returns workers when positive. Otherwise it sizes the
// pool from GOMAXPROCS, which automaxprocs adjusts to container quotas,
// clamped to [MinPoolSize, MaxPoolSize].
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}
	return min(max(runtime.GOMAXPROCS(0)/cpuDivisor, MinPoolSize), MaxPoolSize)
}
