// Package proxy tracks the set of egress proxies currently believed usable.
package proxy

import "sync"

// Pool holds the live proxy set alongside the complete configured set.
// The live set only ever shrinks; when it empties it is refilled from the
// complete set, so live ⊆ complete holds across any sequence of operations.
type Pool struct {
	mu       sync.Mutex
	live     []string
	complete []string
}

// New builds a Pool whose live and complete sets both start as a copy of
// addrs. A nil or empty addrs yields an empty pool, which Pick reports as
// having no proxy available.
func New(addrs []string) *Pool {
	p := &Pool{
		live:     make([]string, len(addrs)),
		complete: make([]string, len(addrs)),
	}
	copy(p.live, addrs)
	copy(p.complete, addrs)
	return p
}

// Pick returns the live proxy at index idx(n), where n is the current live
// set size. The caller supplies the index chooser so the random source stays
// injectable. The second return is false when the pool is empty.
func (p *Pool) Pick(idx func(n int) int) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.live) == 0 {
		return "", false
	}
	return p.live[idx(len(p.live))], true
}

// Drop removes addr from the live set. If the removal empties the pool the
// live set is refilled from the complete set in the same critical section;
// the return value reports whether that refill happened. Dropping an address
// not currently live is a no-op.
func (p *Pool) Drop(addr string) (refilled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, a := range p.live {
		if a != addr {
			continue
		}
		p.live = append(p.live[:i], p.live[i+1:]...)
		break
	}
	if len(p.live) == 0 && len(p.complete) > 0 {
		p.live = make([]string, len(p.complete))
		copy(p.live, p.complete)
		return true
	}
	return false
}

// Len reports the current live set size.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

// CompleteLen reports the size of the original configured set.
func (p *Pool) CompleteLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.complete)
}

// Snapshot returns a copy of the live set, for logging and tests.
func (p *Pool) Snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.live))
	copy(out, p.live)
	return out
}
