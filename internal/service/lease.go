package service

import "sync"

// leaseTable counts open download streams per object name. A delete that
// finds open streams parks its chunk purge here until the last one closes.
type leaseTable struct {
	mu      sync.Mutex
	active  map[string]int
	pending map[string]func()
}

func newLeaseTable() *leaseTable {
	return &leaseTable{
		active:  make(map[string]int),
		pending: make(map[string]func()),
	}
}

func (t *leaseTable) acquire(name string) {
	t.mu.Lock()
	t.active[name]++
	t.mu.Unlock()
}

// release drops one lease and returns the parked purge if this was the
// last lease on name.
func (t *leaseTable) release(name string) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.active[name] - 1
	if n > 0 {
		t.active[name] = n
		return nil
	}
	delete(t.active, name)
	purge := t.pending[name]
	delete(t.pending, name)
	return purge
}

// deferPurge parks purge while name has open leases and reports whether
// it did. With no open leases the caller must purge itself.
func (t *leaseTable) deferPurge(name string, purge func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active[name] == 0 {
		return false
	}
	t.pending[name] = purge
	return true
}

func (t *leaseTable) open(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active[name]
}
