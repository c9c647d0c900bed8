package framepool

// Stats counts pool activity since New.
type Stats struct {
	Published uint64
	// Dropped counts filled slots the producer took back before the
	// consumer read them.
	Dropped  uint64
	Read     uint64
	Released uint64
	Recycled uint64
	Timeouts uint64
	// Rejected counts transitions refused with ErrInvalidState.
	Rejected uint64

	// Slot counts per state at the time of the snapshot.
	Free, Filling, Filled, CheckedOut int
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.stats
	for i := range p.slots {
		switch p.slots[i].state {
		case StateFree:
			st.Free++
		case StateFilling:
			st.Filling++
		case StateFilled:
			st.Filled++
		case StateCheckedOut:
			st.CheckedOut++
		}
	}
	return st
}

// Inventory returns the state of every slot, by index.
func (p *Pool) Inventory() []State {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]State, len(p.slots))
	for i := range p.slots {
		out[i] = p.slots[i].state
	}
	return out
}
