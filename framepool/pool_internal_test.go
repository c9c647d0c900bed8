package framepool

import (
	"errors"
	"testing"
)

func TestAcquireReadRejectsSlotNotFilled(t *testing.T) {
	p, err := New(Config{Slots: 2, SlotBytes: 16})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	// Slot 0 is checked out but its index also sits in the filled queue.
	i := <-p.free
	p.slots[i].state = StateCheckedOut
	p.filled <- i

	if s, err := p.AcquireRead(0); !errors.Is(err, ErrInvalidState) || s != nil {
		t.Fatalf("AcquireRead = %v, %v; want ErrInvalidState", s, err)
	}
	st := p.Stats()
	if st.Rejected != 1 || st.Read != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if got := p.Inventory()[i]; got != StateCheckedOut {
		t.Fatalf("slot %d state = %v, want %v", i, got, StateCheckedOut)
	}
}
