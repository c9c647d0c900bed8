package framepool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrTimeout reports that no filled slot arrived within the wait bound.
	ErrTimeout = errors.New("framepool: timeout")
	// ErrInvalidArgument reports a nil slot, a slot of another pool or a bad
	// configuration value.
	ErrInvalidArgument = errors.New("framepool: invalid argument")
	// ErrInvalidState reports a slot handed back in the wrong state, such as
	// a double release.
	ErrInvalidState = errors.New("framepool: invalid slot state")
	// ErrUnavailable reports that every slot is held by the producer or the
	// consumer.
	ErrUnavailable = errors.New("framepool: no slot available")
)

// WaitForever makes AcquireRead wait without a bound.
const WaitForever time.Duration = -1

// Config fixes the shape of a Pool. It cannot change after New.
type Config struct {
	// Slots is the number of buffers.
	Slots int
	// SlotBytes is the capacity of each buffer.
	SlotBytes int
	Policy    Policy
	// LockMemory pins the arena in RAM where the platform supports it.
	LockMemory bool
}

// Option customizes a Pool.
type Option func(*Pool)

// WithLogger sets the logger that receives rejected state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.log = l
		}
	}
}

// Slot is one fixed-capacity frame buffer. A Slot is only valid for the
// party that currently holds it.
type Slot struct {
	pool  *Pool
	index int
	buf   []byte

	// Guarded by pool.mu.
	state State
	n     int
	seq   uint64
}

// Index returns the slot's position in the pool, 0..N-1.
func (s *Slot) Index() int { return s.index }

// Buf returns the whole buffer for the producer to write into.
func (s *Slot) Buf() []byte { return s.buf }

// Cap returns the buffer capacity.
func (s *Slot) Cap() int { return len(s.buf) }

// Bytes returns the published contents.
func (s *Slot) Bytes() []byte {
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	return s.buf[:s.n]
}

// Len returns the number of published bytes.
func (s *Slot) Len() int {
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	return s.n
}

// Seq returns the sequence number Publish gave the slot's contents. Numbers
// start at 1; gaps seen by the consumer are dropped frames.
func (s *Slot) Seq() uint64 {
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	return s.seq
}

// Pool is a fixed set of slots shared by one producer and one consumer.
type Pool struct {
	cfg   Config
	log   *slog.Logger
	arena []byte
	slots []Slot

	// free and filled hold slot indices. Each has capacity len(slots), so
	// sends never block.
	free   chan int
	filled chan int

	mu    sync.Mutex
	seq   uint64
	stats Stats

	closeOnce sync.Once
}

// New allocates a pool with every slot free.
func New(cfg Config, opts ...Option) (*Pool, error) {
	if cfg.Slots < 1 {
		return nil, fmt.Errorf("%w: %d slots", ErrInvalidArgument, cfg.Slots)
	}
	if cfg.SlotBytes < 1 {
		return nil, fmt.Errorf("%w: slot capacity %d", ErrInvalidArgument, cfg.SlotBytes)
	}
	if cfg.Policy != OverwriteOldest && cfg.Policy != Block {
		return nil, fmt.Errorf("%w: policy %v", ErrInvalidArgument, cfg.Policy)
	}
	p := &Pool{
		cfg:    cfg,
		log:    slog.New(slog.DiscardHandler),
		arena:  make([]byte, cfg.Slots*cfg.SlotBytes),
		slots:  make([]Slot, cfg.Slots),
		free:   make(chan int, cfg.Slots),
		filled: make(chan int, cfg.Slots),
	}
	for _, opt := range opts {
		opt(p)
	}
	if cfg.LockMemory {
		if err := lockMemory(p.arena); err != nil {
			return nil, fmt.Errorf("framepool: lock %d byte arena: %w", len(p.arena), err)
		}
	}
	for i := range p.slots {
		lo, hi := i*cfg.SlotBytes, (i+1)*cfg.SlotBytes
		p.slots[i] = Slot{pool: p, index: i, buf: p.arena[lo:hi:hi]}
		p.free <- i
	}
	return p, nil
}

// Close unpins the arena. The pool must not be used afterwards.
func (p *Pool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if p.cfg.LockMemory {
			err = unlockMemory(p.arena)
		}
	})
	return err
}

// Config returns the configuration the pool was built with.
func (p *Pool) Config() Config { return p.cfg }

// own reports whether s is a slot of p.
func (p *Pool) own(s *Slot) error {
	if s == nil {
		return fmt.Errorf("%w: nil slot", ErrInvalidArgument)
	}
	if s.pool != p || s.index < 0 || s.index >= len(p.slots) || &p.slots[s.index] != s {
		return fmt.Errorf("%w: slot does not belong to this pool", ErrInvalidArgument)
	}
	return nil
}

// reject records and logs a refused transition. p.mu must be held.
func (p *Pool) reject(op string, s *Slot, want State) error {
	p.stats.Rejected++
	p.log.Warn("frame pool transition rejected",
		slog.String("op", op),
		slog.Int("slot", s.index),
		slog.String("state", s.state.String()),
		slog.String("want", want.String()),
	)
	return fmt.Errorf("%w: %s slot %d is %v, want %v", ErrInvalidState, op, s.index, s.state, want)
}

// beginFill hands slot i to the producer.
func (p *Pool) beginFill(i int, stolen bool) *Slot {
	s := &p.slots[i]
	p.mu.Lock()
	defer p.mu.Unlock()
	if stolen {
		p.stats.Dropped++
	}
	s.state = StateFilling
	s.n = 0
	return s
}

// AcquireFill returns a slot for the producer to fill. It never blocks: if
// no slot is free it takes the oldest filled slot under OverwriteOldest, and
// otherwise fails with ErrUnavailable.
func (p *Pool) AcquireFill() (*Slot, error) {
	select {
	case i := <-p.free:
		return p.beginFill(i, false), nil
	default:
	}
	if p.cfg.Policy == OverwriteOldest {
		select {
		case i := <-p.filled:
			return p.beginFill(i, true), nil
		default:
		}
	}
	return nil, ErrUnavailable
}

// AcquireFillContext is AcquireFill, except that when no slot can be taken
// it waits until one is released or ctx is done.
func (p *Pool) AcquireFillContext(ctx context.Context) (*Slot, error) {
	if s, err := p.AcquireFill(); err == nil {
		return s, nil
	}
	filled := p.filled
	if p.cfg.Policy != OverwriteOldest {
		filled = nil
	}
	select {
	case i := <-p.free:
		return p.beginFill(i, false), nil
	case i := <-filled:
		return p.beginFill(i, true), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Publish hands a filled slot holding n bytes to the consumer.
func (p *Pool) Publish(s *Slot, n int) error {
	if err := p.own(s); err != nil {
		return err
	}
	if n < 0 || n > len(s.buf) {
		return fmt.Errorf("%w: length %d outside slot capacity %d", ErrInvalidArgument, n, len(s.buf))
	}
	p.mu.Lock()
	if s.state != StateFilling {
		err := p.reject("publish", s, StateFilling)
		p.mu.Unlock()
		return err
	}
	p.seq++
	s.seq = p.seq
	s.n = n
	s.state = StateFilled
	p.stats.Published++
	p.mu.Unlock()
	p.filled <- s.index
	return nil
}

// Recycle returns a slot the producer could not fill to the free queue, so
// no partial frame reaches the consumer.
func (p *Pool) Recycle(s *Slot) error {
	if err := p.own(s); err != nil {
		return err
	}
	p.mu.Lock()
	if s.state != StateFilling {
		err := p.reject("recycle", s, StateFilling)
		p.mu.Unlock()
		return err
	}
	s.n = 0
	s.state = StateFree
	p.stats.Recycled++
	p.mu.Unlock()
	p.free <- s.index
	return nil
}

// AcquireRead checks out the oldest filled slot, waiting up to timeout for
// one to be published. A zero timeout polls and WaitForever, or any other
// negative value, waits without a bound.
func (p *Pool) AcquireRead(timeout time.Duration) (*Slot, error) {
	if timeout == 0 {
		select {
		case i := <-p.filled:
			return p.checkOut(i)
		default:
			return nil, p.timedOut()
		}
	}
	if timeout < 0 {
		return p.checkOut(<-p.filled)
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case i := <-p.filled:
		return p.checkOut(i)
	case <-t.C:
		return nil, p.timedOut()
	}
}

// AcquireReadContext is AcquireRead bounded by ctx instead of a duration.
func (p *Pool) AcquireReadContext(ctx context.Context) (*Slot, error) {
	select {
	case i := <-p.filled:
		return p.checkOut(i)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) timedOut() error {
	p.mu.Lock()
	p.stats.Timeouts++
	p.mu.Unlock()
	return ErrTimeout
}

func (p *Pool) checkOut(i int) (*Slot, error) {
	s := &p.slots[i]
	p.mu.Lock()
	defer p.mu.Unlock()
	if s.state != StateFilled {
		return nil, p.reject("read", s, StateFilled)
	}
	s.state = StateCheckedOut
	p.stats.Read++
	return s, nil
}

// Release returns a checked out slot to the free queue.
func (p *Pool) Release(s *Slot) error {
	if err := p.own(s); err != nil {
		return err
	}
	p.mu.Lock()
	if s.state != StateCheckedOut {
		err := p.reject("release", s, StateCheckedOut)
		p.mu.Unlock()
		return err
	}
	s.n = 0
	s.state = StateFree
	p.stats.Released++
	p.mu.Unlock()
	p.free <- s.index
	return nil
}
