package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jackzfdai/wifi-camera/framepool"
	"github.com/jackzfdai/wifi-camera/internal/capture"
	"github.com/jackzfdai/wifi-camera/internal/journal"
	"github.com/jackzfdai/wifi-camera/internal/logging"
	"github.com/jackzfdai/wifi-camera/jpeg"
)

// defaultReadTimeout bounds each consumer wait when none is configured, so
// shutdown is noticed.
const defaultReadTimeout = 500 * time.Millisecond

// Recorder stores delivered frames. *journal.Store implements it.
type Recorder interface {
	RecordFrame(ctx context.Context, f journal.Frame) error
}

// Options configures a Pipeline.
type Options struct {
	SessionID   string
	ReadTimeout time.Duration
	// MaxFrames stops capture after that many frames were published. Zero
	// means no limit.
	MaxFrames int
	Recorder  Recorder
	Logger    *slog.Logger
}

// Result summarizes a finished run.
type Result struct {
	Pool     framepool.Stats
	Captured uint64
	Failed   uint64
	Sent     uint64
	Elapsed  time.Duration
}

// Pipeline moves frames from a capture source through the encoder into pool
// slots (producer) and from the pool to a sink (consumer).
type Pipeline struct {
	pool *framepool.Pool
	enc  *jpeg.Encoder
	src  capture.Source
	sink Sink
	opts Options
	log  *slog.Logger

	// encodeTime is indexed by slot. The producer writes an entry before
	// Publish; the consumer reads it while the slot is checked out.
	encodeTime []time.Duration

	captured uint64
	failed   uint64
	sent     uint64
}

// New assembles a pipeline. None of the parts is owned by it.
func New(pool *framepool.Pool, enc *jpeg.Encoder, src capture.Source, sink Sink, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	return &Pipeline{
		pool:       pool,
		enc:        enc,
		src:        src,
		sink:       sink,
		opts:       opts,
		log:        logger,
		encodeTime: make([]time.Duration, pool.Config().Slots),
	}
}

// Run streams until ctx is cancelled, the source is exhausted, MaxFrames
// frames were published, or either side fails. Frames already published
// when capture stops are still delivered unless ctx was cancelled.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	producerDone := make(chan struct{})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg         sync.WaitGroup
		produceErr error
		consumeErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer close(producerDone)
		produceErr = p.produce(runCtx)
		if produceErr != nil {
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		consumeErr = p.consume(runCtx, producerDone)
		if consumeErr != nil {
			cancel()
		}
	}()
	wg.Wait()

	res := Result{
		Pool:     p.pool.Stats(),
		Captured: p.captured,
		Failed:   p.failed,
		Sent:     p.sent,
		Elapsed:  time.Since(start),
	}
	return res, errors.Join(produceErr, consumeErr)
}

func (p *Pipeline) produce(ctx context.Context) error {
	log := logging.NewComponentLogger(p.log, "capture")
	var published int
	for p.opts.MaxFrames == 0 || published < p.opts.MaxFrames {
		frame, err := p.src.Next(ctx)
		if errors.Is(err, capture.ErrExhausted) {
			log.Info("capture source exhausted", slog.Int("frames", published))
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("capture frame: %w", err)
		}
		p.captured++

		slot, err := p.pool.AcquireFillContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("acquire slot: %w", err)
		}

		began := time.Now()
		n, err := p.enc.Encode(slot.Buf(), frame)
		if err != nil {
			if rerr := p.pool.Recycle(slot); rerr != nil {
				return errors.Join(err, rerr)
			}
			p.failed++
			if errors.Is(err, jpeg.ErrCapacityExceeded) {
				log.Warn("frame does not fit in slot",
					slog.Int("slot", slot.Index()),
					slog.String("capacity", humanize.IBytes(uint64(slot.Cap()))),
				)
				continue
			}
			return fmt.Errorf("encode frame: %w", err)
		}
		took := time.Since(began)
		p.encodeTime[slot.Index()] = took

		if err := p.pool.Publish(slot, n); err != nil {
			return fmt.Errorf("publish slot: %w", err)
		}
		published++
		log.Debug("frame published",
			slog.Int("slot", slot.Index()),
			slog.String("size", humanize.IBytes(uint64(n))),
			slog.Duration("encode", took),
		)
	}
	log.Info("frame limit reached", slog.Int("frames", published))
	return nil
}

func (p *Pipeline) consume(ctx context.Context, producerDone <-chan struct{}) error {
	log := logging.NewComponentLogger(p.log, "stream")
	var lastSeq uint64
	for {
		if ctx.Err() != nil {
			return nil
		}
		slot, err := p.pool.AcquireRead(p.opts.ReadTimeout)
		if errors.Is(err, framepool.ErrTimeout) {
			select {
			case <-producerDone:
				// Nothing more will be published; drain what is left.
				slot, err = p.pool.AcquireRead(0)
				if errors.Is(err, framepool.ErrTimeout) {
					return nil
				}
			default:
				continue
			}
		}
		if err != nil {
			return fmt.Errorf("acquire frame: %w", err)
		}

		seq := slot.Seq()
		if lastSeq != 0 && seq > lastSeq+1 {
			log.Debug("frames dropped before delivery", slog.Uint64("missed", seq-lastSeq-1))
		}
		lastSeq = seq

		frame := slot.Bytes()
		sendErr := p.sink.Send(ctx, seq, frame)
		if sendErr == nil {
			p.sent++
			p.record(ctx, log, slot, seq, len(frame))
		}
		if err := p.pool.Release(slot); err != nil {
			return errors.Join(sendErr, fmt.Errorf("release slot: %w", err))
		}
		if sendErr != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("send frame %d: %w", seq, sendErr)
		}
	}
}

func (p *Pipeline) record(ctx context.Context, log *slog.Logger, slot *framepool.Slot, seq uint64, n int) {
	if p.opts.Recorder == nil {
		return
	}
	err := p.opts.Recorder.RecordFrame(ctx, journal.Frame{
		SessionID: p.opts.SessionID,
		Seq:       seq,
		Slot:      slot.Index(),
		Bytes:     n,
		Encode:    p.encodeTime[slot.Index()],
		SentAt:    time.Now(),
	})
	if err != nil {
		log.Warn("journal write failed", slog.Uint64(logging.FieldSeq, seq), slog.String("error", err.Error()))
	}
}
