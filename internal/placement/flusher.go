package placement

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"roomcore/pkg/domain"
)

// DefaultFlushTimeout bounds a single background snapshot write.
const DefaultFlushTimeout = 10 * time.Second

// Source is the state a Flusher persists. *Store implements it.
type Source interface {
	Capture() (domain.RoomState, uint64)
	MarkSaved(revision uint64)
	Dirty() bool
}

// Logger is the subset of structured logging the flusher needs.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Error(string, ...any) {}

// FlushStats counts flusher outcomes.
type FlushStats struct {
	Writes   uint64
	Failures uint64
}

// Flusher writes snapshots of a Source through a persistence gateway on a
// single background goroutine. Schedule never blocks: signals raised while
// a write is pending coalesce into one follow-up write of the latest state.
// Failed writes are logged and leave the source dirty.
type Flusher struct {
	src     Source
	gw      domain.PersistenceGateway
	key     string
	logger  Logger
	timeout time.Duration

	signal    chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex

	writes   atomic.Uint64
	failures atomic.Uint64
}

// FlusherOption customises a Flusher.
type FlusherOption func(*Flusher)

// WithFlushLogger sets the logger used for write failures.
func WithFlushLogger(l Logger) FlusherOption {
	return func(f *Flusher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithFlushTimeout bounds each background write.
func WithFlushTimeout(d time.Duration) FlusherOption {
	return func(f *Flusher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// NewFlusher starts a flusher persisting src under key.
func NewFlusher(src Source, gw domain.PersistenceGateway, key string, opts ...FlusherOption) *Flusher {
	f := &Flusher{
		src:     src,
		gw:      gw,
		key:     key,
		logger:  noopLogger{},
		timeout: DefaultFlushTimeout,
		signal:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	go f.loop()
	return f
}

// Schedule requests a write of the latest state.
func (f *Flusher) Schedule() {
	select {
	case f.signal <- struct{}{}:
	default:
	}
}

func (f *Flusher) loop() {
	defer close(f.done)
	for {
		select {
		case <-f.stop:
			return
		case <-f.signal:
			if !f.src.Dirty() {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
			if err := f.Flush(ctx); err != nil {
				f.logger.Error("snapshot flush failed", "key", f.key, "error", err)
			}
			cancel()
		}
	}
}

// Flush synchronously writes the current state.
func (f *Flusher) Flush(ctx context.Context) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	state, rev := f.src.Capture()
	if err := f.gw.Save(ctx, f.key, state); err != nil {
		f.failures.Add(1)
		return fmt.Errorf("save snapshot %s: %w", f.key, err)
	}
	f.src.MarkSaved(rev)
	f.writes.Add(1)
	f.logger.Debug("snapshot flushed", "key", f.key, "items", len(state.Items), "revision", rev)
	return nil
}

// Close stops the background goroutine and writes any unsaved state.
func (f *Flusher) Close(ctx context.Context) error {
	var err error
	f.closeOnce.Do(func() {
		close(f.stop)
		select {
		case <-f.done:
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
		if f.src.Dirty() {
			err = f.Flush(ctx)
		}
	})
	return err
}

// Stats returns write counters.
func (f *Flusher) Stats() FlushStats {
	return FlushStats{Writes: f.writes.Load(), Failures: f.failures.Load()}
}
