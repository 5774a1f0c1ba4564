// Package usage records per-key request telemetry asynchronously. Requests
// are buffered in memory and flushed to the store in batches, so the hot
// path never waits on a disk write.
package usage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quartzbi/quartz/internal/model"
)

const (
	defaultFlushInterval = 5 * time.Second
	defaultBufferSize    = 4096
	flushTimeout         = 10 * time.Second
)

// LogStore is the interface the recorder needs from the config store.
type LogStore interface {
	InsertRequestLogs(ctx context.Context, logs []model.RequestLog) error
	TouchAPIKeyUsage(ctx context.Context, id string, requests int64, at time.Time) error
}

// Recorder batches request log entries and periodically flushes them. Writes
// are best effort: if the buffer is full the entry is dropped and counted,
// never blocking the request path.
type Recorder struct {
	store    LogStore
	logger   *slog.Logger
	interval time.Duration

	entries chan model.RequestLog

	mu      sync.Mutex
	dropped int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Recorder)

// WithFlushInterval overrides the default flush cadence. Used by tests.
func WithFlushInterval(d time.Duration) Option {
	return func(r *Recorder) { r.interval = d }
}

// WithBufferSize overrides the in-memory buffer capacity.
func WithBufferSize(n int) Option {
	return func(r *Recorder) { r.entries = make(chan model.RequestLog, n) }
}

func NewRecorder(store LogStore, logger *slog.Logger, opts ...Option) *Recorder {
	r := &Recorder{
		store:    store,
		logger:   logger,
		interval: defaultFlushInterval,
		entries:  make(chan model.RequestLog, defaultBufferSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record enqueues one request log entry. Never blocks; drops when full.
func (r *Recorder) Record(entry model.RequestLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	select {
	case r.entries <- entry:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
	}
}

// Dropped returns how many entries were discarded due to a full buffer.
func (r *Recorder) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Start begins the background flush loop. Non-blocking.
func (r *Recorder) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.Flush()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown stops the loop and flushes whatever is still buffered.
func (r *Recorder) Shutdown() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.Flush()
}

// Flush drains the buffer and writes one batch. It also bumps each key's
// request counter and last-used timestamp. Safe to call concurrently with
// Record.
func (r *Recorder) Flush() {
	batch := r.drain()
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := r.store.InsertRequestLogs(ctx, batch); err != nil {
		r.logger.Warn("usage flush failed", "entries", len(batch), "error", err)
		return
	}

	// Per-key counter updates ride on the same flush.
	type agg struct {
		count int64
		last  time.Time
	}
	perKey := make(map[string]*agg)
	for _, e := range batch {
		a := perKey[e.APIKeyID]
		if a == nil {
			a = &agg{}
			perKey[e.APIKeyID] = a
		}
		a.count++
		if e.CreatedAt.After(a.last) {
			a.last = e.CreatedAt
		}
	}
	for keyID, a := range perKey {
		if err := r.store.TouchAPIKeyUsage(ctx, keyID, a.count, a.last); err != nil {
			r.logger.Warn("usage counter update failed", "key_id", keyID, "error", err)
		}
	}
}

func (r *Recorder) drain() []model.RequestLog {
	var batch []model.RequestLog
	for {
		select {
		case e := <-r.entries:
			batch = append(batch, e)
		default:
			return batch
		}
	}
}
