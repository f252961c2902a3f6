package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pressroom/internal/apperr"
)

const (
	reconcileQueueSize = 1000
	reconcileBatchSize = 50
	reconcileFlush     = 500 * time.Millisecond
)

// Reconciler recounts article counters in the background. Scheduled ids
// are de-duplicated while queued and processed in batches; Run also sweeps
// every counter on a fixed interval.
type Reconciler struct {
	counters *Counters
	log      *slog.Logger
	interval time.Duration

	queue   chan uint
	mu      sync.Mutex
	pending map[uint]bool

	corrected func(articleID uint)
}

func NewReconciler(counters *Counters, log *slog.Logger, interval time.Duration) *Reconciler {
	return &Reconciler{
		counters: counters,
		log:      log,
		interval: interval,
		queue:    make(chan uint, reconcileQueueSize),
		pending:  make(map[uint]bool),
	}
}

// OnCorrected registers fn to be called with the id of every article whose
// counters were rewritten. It must be set before Run.
func (r *Reconciler) OnCorrected(fn func(articleID uint)) {
	r.corrected = fn
}

func (r *Reconciler) notifyCorrected(articleID uint) {
	if r.corrected != nil {
		r.corrected(articleID)
	}
}

// Schedule queues an article for reconciliation without blocking. It
// reports false if the id was dropped because the queue is full.
func (r *Reconciler) Schedule(articleID uint) bool {
	r.mu.Lock()
	if r.pending[articleID] {
		r.mu.Unlock()
		return true
	}
	r.pending[articleID] = true
	r.mu.Unlock()

	select {
	case r.queue <- articleID:
		return true
	default:
		r.mu.Lock()
		delete(r.pending, articleID)
		r.mu.Unlock()
		r.log.Warn("reconcile queue full, dropping article", "article_id", articleID)
		return false
	}
}

// Run processes the queue until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	batch := make([]uint, 0, reconcileBatchSize)
	flush := time.NewTicker(reconcileFlush)
	defer flush.Stop()

	var sweep <-chan time.Time
	if r.interval > 0 {
		t := time.NewTicker(r.interval)
		defer t.Stop()
		sweep = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case id := <-r.queue:
			batch = append(batch, id)
			if len(batch) >= reconcileBatchSize {
				r.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-flush.C:
			if len(batch) > 0 {
				r.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-sweep:
			r.Sweep(ctx)
		}
	}
}

func (r *Reconciler) processBatch(ctx context.Context, ids []uint) {
	for _, id := range ids {
		n, err := r.counters.ReconcileArticle(ctx, id)
		switch {
		case err != nil && apperr.KindOf(err) != apperr.KindNotFound:
			r.log.Error("reconcile article failed", "article_id", id, "err", err)
		case n > 0:
			r.log.Info("article counters corrected", "article_id", id, "fields", n)
			r.notifyCorrected(id)
		}

		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
	}
}

// Sweep reconciles every published article and every user.
func (r *Reconciler) Sweep(ctx context.Context) {
	start := time.Now()
	n, err := r.counters.ReconcileAll(ctx, r.notifyCorrected)
	if err != nil {
		r.log.Error("reconcile sweep failed", "err", err, "fixed", n)
		return
	}
	r.log.Info("reconcile sweep done", "fixed", n, "took", time.Since(start))
}
