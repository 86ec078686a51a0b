// internal/app/system/workers/reconciler.go
package workers

import (
	"context"
	"sync"
	"time"

	profilestore "github.com/dalemusser/campushub/internal/app/store/profiles"
	"github.com/dalemusser/campushub/internal/app/system/claimsync"
	"github.com/dalemusser/campushub/internal/app/system/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// batchSize bounds the profiles and tombstones handled per pass.
	batchSize = 100
	// parallel is how many profiles are resynced at once.
	parallel = 4
	// passTimeout bounds one whole pass.
	passTimeout = 2 * time.Minute
)

// Result counts what one pass did.
type Result struct {
	ClaimsSynced      int
	ClaimsFailed      int
	DeletionsFinished int
	DeletionsFailed   int
}

// Reconciler is a background worker that finishes profile writes whose
// second step did not complete: claims that trail their document, and
// deletions whose provider identity is still present.
type Reconciler struct {
	sync     *claimsync.Synchronizer
	profiles *profilestore.Store
	metrics  *metrics.Metrics
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewReconciler creates a reconciler that runs every interval.
// m may be nil.
func NewReconciler(cs *claimsync.Synchronizer, profiles *profilestore.Store, m *metrics.Metrics, logger *zap.Logger, interval time.Duration) *Reconciler {
	return &Reconciler{
		sync:     cs,
		profiles: profiles,
		metrics:  m,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *Reconciler) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("reconciler started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for the current pass to finish.
func (w *Reconciler) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("reconciler stopped")
	})
}

func (w *Reconciler) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), passTimeout)
			_, _ = w.RunOnce(ctx)
			cancel()
		}
	}
}

// RunOnce performs a single pass. It returns an error only when the work
// lists could not be read; individual failures are counted and logged.
func (w *Reconciler) RunOnce(ctx context.Context) (Result, error) {
	var res Result

	if err := w.finishDeletions(ctx, &res); err != nil {
		w.log.Error("reconciler: listing tombstones failed", zap.Error(err))
		return res, err
	}
	if err := w.syncClaims(ctx, &res); err != nil {
		w.log.Error("reconciler: listing pending profiles failed", zap.Error(err))
		return res, err
	}
	w.reportBacklog(ctx)

	if res != (Result{}) {
		w.log.Info("reconciler pass",
			zap.Int("claims_synced", res.ClaimsSynced),
			zap.Int("claims_failed", res.ClaimsFailed),
			zap.Int("deletions_finished", res.DeletionsFinished),
			zap.Int("deletions_failed", res.DeletionsFailed))
	}
	return res, nil
}

func (w *Reconciler) finishDeletions(ctx context.Context, res *Result) error {
	tombs, err := w.profiles.ListTombstones(ctx, batchSize)
	if err != nil {
		return err
	}
	for _, t := range tombs {
		if err := w.sync.CompleteDeletion(ctx, t.UID); err != nil {
			res.DeletionsFailed++
			w.log.Warn("reconciler: deletion still pending",
				zap.String("uid", t.UID),
				zap.Int("attempts", t.Attempts),
				zap.Error(err))
			continue
		}
		res.DeletionsFinished++
	}
	return nil
}

func (w *Reconciler) syncClaims(ctx context.Context, res *Result) error {
	pending, err := w.profiles.ListPending(ctx, batchSize)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for _, p := range pending {
		uid := p.UID
		g.Go(func() error {
			_, err := w.sync.ReconcileClaims(gctx, uid)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.ClaimsFailed++
				w.log.Warn("reconciler: claims still pending", zap.String("uid", uid), zap.Error(err))
				return nil
			}
			res.ClaimsSynced++
			return nil
		})
	}
	return g.Wait()
}

func (w *Reconciler) reportBacklog(ctx context.Context) {
	if w.metrics == nil {
		return
	}
	claims, err := w.profiles.CountPending(ctx)
	if err != nil {
		return
	}
	deletions, err := w.profiles.CountTombstones(ctx)
	if err != nil {
		return
	}
	w.metrics.SetPending(int(claims), int(deletions))
}
