package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jumbenylon/sakuragroup-sub001/internal/ports"
)

// Reconciler sweeps recipient rows stranded in processing by a crashed
// dispatch run and resets them to pending. A row only stays in
// processing past its attempt when the worker died between claim and
// resolve, so anything older than the configured age is safe to hand
// back.
type Reconciler struct {
	ledger ports.Ledger
	age    time.Duration
	log    *slog.Logger
}

// NewReconciler wires the sweep with its ledger and the stale age.
func NewReconciler(ledger ports.Ledger, age time.Duration, log *slog.Logger) *Reconciler {
	return &Reconciler{ledger: ledger, age: age, log: log}
}

// Sweep releases stale rows once and returns how many were reset.
func (r *Reconciler) Sweep(ctx context.Context) (int64, error) {
	n, err := r.ledger.ReleaseStale(ctx, r.age)
	if err != nil {
		return 0, fmt.Errorf("release stale recipients: %w", err)
	}
	if n > 0 {
		staleReleasedCounter.Add(float64(n))
		r.log.Info("stale recipients released", "count", n, "older_than", r.age.String())
	}
	return n, nil
}
