package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jumbenylon/sakuragroup-sub001/internal/ports"
)

// DispatchRunner is the worker-side entry point: it wraps the processor
// with the advisory single-flight lock so two workers don't redundantly
// loop over the same campaign. Losing the lock race is not an error;
// the holder's run resolves the rows.
type DispatchRunner struct {
	processor *Processor
	locker    ports.CampaignLocker
	log       *slog.Logger
}

// NewDispatchRunner wires the runner with its processor and lock.
func NewDispatchRunner(processor *Processor, locker ports.CampaignLocker, log *slog.Logger) *DispatchRunner {
	return &DispatchRunner{processor: processor, locker: locker, log: log}
}

// Handle runs one dispatch job to completion under the campaign lock.
func (r *DispatchRunner) Handle(ctx context.Context, job ports.DispatchJob) error {
	ok, err := r.locker.Acquire(ctx, job.CampaignID)
	if err != nil {
		return fmt.Errorf("acquire campaign lock: %w", err)
	}
	if !ok {
		r.log.Info("campaign already being dispatched, skipping", "campaign_id", job.CampaignID)
		return nil
	}
	defer func() {
		if err := r.locker.Release(context.WithoutCancel(ctx), job.CampaignID); err != nil {
			r.log.Error("release campaign lock failed", "campaign_id", job.CampaignID, "err", err)
		}
	}()

	return r.processor.Process(ctx, job.CampaignID)
}
