package usecase

import (
	"context"
	"fmt"

	"GazetteScanner/internal/ports"
)

// Runner chains runs through the persisted RunConfig.
type Runner struct {
	state   ports.RunStateStore
	capture *Capture
}

func NewRunner(state ports.RunStateStore, capture *Capture) *Runner {
	return &Runner{state: state, capture: capture}
}

// RunOnce loads the current RunConfig, runs a capture and stores the next
// RunConfig. Nothing is stored when the run fails, and a daily ledger
// clear only happens after the next RunConfig is stored.
func (r *Runner) RunOnce(ctx context.Context) (Report, error) {
	cfg, err := r.state.Load(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load run state: %w", err)
	}

	report, err := r.capture.Run(ctx, cfg)
	if err != nil {
		return report, err
	}

	if err := r.state.Save(ctx, report.Next); err != nil {
		return report, fmt.Errorf("save run state: %w", err)
	}

	if report.ClearLedger {
		r.resetLedger(ctx, cfg.LedgerRef, report)
	}
	return report, nil
}

// resetLedger empties the ledger for the new day and keeps the entries this
// run captured, so a look-back window does not deliver them again. Failures
// only leave a stale ledger behind.
func (r *Runner) resetLedger(ctx context.Context, ref string, report Report) {
	log := r.capture.runLogger(report.RunID)

	if err := r.capture.ledger.Clear(ctx, ref); err != nil {
		log.Warn("ledger clear failed", "ledger_ref", ref, "error", err)
		return
	}

	for _, o := range report.Outcomes {
		if o.Status != OutcomeCaptured {
			continue
		}
		if err := r.capture.ledger.Append(ctx, ref, o.Candidate.URL); err != nil {
			log.Warn("ledger re-append failed", "url", o.Candidate.URL, "error", err)
		}
	}
	log.Info("ledger cleared for new day", "ledger_ref", ref, "kept", report.Captured())
}
