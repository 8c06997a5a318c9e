// Package discovery decides which gazette entries a run should fetch and
// which RunConfig the following run starts from.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ncruces/go-strftime"

	"GazetteScanner/internal/domain"
	"GazetteScanner/internal/ports"
)

// Brasilia is UTC-3 without daylight saving, the gazette's publication day.
var Brasilia = time.FixedZone("BRT", -3*60*60)

// Result is the outcome of one discovery pass.
type Result struct {
	Candidates []domain.CandidateEntry
	Next       domain.RunConfig

	// Requested holds the expanded sections that were scanned.
	Requested []domain.Section
	// Found counts listed entries per section on the reference day.
	Found map[domain.Section]int
	// Unseen is the number of new entries before batch truncation.
	Unseen int
	// Waiting is set when the reference day has not started yet.
	Waiting bool
	// ClearLedger asks the caller to empty the ledger once Next is persisted.
	ClearLedger bool
}

// Discovery walks the scan window and computes the next RunConfig.
type Discovery struct {
	source ports.ListingSource
	ledger ports.Ledger
	now    func() time.Time
	logger *slog.Logger
}

// Option customises a Discovery.
type Option func(*Discovery)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Discovery) {
		d.now = now
	}
}

// New wires a listing source and ledger; log may be nil.
func New(source ports.ListingSource, ledger ports.Ledger, log *slog.Logger, opts ...Option) *Discovery {
	d := &Discovery{
		source: source,
		ledger: ledger,
		now:    time.Now,
		logger: log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Today truncates now to midnight of the Brasília day.
func Today(now time.Time) time.Time {
	b := now.In(Brasilia)
	return time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, Brasilia)
}

// ResolveDate turns a reference date (literal or sentinel) into a Brasília midnight.
func ResolveDate(value, format string, today time.Time) (time.Time, error) {
	switch value {
	case domain.ReferenceNow:
		return today, nil
	case domain.ReferenceYesterday:
		return today.AddDate(0, 0, -1), nil
	}

	parsed, err := strftime.Parse(format, value)
	if err != nil {
		return time.Time{}, &domain.ConfigError{
			Field:  "reference_date",
			Reason: fmt.Sprintf("%q does not match %q: %v", value, format, err),
		}
	}
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, Brasilia), nil
}

// Discover lists candidates for the configured window and returns the
// RunConfig for the next run. The input cfg is never mutated.
func (d *Discovery) Discover(ctx context.Context, cfg domain.RunConfig) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	today := Today(d.now())
	ref, err := ResolveDate(cfg.ReferenceDate, cfg.DateFormat, today)
	if err != nil {
		return Result{}, err
	}

	if ref.After(today) {
		d.info("reference day not reached, waiting", "reference_date", cfg.ReferenceDate)
		return Result{Next: cfg.Clone(), Waiting: true}, nil
	}

	requested := cfg.Sections.Expand()
	listed, found, err := d.scan(ctx, ref, cfg.LookBackDays, requested)
	if err != nil {
		return Result{}, err
	}

	unseen, err := FilterUnseen(ctx, d.ledger, cfg.LedgerRef, listed)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Candidates: unseen,
		Requested:  requested,
		Found:      found,
		Unseen:     len(unseen),
	}

	next := cfg.Clone()
	next.ReferenceDate = strftime.Format(cfg.DateFormat, ref)

	if cfg.BatchSize != nil && len(unseen) > *cfg.BatchSize {
		res.Candidates = unseen[:*cfg.BatchSize]
		next.NextBatchPending = true
		res.Next = next
		d.info("batch cap reached, resuming same window next run",
			"unseen", len(unseen), "batch_size", *cfg.BatchSize)
		return res, nil
	}
	next.NextBatchPending = false

	if ref.Before(today) {
		res.ClearLedger = advance(&next, ref)
		res.Next = next
		return res, nil
	}

	// Sections publish progressively during the day: keep polling the ones
	// still empty. Extra editions may appear at any time.
	var pending domain.SectionList
	for _, s := range requested {
		if found[s] == 0 || s == domain.SectionExtra {
			pending = append(pending, s)
		}
	}
	if len(pending) == 0 {
		res.ClearLedger = advance(&next, ref)
	} else {
		next.Sections = pending
	}

	res.Next = next
	return res, nil
}

func (d *Discovery) scan(ctx context.Context, ref time.Time, lookBack int, requested []domain.Section) ([]domain.CandidateEntry, map[domain.Section]int, error) {
	found := make(map[domain.Section]int, len(requested))
	for _, s := range requested {
		found[s] = 0
	}

	var listed []domain.CandidateEntry
	for day := ref.AddDate(0, 0, lookBack); !day.After(ref); day = day.AddDate(0, 0, 1) {
		for _, s := range requested {
			entries, err := d.source.List(ctx, day, s)
			if err != nil {
				return nil, nil, fmt.Errorf("list %s section %s: %w", day.Format("2006-01-02"), s, err)
			}
			if day.Equal(ref) {
				found[s] = len(entries)
			}
			d.debug("listed section", "day", day.Format("2006-01-02"), "section", s, "entries", len(entries))
			listed = append(listed, entries...)
		}
	}

	return listed, found, nil
}

// advance moves next to the following day and reports whether the ledger
// should be cleared for it.
func advance(next *domain.RunConfig, ref time.Time) bool {
	next.ReferenceDate = strftime.Format(next.DateFormat, ref.AddDate(0, 0, 1))
	next.Sections = append(domain.SectionList(nil), next.AllSections...)
	return next.ClearLedgerDaily
}

func (d *Discovery) info(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}

func (d *Discovery) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
