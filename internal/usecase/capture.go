package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"GazetteScanner/internal/discovery"
	"GazetteScanner/internal/domain"
	"GazetteScanner/internal/filter"
	"GazetteScanner/internal/ports"
)

// DeliveryBatchSize caps the entries handed to one Notifier.Deliver call.
const DeliveryBatchSize = 20

// Discoverer finds the candidates of a run and the RunConfig of the next one.
type Discoverer interface {
	Discover(ctx context.Context, cfg domain.RunConfig) (discovery.Result, error)
}

// CaptureDeps wires all driven adapters into the capture workflow.
type CaptureDeps struct {
	Discovery  Discoverer
	Fetcher    ports.Fetcher
	Structurer ports.Structurer
	Store      ports.EntryStore
	Notifier   ports.Notifier
	Ledger     ports.Ledger
	Rules      ports.RuleSetSource
	Engine     *filter.Engine
	Logger     *slog.Logger
	Clock      func() time.Time
}

// OutcomeStatus summarises what happened to one candidate.
type OutcomeStatus string

const (
	OutcomeCaptured     OutcomeStatus = "captured"
	OutcomeFetchFailed  OutcomeStatus = "fetch_failed"
	OutcomeParseFailed  OutcomeStatus = "parse_failed"
	OutcomeIncomplete   OutcomeStatus = "incomplete"
	OutcomeLedgerFailed OutcomeStatus = "ledger_failed"
)

// CandidateOutcome is the per-candidate result of a run.
type CandidateOutcome struct {
	Candidate domain.CandidateEntry
	Status    OutcomeStatus
	Saved     bool
	Delivered bool
	Matches   int
	Err       error
}

// Report describes one finished run.
type Report struct {
	RunID           string
	Next            domain.RunConfig
	Waiting         bool
	ClearLedger     bool
	Unseen          int
	ActiveRuleSets  int
	SkippedRuleSets int
	Deliveries      int
	DeliveryErrors  int
	Outcomes        []CandidateOutcome
}

// Captured counts candidates that reached the ledger.
func (r Report) Captured() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == OutcomeCaptured {
			n++
		}
	}
	return n
}

// Capture implements one capture run.
type Capture struct {
	discovery  Discoverer
	fetcher    ports.Fetcher
	structurer ports.Structurer
	store      ports.EntryStore
	notifier   ports.Notifier
	ledger     ports.Ledger
	rules      ports.RuleSetSource
	engine     *filter.Engine
	logger     *slog.Logger
	now        func() time.Time
}

// NewCapture constructs the orchestration component.
func NewCapture(deps CaptureDeps) *Capture {
	engine := deps.Engine
	if engine == nil {
		engine = filter.NewEngine(deps.Logger)
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &Capture{
		discovery:  deps.Discovery,
		fetcher:    deps.Fetcher,
		structurer: deps.Structurer,
		store:      deps.Store,
		notifier:   deps.Notifier,
		ledger:     deps.Ledger,
		rules:      deps.Rules,
		engine:     engine,
		logger:     deps.Logger,
		now:        now,
	}
}

// accumulator holds the pending matches of one rule set.
type accumulator struct {
	ruleSet domain.RuleSet
	pending []domain.StructuredEntry
}

// Run discovers candidates, processes them in listing order and returns the
// next RunConfig inside the report. Only configuration and discovery
// failures abort the run.
func (c *Capture) Run(ctx context.Context, cfg domain.RunConfig) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	log := c.runLogger(report.RunID)

	if err := c.checkWiring(cfg); err != nil {
		return report, err
	}

	res, err := c.discovery.Discover(ctx, cfg)
	if err != nil {
		return report, fmt.Errorf("discover: %w", err)
	}
	report.Next = res.Next
	report.Waiting = res.Waiting
	report.ClearLedger = res.ClearLedger
	report.Unseen = res.Unseen

	if len(res.Candidates) == 0 {
		log.Info("no candidates", "reference_date", res.Next.ReferenceDate, "waiting", res.Waiting)
		return report, nil
	}

	var accs []*accumulator
	if cfg.DeliverMatches {
		accs, err = c.loadRuleSets(ctx, res.Requested, &report)
		if err != nil {
			return report, err
		}
	}

	log.Info("run started", "candidates", len(res.Candidates), "unseen", res.Unseen, "rule_sets", len(accs))

	for _, cand := range res.Candidates {
		outcome := c.process(ctx, log, cfg, cand, accs, &report)
		report.Outcomes = append(report.Outcomes, outcome)
	}

	for _, acc := range accs {
		if len(acc.pending) == 0 {
			continue
		}
		if err := c.flush(ctx, log, acc, &report); err != nil {
			log.Warn("final delivery failed", "rule_set", acc.ruleSet.Meta.Name, "error", err)
		}
	}

	log.Info("run finished",
		"captured", report.Captured(),
		"processed", len(report.Outcomes),
		"deliveries", report.Deliveries,
		"next_reference_date", report.Next.ReferenceDate,
		"next_batch_pending", report.Next.NextBatchPending,
	)
	return report, nil
}

func (c *Capture) checkWiring(cfg domain.RunConfig) error {
	switch {
	case c.discovery == nil:
		return &domain.ConfigError{Reason: "discovery is not configured"}
	case c.ledger == nil:
		return &domain.ConfigError{Reason: "ledger is not configured"}
	case c.fetcher == nil || c.structurer == nil:
		return &domain.ConfigError{Reason: "fetcher and structurer are required"}
	case cfg.SaveEntries && c.store == nil:
		return &domain.ConfigError{Field: "save_entries", Reason: "no entry store configured"}
	case cfg.DeliverMatches && c.notifier == nil:
		return &domain.ConfigError{Field: "deliver_matches", Reason: "no notifier configured"}
	case cfg.DeliverMatches && c.rules == nil:
		return &domain.ConfigError{Field: "deliver_matches", Reason: "no rule set source configured"}
	}
	return nil
}

func (c *Capture) loadRuleSets(ctx context.Context, requested []domain.Section, report *Report) ([]*accumulator, error) {
	ruleSets, err := c.rules.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rule sets: %w", err)
	}

	active, skipped := c.engine.Prune(requested, ruleSets)
	report.ActiveRuleSets = len(active)
	report.SkippedRuleSets = len(skipped)

	accs := make([]*accumulator, 0, len(active))
	for _, rs := range active {
		accs = append(accs, &accumulator{ruleSet: rs})
	}
	return accs, nil
}

func (c *Capture) process(ctx context.Context, log *slog.Logger, cfg domain.RunConfig, cand domain.CandidateEntry, accs []*accumulator, report *Report) CandidateOutcome {
	outcome := CandidateOutcome{Candidate: cand}
	log = log.With("url", cand.URL)

	fetched, err := c.fetcher.Fetch(ctx, cand.URL)
	if err != nil {
		log.Warn("fetch failed, will retry next run", "error", err)
		outcome.Status = OutcomeFetchFailed
		outcome.Err = err
		return outcome
	}

	entry, raw, err := c.structure(fetched.Content, cand.URL)
	if err != nil {
		log.Warn("structuring failed, will retry next run", "error", err)
		outcome.Status = OutcomeParseFailed
		outcome.Err = err
		return outcome
	}
	if _, ok := entry.Field(domain.SectionField); !ok {
		entry[domain.SectionField] = string(cand.Section)
	}

	saved := true
	if cfg.SaveEntries {
		err := c.store.Save(ctx, cand.StorageKey, domain.CapturedEntry{
			URL:        cand.URL,
			StorageKey: cand.StorageKey,
			Section:    cand.Section,
			Fields:     entry,
			Raw:        raw,
			CapturedAt: c.now(),
		})
		if err != nil {
			log.Warn("save failed", "key", cand.StorageKey, "error", err)
			outcome.Err = err
			saved = false
		}
	}
	outcome.Saved = cfg.SaveEntries && saved

	delivered := true
	if cfg.DeliverMatches {
		batch := []domain.StructuredEntry{entry}
		for _, acc := range accs {
			matches := c.engine.Evaluate(acc.ruleSet, batch)
			if len(matches) == 0 {
				continue
			}
			outcome.Matches += len(matches)
			acc.pending = append(acc.pending, matches...)
			if len(acc.pending) < DeliveryBatchSize {
				continue
			}
			if err := c.flush(ctx, log, acc, report); err != nil {
				log.Warn("delivery failed", "rule_set", acc.ruleSet.Meta.Name, "error", err)
				outcome.Err = errors.Join(outcome.Err, err)
				delivered = false
			}
		}
	}
	outcome.Delivered = cfg.DeliverMatches && delivered

	if !saved || !delivered {
		outcome.Status = OutcomeIncomplete
		return outcome
	}

	if err := c.ledger.Append(ctx, cfg.LedgerRef, cand.URL); err != nil {
		log.Warn("ledger append failed", "error", err)
		outcome.Status = OutcomeLedgerFailed
		outcome.Err = err
		return outcome
	}

	outcome.Status = OutcomeCaptured
	log.Debug("candidate captured", "matches", outcome.Matches)
	return outcome
}

// flush delivers and clears the accumulator; the batch is dropped even on
// failure, so its urls are logged for manual redelivery.
func (c *Capture) flush(ctx context.Context, log *slog.Logger, acc *accumulator, report *Report) error {
	batch := acc.pending
	acc.pending = nil

	report.Deliveries++
	if err := c.notifier.Deliver(ctx, acc.ruleSet.Meta, batch); err != nil {
		report.DeliveryErrors++
		log.Warn("dropping undelivered batch",
			"rule_set", acc.ruleSet.Meta.Name,
			"channel", acc.ruleSet.Meta.Channel,
			"urls", batchURLs(batch),
		)
		return fmt.Errorf("deliver %d entries for %s: %w", len(batch), acc.ruleSet.Meta.Name, err)
	}
	return nil
}

// structure keeps the page's raw fields when the structurer exposes them.
func (c *Capture) structure(content []byte, url string) (domain.StructuredEntry, map[string]string, error) {
	if rs, ok := c.structurer.(ports.RawStructurer); ok {
		return rs.StructureRaw(content, url)
	}
	entry, err := c.structurer.Structure(content, url)
	return entry, nil, err
}

func batchURLs(batch []domain.StructuredEntry) []string {
	urls := make([]string, 0, len(batch))
	for _, e := range batch {
		urls = append(urls, e["url"])
	}
	return urls
}

func (c *Capture) runLogger(runID string) *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.logger.With("run_id", runID)
}
