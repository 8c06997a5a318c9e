package ports

import (
	"context"
	"time"

	"GazetteScanner/internal/domain"
)

// ListingSource returns the entries published for one day and section.
type ListingSource interface {
	List(ctx context.Context, day time.Time, section domain.Section) ([]domain.CandidateEntry, error)
}

// Fetcher downloads raw entry content. Failures are *domain.TransportError.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (domain.FetchResult, error)
}

// Structurer turns raw content into named fields.
type Structurer interface {
	Structure(raw []byte, url string) (domain.StructuredEntry, error)
}

// RawStructurer also returns the unmapped page fields, kept when saving.
type RawStructurer interface {
	StructureRaw(raw []byte, url string) (domain.StructuredEntry, map[string]string, error)
}

// EntryStore persists captured entries under a storage key.
type EntryStore interface {
	Save(ctx context.Context, key string, entry domain.CapturedEntry) error
}

// Notifier delivers matched entries of one rule set.
type Notifier interface {
	Deliver(ctx context.Context, meta domain.RuleSetMeta, entries []domain.StructuredEntry) error
}

// Ledger is the durable set of already captured entry identifiers.
// Append must be idempotent.
type Ledger interface {
	Load(ctx context.Context, ref string) (map[string]struct{}, error)
	Append(ctx context.Context, ref, id string) error
	Clear(ctx context.Context, ref string) error
}

// RuleSetSource loads subscriber rule sets once per run.
type RuleSetSource interface {
	Load(ctx context.Context) ([]domain.RuleSet, error)
}

// RunStateStore persists the RunConfig between invocations.
type RunStateStore interface {
	Load(ctx context.Context) (domain.RunConfig, error)
	Save(ctx context.Context, cfg domain.RunConfig) error
}

// Scheduler controls when capture runs execute. The job returns the delay
// before the next run.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time) time.Duration) error
	Stop(ctx context.Context) error
}
