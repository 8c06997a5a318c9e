// Package notify combines delivery channels.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"GazetteScanner/internal/domain"
	"GazetteScanner/internal/ports"
)

// Fanout delivers every batch to all wrapped notifiers and joins their errors.
type Fanout []ports.Notifier

var _ ports.Notifier = Fanout(nil)

func (f Fanout) Deliver(ctx context.Context, meta domain.RuleSetMeta, entries []domain.StructuredEntry) error {
	var errs []error
	for _, n := range f {
		if err := n.Deliver(ctx, meta, entries); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier only logs deliveries; used when no channel is configured.
type LogNotifier struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

func (l *LogNotifier) Deliver(_ context.Context, meta domain.RuleSetMeta, entries []domain.StructuredEntry) error {
	if l.logger == nil {
		return nil
	}
	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		urls = append(urls, e["url"])
	}
	l.logger.Info("delivery", "rule_set", meta.Name, "channel", meta.Channel, "count", len(entries), "urls", urls)
	return nil
}
