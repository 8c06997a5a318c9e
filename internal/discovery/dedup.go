package discovery

import (
	"context"
	"fmt"

	"GazetteScanner/internal/domain"
	"GazetteScanner/internal/ports"
)

// FilterUnseen keeps the candidates whose URL is not in the ledger, in
// listing order. Repeated URLs in the listing are kept once.
func FilterUnseen(ctx context.Context, ledger ports.Ledger, ref string, candidates []domain.CandidateEntry) ([]domain.CandidateEntry, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	captured, err := ledger.Load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("load ledger %s: %w", ref, err)
	}

	out := make([]domain.CandidateEntry, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, ok := captured[c.URL]; ok {
			continue
		}
		if _, ok := seen[c.URL]; ok {
			continue
		}
		seen[c.URL] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}
