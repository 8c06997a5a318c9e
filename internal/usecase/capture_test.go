package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GazetteScanner/internal/discovery"
	"GazetteScanner/internal/domain"
)

var fixedNow = time.Date(2024, time.May, 13, 15, 0, 0, 0, time.UTC)

type stubListing struct {
	urls []string
}

func (s *stubListing) List(_ context.Context, day time.Time, sec domain.Section) ([]domain.CandidateEntry, error) {
	if sec != domain.Section1 {
		return nil, nil
	}
	out := make([]domain.CandidateEntry, 0, len(s.urls))
	for _, u := range s.urls {
		out = append(out, domain.CandidateEntry{URL: u, StorageKey: u + ".json", Section: sec, PublicationDate: day})
	}
	return out, nil
}

type memLedger struct {
	ids     map[string]struct{}
	appends int
}

func newMemLedger(ids ...string) *memLedger {
	l := &memLedger{ids: map[string]struct{}{}}
	for _, id := range ids {
		l.ids[id] = struct{}{}
	}
	return l
}

func (m *memLedger) Load(context.Context, string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(m.ids))
	for id := range m.ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (m *memLedger) Append(_ context.Context, _ string, id string) error {
	m.appends++
	m.ids[id] = struct{}{}
	return nil
}

func (m *memLedger) Clear(context.Context, string) error {
	m.ids = map[string]struct{}{}
	return nil
}

type countingFetcher struct {
	calls []string
	fail  map[string]error
}

func (f *countingFetcher) Fetch(_ context.Context, url string) (domain.FetchResult, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.fail[url]; ok {
		return domain.FetchResult{}, err
	}
	return domain.FetchResult{URL: url, StatusCode: 200, Content: []byte(url)}, nil
}

type echoStructurer struct{}

func (echoStructurer) Structure(raw []byte, url string) (domain.StructuredEntry, error) {
	if strings.Contains(url, "broken") {
		return nil, fmt.Errorf("%w: no body", domain.ErrStructuring)
	}
	return domain.StructuredEntry{"url": url, "orgao": "Ministério da Saúde", "ementa": string(raw)}, nil
}

type rawStructurer struct{ echoStructurer }

func (r rawStructurer) StructureRaw(raw []byte, url string) (domain.StructuredEntry, map[string]string, error) {
	entry, err := r.Structure(raw, url)
	if err != nil {
		return nil, nil, err
	}
	return entry, map[string]string{"orgao-dou-data": "Ministério da Saúde"}, nil
}

type memStore struct {
	keys    []string
	entries []domain.CapturedEntry
	err     error
}

func (m *memStore) Save(_ context.Context, key string, entry domain.CapturedEntry) error {
	if m.err != nil {
		return m.err
	}
	m.keys = append(m.keys, key)
	m.entries = append(m.entries, entry)
	return nil
}

type recordingNotifier struct {
	batches []int
	err     error
}

func (r *recordingNotifier) Deliver(_ context.Context, _ domain.RuleSetMeta, entries []domain.StructuredEntry) error {
	r.batches = append(r.batches, len(entries))
	return r.err
}

type staticRules []domain.RuleSet

func (s staticRules) Load(context.Context) ([]domain.RuleSet, error) { return s, nil }

func runConfig(save, deliver bool) domain.RunConfig {
	return domain.RunConfig{
		ReferenceDate:  "2024-05-13",
		DateFormat:     "%Y-%m-%d",
		Sections:       domain.SectionList{domain.Section1},
		AllSections:    domain.SectionList{domain.Section1, domain.Section2},
		LedgerRef:      "captured",
		SaveEntries:    save,
		DeliverMatches: deliver,
	}
}

type harness struct {
	ledger   *memLedger
	fetcher  *countingFetcher
	store    *memStore
	notifier *recordingNotifier
	capture  *Capture
}

func newHarness(urls []string, ledgered []string, rules staticRules) *harness {
	h := &harness{
		ledger:   newMemLedger(ledgered...),
		fetcher:  &countingFetcher{fail: map[string]error{}},
		store:    &memStore{},
		notifier: &recordingNotifier{},
	}
	disc := discovery.New(&stubListing{urls: urls}, h.ledger, nil, discovery.WithClock(func() time.Time { return fixedNow }))
	h.capture = NewCapture(CaptureDeps{
		Discovery:  disc,
		Fetcher:    h.fetcher,
		Structurer: echoStructurer{},
		Store:      h.store,
		Notifier:   h.notifier,
		Ledger:     h.ledger,
		Rules:      rules,
		Clock:      func() time.Time { return fixedNow },
	})
	return h
}

func urls(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("http://dou/-/entry-%02d", i)
	}
	return out
}

func TestCaptureSkipsLedgeredAndRecordsNewEntry(t *testing.T) {
	all := urls(3)
	h := newHarness(all, all[:2], nil)

	report, err := h.capture.Run(context.Background(), runConfig(true, false))
	require.NoError(t, err)

	assert.Equal(t, []string{all[2]}, h.fetcher.calls)
	assert.Equal(t, 1, h.ledger.appends)
	assert.Contains(t, h.ledger.ids, all[2])
	assert.Equal(t, []string{all[2] + ".json"}, h.store.keys)
	assert.Nil(t, h.store.entries[0].Raw)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, OutcomeCaptured, report.Outcomes[0].Status)
	assert.True(t, report.Outcomes[0].Saved)
	assert.NotEmpty(t, report.RunID)
}

func TestCaptureSavesRawPageFields(t *testing.T) {
	all := urls(1)
	h := newHarness(all, nil, nil)
	h.capture.structurer = rawStructurer{}

	_, err := h.capture.Run(context.Background(), runConfig(true, false))
	require.NoError(t, err)

	require.Len(t, h.store.entries, 1)
	saved := h.store.entries[0]
	assert.Equal(t, all[0], saved.Fields["url"])
	assert.Equal(t, map[string]string{"orgao-dou-data": "Ministério da Saúde"}, saved.Raw)
}

func TestCaptureBatchesDeliveries(t *testing.T) {
	rules := staticRules{{
		Meta:  domain.RuleSetMeta{Name: "saude"},
		Rules: []domain.Rule{{Field: "orgao", Include: []string{"saúde"}}},
	}}
	h := newHarness(urls(25), nil, rules)

	report, err := h.capture.Run(context.Background(), runConfig(false, true))
	require.NoError(t, err)

	assert.Equal(t, []int{20, 5}, h.notifier.batches)
	assert.Equal(t, 2, report.Deliveries)
	assert.Equal(t, 25, report.Captured())
	assert.Equal(t, 1, report.ActiveRuleSets)
}

func TestCaptureZeroMatchesStillCountsAsDelivered(t *testing.T) {
	rules := staticRules{{
		Meta:  domain.RuleSetMeta{Name: "fazenda"},
		Rules: []domain.Rule{{Field: "orgao", Include: []string{"fazenda"}}},
	}}
	h := newHarness(urls(2), nil, rules)

	report, err := h.capture.Run(context.Background(), runConfig(false, true))
	require.NoError(t, err)

	assert.Empty(t, h.notifier.batches)
	assert.Equal(t, 2, report.Captured())
}

func TestCaptureFetchFailureLeavesCandidateUnledgered(t *testing.T) {
	all := urls(2)
	h := newHarness(all, nil, nil)
	h.fetcher.fail[all[0]] = &domain.TransportError{Kind: domain.TransportTimeout, URL: all[0]}

	report, err := h.capture.Run(context.Background(), runConfig(false, false))
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, OutcomeFetchFailed, report.Outcomes[0].Status)
	assert.True(t, errors.Is(report.Outcomes[0].Err, domain.ErrTransport))
	assert.Equal(t, OutcomeCaptured, report.Outcomes[1].Status)
	assert.NotContains(t, h.ledger.ids, all[0])
	assert.Contains(t, h.ledger.ids, all[1])
}

func TestCaptureStructuringFailureIsSkipped(t *testing.T) {
	h := newHarness([]string{"http://dou/-/broken"}, nil, nil)

	report, err := h.capture.Run(context.Background(), runConfig(false, false))
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, OutcomeParseFailed, report.Outcomes[0].Status)
	assert.Zero(t, h.ledger.appends)
}

func TestCaptureSaveFailureLeavesCandidateUnledgered(t *testing.T) {
	h := newHarness(urls(1), nil, nil)
	h.store.err = errors.New("disk full")

	report, err := h.capture.Run(context.Background(), runConfig(true, false))
	require.NoError(t, err)

	assert.Equal(t, OutcomeIncomplete, report.Outcomes[0].Status)
	assert.Zero(t, h.ledger.appends)
}

func TestCaptureMidRunDeliveryFailureLeavesTriggeringCandidate(t *testing.T) {
	rules := staticRules{{Meta: domain.RuleSetMeta{Name: "all"}}}
	h := newHarness(urls(20), nil, rules)
	h.notifier.err = errors.New("channel offline")

	report, err := h.capture.Run(context.Background(), runConfig(false, true))
	require.NoError(t, err)

	assert.Equal(t, 19, report.Captured())
	assert.Equal(t, OutcomeIncomplete, report.Outcomes[19].Status)
	assert.Equal(t, 1, report.DeliveryErrors)
}

func TestCaptureNoCandidatesReturnsNextConfig(t *testing.T) {
	h := newHarness(nil, nil, nil)
	cfg := runConfig(false, false)
	cfg.ReferenceDate = "2024-05-12"

	report, err := h.capture.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Empty(t, h.fetcher.calls)
	assert.Equal(t, "2024-05-13", report.Next.ReferenceDate)
	assert.Equal(t, cfg.AllSections, report.Next.Sections)
}

func TestCaptureRequiresStoreWhenSaving(t *testing.T) {
	c := NewCapture(CaptureDeps{
		Discovery:  discovery.New(&stubListing{}, newMemLedger(), nil),
		Fetcher:    &countingFetcher{},
		Structurer: echoStructurer{},
		Ledger:     newMemLedger(),
	})

	_, err := c.Run(context.Background(), runConfig(true, false))
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestCapturePrunesRuleSetsOutsideRequestedSections(t *testing.T) {
	rules := staticRules{
		{Meta: domain.RuleSetMeta{Name: "only-s3"}, Rules: []domain.Rule{{Field: domain.SectionField, Include: []string{"3"}}}},
		{Meta: domain.RuleSetMeta{Name: "everything"}},
	}
	h := newHarness(urls(1), nil, rules)

	report, err := h.capture.Run(context.Background(), runConfig(false, true))
	require.NoError(t, err)

	assert.Equal(t, 1, report.ActiveRuleSets)
	assert.Equal(t, 1, report.SkippedRuleSets)
	assert.Equal(t, []int{1}, h.notifier.batches)
}

func TestCaptureLogsUrlsOfDroppedBatch(t *testing.T) {
	rules := staticRules{{Meta: domain.RuleSetMeta{Name: "all", Channel: "#dou"}}}
	all := urls(3)
	h := newHarness(all, nil, rules)
	h.notifier.err = errors.New("channel offline")

	var logs bytes.Buffer
	h.capture.logger = slog.New(slog.NewTextHandler(&logs, nil))

	report, err := h.capture.Run(context.Background(), runConfig(false, true))
	require.NoError(t, err)
	assert.Equal(t, 1, report.DeliveryErrors)

	out := logs.String()
	assert.Contains(t, out, "dropping undelivered batch")
	assert.Contains(t, out, "channel=#dou")
	for _, u := range all {
		assert.Contains(t, out, u)
	}
}
