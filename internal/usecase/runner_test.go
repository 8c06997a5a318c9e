package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GazetteScanner/internal/domain"
)

type memState struct {
	cfg     domain.RunConfig
	loadErr error
	saveErr error
	saves   int
}

func (m *memState) Load(context.Context) (domain.RunConfig, error) {
	if m.loadErr != nil {
		return domain.RunConfig{}, m.loadErr
	}
	return m.cfg.Clone(), nil
}

func (m *memState) Save(_ context.Context, cfg domain.RunConfig) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.cfg = cfg
	return nil
}

type manualDriver struct {
	job     func(time.Time) time.Duration
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time) time.Duration) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestRunnerPersistsNextRunConfig(t *testing.T) {
	h := newHarness(urls(2), nil, nil)
	state := &memState{cfg: runConfig(false, false)}

	report, err := NewRunner(state, h.capture).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, state.saves)
	assert.Equal(t, report.Next, state.cfg)
	assert.Equal(t, "2024-05-14", state.cfg.ReferenceDate)
}

func TestRunnerKeepsStateOnFailure(t *testing.T) {
	h := newHarness(urls(1), nil, nil)
	cfg := runConfig(false, false)
	cfg.DateFormat = "%d/%m/%Y"
	state := &memState{cfg: cfg}

	_, err := NewRunner(state, h.capture).RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.Zero(t, state.saves)
}

func TestRunnerReportsLoadFailure(t *testing.T) {
	h := newHarness(nil, nil, nil)
	state := &memState{loadErr: &domain.ConfigError{Reason: "missing run config"}}

	_, err := NewRunner(state, h.capture).RunOnce(context.Background())
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestSchedulerShortensDelayWhileBatchPending(t *testing.T) {
	h := newHarness(urls(3), nil, nil)
	cfg := runConfig(false, false)
	size := 1
	cfg.BatchSize = &size
	state := &memState{cfg: cfg}
	driver := &manualDriver{}

	s := NewScheduler(driver, NewRunner(state, h.capture), time.Hour, time.Second, nil)
	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)

	assert.Equal(t, time.Second, driver.job(fixedNow))
	assert.Equal(t, time.Second, driver.job(fixedNow))
	assert.Equal(t, time.Hour, driver.job(fixedNow))
	assert.False(t, state.cfg.NextBatchPending)
	assert.Equal(t, 3, h.ledger.appends)

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestSchedulerUsesIntervalAfterFailedRun(t *testing.T) {
	h := newHarness(nil, nil, nil)
	state := &memState{loadErr: errors.New("state unavailable")}
	driver := &manualDriver{}

	s := NewScheduler(driver, NewRunner(state, h.capture), 15*time.Minute, time.Second, nil)
	require.NoError(t, s.Start(context.Background()))

	assert.Equal(t, 15*time.Minute, driver.job(fixedNow))
}

type failingRules struct{}

func (failingRules) Load(context.Context) ([]domain.RuleSet, error) {
	return nil, errors.New("rules db down")
}

func pastDayConfig() domain.RunConfig {
	cfg := runConfig(false, false)
	cfg.ReferenceDate = "2024-05-12"
	cfg.ClearLedgerDaily = true
	return cfg
}

func TestRunnerClearsLedgerAfterSavingNextDay(t *testing.T) {
	all := urls(3)
	h := newHarness(all, []string{all[0], "stale"}, nil)
	state := &memState{cfg: pastDayConfig()}

	report, err := NewRunner(state, h.capture).RunOnce(context.Background())
	require.NoError(t, err)

	assert.True(t, report.ClearLedger)
	assert.Equal(t, "2024-05-13", state.cfg.ReferenceDate)
	assert.Equal(t, map[string]struct{}{all[1]: {}, all[2]: {}}, h.ledger.ids)
}

func TestRunnerKeepsLedgerWhenRuleLoadFails(t *testing.T) {
	all := urls(2)
	h := newHarness(all, all[:1], nil)
	h.capture.rules = failingRules{}
	cfg := pastDayConfig()
	cfg.DeliverMatches = true
	state := &memState{cfg: cfg}

	_, err := NewRunner(state, h.capture).RunOnce(context.Background())
	require.Error(t, err)

	assert.Zero(t, state.saves)
	assert.Equal(t, "2024-05-12", state.cfg.ReferenceDate)
	assert.Contains(t, h.ledger.ids, all[0])
	assert.Empty(t, h.fetcher.calls)
}

func TestRunnerKeepsLedgerWhenStateSaveFails(t *testing.T) {
	all := urls(2)
	h := newHarness(all, all[:1], nil)
	state := &memState{cfg: pastDayConfig(), saveErr: errors.New("disk full")}

	_, err := NewRunner(state, h.capture).RunOnce(context.Background())
	require.Error(t, err)

	assert.Contains(t, h.ledger.ids, all[0])
	assert.Contains(t, h.ledger.ids, all[1])
}

func TestSchedulerHaltsOnConfigurationError(t *testing.T) {
	h := newHarness(nil, nil, nil)
	state := &memState{loadErr: &domain.ConfigError{Field: "look_back_days", Reason: "must be zero or negative"}}
	driver := &manualDriver{}

	s := NewScheduler(driver, NewRunner(state, h.capture), time.Minute, time.Second, nil)
	require.NoError(t, s.Start(context.Background()))

	driver.job(fixedNow)

	select {
	case <-s.Done():
	default:
		t.Fatal("scheduler should halt on configuration errors")
	}
	assert.ErrorIs(t, s.Err(), domain.ErrConfiguration)

	driver.job(fixedNow)
	require.NoError(t, s.Stop(context.Background()))
}

func TestSchedulerKeepsRunningAfterTransientError(t *testing.T) {
	h := newHarness(nil, nil, nil)
	state := &memState{loadErr: errors.New("state unavailable")}
	driver := &manualDriver{}

	s := NewScheduler(driver, NewRunner(state, h.capture), time.Minute, time.Second, nil)
	require.NoError(t, s.Start(context.Background()))
	driver.job(fixedNow)

	select {
	case <-s.Done():
		t.Fatal("transient errors must not halt the scheduler")
	default:
	}
	assert.NoError(t, s.Err())
}
