package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"GazetteScanner/internal/config"
	"GazetteScanner/internal/discovery"
	"GazetteScanner/internal/domain"
	"GazetteScanner/internal/filter"
	"GazetteScanner/internal/infrastructure/dou"
	"GazetteScanner/internal/infrastructure/ledger"
	"GazetteScanner/internal/infrastructure/notify"
	"GazetteScanner/internal/infrastructure/queue"
	"GazetteScanner/internal/infrastructure/rules"
	"GazetteScanner/internal/infrastructure/runstate"
	"GazetteScanner/internal/infrastructure/scheduler"
	"GazetteScanner/internal/infrastructure/storage"
	"GazetteScanner/internal/infrastructure/telegram"
	"GazetteScanner/internal/logging"
	"GazetteScanner/internal/ports"
	"GazetteScanner/internal/usecase"
)

const sqliteLedgerFile = "ledger.db"

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	listing   *dou.Listing
	runner    *usecase.Runner
	scheduler *usecase.Scheduler
	closers   []func() error
}

// builder carries the lazily created shared clients.
type builder struct {
	ctx    context.Context
	cfg    config.Config
	logger *slog.Logger

	sdk         *aws.Config
	db          *sql.DB
	placeholder sq.PlaceholderFormat

	closers []func() error
}

// New builds every adapter selected by cfg. Close releases them.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	b := &builder{ctx: ctx, cfg: cfg, logger: baseLogger}

	app, err := b.build()
	if err != nil {
		_ = closeAll(b.closers)
		return nil, err
	}
	return app, nil
}

func (b *builder) build() (*Application, error) {
	fetchOpts := dou.DefaultFetcherOptions()
	fetchOpts.Timeout = b.cfg.Source.Timeout
	fetchOpts.Attempts = b.cfg.Source.Attempts
	fetchOpts.RequestsPerSecond = b.cfg.Source.RequestsPerSecond
	fetcher := dou.NewHTTPFetcher(nil, fetchOpts, b.logger.With("component", "fetcher"))

	listing := dou.NewListing(fetcher, dou.ListingOptions{
		ListingURL:       b.cfg.Source.ListingURL,
		ArticlePrefix:    b.cfg.Source.ArticlePrefix,
		HivePartitioning: b.cfg.Source.HivePartitioning,
	}, b.logger.With("component", "listing"))

	led, err := b.ledger()
	if err != nil {
		return nil, err
	}
	store, err := b.store()
	if err != nil {
		return nil, err
	}
	notifier, err := b.notifier()
	if err != nil {
		return nil, err
	}
	ruleSource, err := b.rules()
	if err != nil {
		return nil, err
	}
	state, err := b.state()
	if err != nil {
		return nil, err
	}

	capture := usecase.NewCapture(usecase.CaptureDeps{
		Discovery:  discovery.New(listing, led, b.logger.With("component", "discovery")),
		Fetcher:    fetcher,
		Structurer: dou.NewStructurer(),
		Store:      store,
		Notifier:   notifier,
		Ledger:     led,
		Rules:      ruleSource,
		Engine:     filter.NewEngine(b.logger.With("component", "filter")),
		Logger:     b.logger.With("component", "capture"),
	})
	runner := usecase.NewRunner(state, capture)

	return &Application{
		cfg:     b.cfg,
		logger:  b.logger,
		listing: listing,
		runner:  runner,
		scheduler: usecase.NewScheduler(
			scheduler.NewIntervalScheduler(),
			runner,
			b.cfg.Scheduler.Interval,
			b.cfg.Scheduler.BatchPause,
			b.logger.With("component", "scheduler"),
		),
		closers: b.closers,
	}, nil
}

func (b *builder) ledger() (ports.Ledger, error) {
	lc := b.cfg.Ledger
	switch lc.Backend {
	case config.BackendRedis:
		client := ledger.DialRedis(lc.Redis.Addr, lc.Redis.Password, lc.Redis.DB)
		b.closers = append(b.closers, client.Close)
		return ledger.NewRedisLedger(client, lc.Redis.Prefix), nil
	case config.BackendDynamoDB:
		awsCfg, err := b.awsConfig()
		if err != nil {
			return nil, err
		}
		return ledger.NewDynamoLedger(dynamodb.NewFromConfig(awsCfg)), nil
	case config.BackendPostgres:
		l, db, err := ledger.OpenPostgres(b.ctx, b.cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		b.shareDB(db, sq.Dollar)
		return l, nil
	case config.BackendSQLite:
		path := b.cfg.Database.DSN
		if b.cfg.Database.Driver != config.BackendSQLite || path == "" {
			path = filepath.Join(lc.Dir, sqliteLedgerFile)
		}
		l, db, err := ledger.OpenSQLite(b.ctx, path)
		if err != nil {
			return nil, err
		}
		b.shareDB(db, sq.Question)
		return l, nil
	default:
		return ledger.NewFileLedger(lc.Dir), nil
	}
}

func (b *builder) store() (ports.EntryStore, error) {
	sc := b.cfg.Storage
	switch sc.Backend {
	case config.BackendNone:
		return nil, nil
	case config.BackendS3:
		awsCfg, err := b.awsConfig()
		if err != nil {
			return nil, err
		}
		return storage.NewS3Store(storage.NewS3Client(awsCfg), sc.Bucket, sc.Prefix), nil
	default:
		return storage.NewLocalStore(sc.Path), nil
	}
}

// notifier combines every configured channel; nil when none is.
func (b *builder) notifier() (ports.Notifier, error) {
	nc := b.cfg.Notifications
	var out notify.Fanout

	if nc.Telegram.BotToken != "" {
		out = append(out, telegram.NewNotifier(nc.Telegram.BotToken, nc.Telegram.ChatID))
	}
	if nc.SQS.QueueURL != "" {
		awsCfg, err := b.awsConfig()
		if err != nil {
			return nil, err
		}
		out = append(out, queue.NewNotifier(sqs.NewFromConfig(awsCfg), nc.SQS.QueueURL))
	}
	if nc.LogEnabled() {
		out = append(out, notify.NewLogNotifier(b.logger.With("component", "notifier")))
	}

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0], nil
	default:
		return out, nil
	}
}

func (b *builder) rules() (ports.RuleSetSource, error) {
	rc := b.cfg.Rules
	if rc.Backend != config.BackendSQL {
		return rules.NewFileSource(rc.Path, rc.Publication), nil
	}

	db, placeholder, err := b.database()
	if err != nil {
		return nil, err
	}
	return rules.NewSQLSource(db, placeholder, rc.Table, rc.Publication), nil
}

func (b *builder) state() (ports.RunStateStore, error) {
	sc := b.cfg.State
	if sc.Backend != config.BackendDynamoDB {
		return runstate.NewFileStore(sc.Path), nil
	}

	awsCfg, err := b.awsConfig()
	if err != nil {
		return nil, err
	}
	return runstate.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), sc.Table, sc.Name), nil
}

func (b *builder) shareDB(db *sql.DB, placeholder sq.PlaceholderFormat) {
	b.db, b.placeholder = db, placeholder
	b.closers = append(b.closers, db.Close)
}

// database returns the SQL ledger's connection or opens one from cfg.Database.
func (b *builder) database() (*sql.DB, sq.PlaceholderFormat, error) {
	if b.db != nil {
		return b.db, b.placeholder, nil
	}

	driver, placeholder := "postgres", sq.PlaceholderFormat(sq.Dollar)
	if b.cfg.Database.Driver == config.BackendSQLite {
		driver, placeholder = "sqlite", sq.Question
	}

	db, err := sql.Open(driver, b.cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(b.ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	b.shareDB(db, placeholder)
	return db, placeholder, nil
}

func (b *builder) awsConfig() (aws.Config, error) {
	if b.sdk != nil {
		return *b.sdk, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region := b.cfg.AWS.Region; region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if endpoint := b.cfg.AWS.Endpoint; endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           endpoint,
				SigningRegion: region,
			}, nil
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(b.ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	b.sdk = &awsCfg
	return awsCfg, nil
}

// RunOnce executes a single capture run and persists the next RunConfig.
func (a *Application) RunOnce(ctx context.Context) (usecase.Report, error) {
	return a.runner.RunOnce(ctx)
}

// Monitor keeps running captures until ctx is cancelled or a run fails on
// configuration, in which case that error is returned.
func (a *Application) Monitor(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("monitor started", "interval", a.cfg.Scheduler.Interval, "batch_pause", a.cfg.Scheduler.BatchPause)

	select {
	case <-ctx.Done():
	case <-a.scheduler.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	a.logger.Info("monitor stopped")
	return a.scheduler.Err()
}

// List returns the entries published on day for the given sections,
// without consulting the ledger.
func (a *Application) List(ctx context.Context, day time.Time, sections []domain.Section) ([]domain.CandidateEntry, error) {
	var out []domain.CandidateEntry
	for _, s := range sections {
		entries, err := a.listing.List(ctx, day, s)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

// Close releases database and cache connections.
func (a *Application) Close() error {
	err := closeAll(a.closers)
	a.closers = nil
	return err
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
