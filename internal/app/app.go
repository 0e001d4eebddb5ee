// Package app wires configuration into the extraction pipeline shared by
// the HTTP server and the command-line tool.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"mailparser/internal/config"
	"mailparser/internal/document"
	"mailparser/internal/email/noop"
	"mailparser/internal/email/ses"
	"mailparser/internal/export"
	"mailparser/internal/extraction"
	"mailparser/internal/llm"
	"mailparser/internal/llm/providers"
	"mailparser/internal/logging"
	"mailparser/internal/port"
	"mailparser/internal/repository/sqlstore"
	"mailparser/internal/service"
	"mailparser/internal/sink"
	s3storage "mailparser/internal/storage/s3"
)

const (
	SinkJSONL = "jsonl"
	SinkSQL   = "sql"
	SinkNone  = "none"
)

// App holds the long-lived components built from a Config.
type App struct {
	Config    *config.Config
	Log       zerolog.Logger
	Extractor port.InvoiceExtractor
	Intake    service.IntakeService
	Text      port.TextProvider
	// Records is set only when the sink kind is sql.
	Records port.ExtractionLogRepository
	// Lister reads back whichever primary sink is configured; nil for none.
	Lister export.Lister

	db *sqlx.DB
}

// New builds the pipeline described by cfg.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	if err := cfg.LLM.Validate(); err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}

	providers.RegisterAll()
	completer, err := llm.Build(&cfg.LLM, logging.WithComponent(logger, "llm"))
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}

	a := &App{
		Config: cfg,
		Log:    logger,
		Text:   document.NewPDFTextProvider(cfg.Server.MaxUploadMB<<20, logging.WithComponent(logger, "pdf")),
	}
	a.Extractor = extraction.NewExtractor(completer,
		extraction.WithLogger(logging.WithComponent(logger, "extraction")),
		extraction.WithConsistencyChecks(cfg.Extraction.ConsistencyChecks),
	)

	resultSink, err := a.buildSink(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	notifier, err := NewNotifier(ctx, &cfg.Email, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Intake = service.NewIntakeService(a.Extractor, resultSink, notifier,
		cfg.Extraction.Timeout(), logging.WithComponent(logger, "intake"))
	return a, nil
}

// BatchRunner returns a runner over the intake service using the configured concurrency.
func (a *App) BatchRunner() *service.BatchRunner {
	return service.NewBatchRunner(a.Intake, a.Config.Batch.Concurrency, logging.WithComponent(a.Log, "batch"))
}

// Close releases the database connection, if any.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *App) buildSink(ctx context.Context) (port.ResultSink, error) {
	var sinks sink.Multi

	switch strings.ToLower(a.Config.Sink.Kind) {
	case SinkJSONL, "":
		jsonl := sink.NewJSONL(a.Config.Sink.JSONLPath)
		a.Lister = jsonl
		sinks = append(sinks, jsonl)
	case SinkSQL:
		repo, err := a.openRecords()
		if err != nil {
			return nil, err
		}
		a.Lister = repo
		sinks = append(sinks, repo)
	case SinkNone:
	default:
		return nil, fmt.Errorf("app.New: unknown sink kind: %s", a.Config.Sink.Kind)
	}

	if a.Config.Sink.Archive {
		storage, err := s3storage.NewS3Client(ctx, &a.Config.S3)
		if err != nil {
			return nil, fmt.Errorf("app.New: archive: %w", err)
		}
		sinks = append(sinks, sink.NewArchive(storage, a.Config.S3.Bucket, a.Config.S3.Prefix))
	}

	if len(sinks) == 0 {
		return sink.Noop{}, nil
	}
	return sinks, nil
}

// OpenRecords connects to the configured database without building the
// rest of the pipeline. SQLite databases are migrated on open.
func OpenRecords(cfg *config.Config) (port.ExtractionLogRepository, func() error, error) {
	a := &App{Config: cfg}
	repo, err := a.openRecords()
	if err != nil {
		return nil, nil, err
	}
	return repo, a.Close, nil
}

func (a *App) openRecords() (port.ExtractionLogRepository, error) {
	db, err := sqlstore.NewDB(&a.Config.DB)
	if err != nil {
		return nil, fmt.Errorf("app.New: database: %w", err)
	}
	a.db = db
	if a.Config.DB.Driver == sqlstore.DriverSQLite {
		if err := sqlstore.MigrateUp(db); err != nil {
			return nil, fmt.Errorf("app.New: migrate: %w", err)
		}
	}
	a.Records = sqlstore.NewExtractionLogRepo(db)
	return a.Records, nil
}

// NewNotifier builds the failure notifier named by cfg.Provider.
func NewNotifier(ctx context.Context, cfg *config.EmailConfig, logger zerolog.Logger) (port.FailureNotifier, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ses":
		n, err := ses.NewFailureNotifier(ctx, cfg.Region, cfg.FromAddress, cfg.FromName, cfg.AlertRecipients)
		if err != nil {
			return nil, fmt.Errorf("app.NewNotifier: %w", err)
		}
		return n, nil
	case "noop", "":
		return noop.NewFailureNotifier(logging.WithComponent(logger, "email")), nil
	default:
		return nil, errors.New("app.NewNotifier: unknown email provider: " + cfg.Provider)
	}
}
