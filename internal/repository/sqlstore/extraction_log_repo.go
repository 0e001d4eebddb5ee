package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"mailparser/internal/domain"
	"mailparser/internal/port"
)

// logRow is the column layout of extraction_log. Structured fields are stored as JSON text.
type logRow struct {
	ID          string         `db:"id"`
	RequestID   string         `db:"request_id"`
	Source      string         `db:"source"`
	Filename    string         `db:"filename"`
	Status      string         `db:"status"`
	TierRank    int            `db:"tier_rank"`
	TierVariant string         `db:"tier_variant"`
	Metadata    string         `db:"metadata"`
	Invoice     sql.NullString `db:"invoice"`
	Failure     sql.NullString `db:"failure"`
	Warnings    string         `db:"warnings"`
	InputBytes  int            `db:"input_bytes"`
	CreatedAt   time.Time      `db:"created_at"`
}

type extractionLogRepo struct {
	db *sqlx.DB
}

// NewExtractionLogRepo creates a SQL-backed ExtractionLogRepository.
func NewExtractionLogRepo(db *sqlx.DB) port.ExtractionLogRepository {
	return &extractionLogRepo{db: db}
}

func (r *extractionLogRepo) Append(ctx context.Context, record *domain.ExtractionRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	row, err := toRow(record)
	if err != nil {
		return fmt.Errorf("extractionLogRepo.Append: %w", err)
	}

	query := `INSERT INTO extraction_log
		(id, request_id, source, filename, status, tier_rank, tier_variant,
		 metadata, invoice, failure, warnings, input_bytes, created_at)
		VALUES (:id, :request_id, :source, :filename, :status, :tier_rank, :tier_variant,
		 :metadata, :invoice, :failure, :warnings, :input_bytes, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("extractionLogRepo.Append: %w", err)
	}
	return nil
}

func (r *extractionLogRepo) List(ctx context.Context, offset, limit int) ([]domain.ExtractionRecord, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM extraction_log"); err != nil {
		return nil, 0, fmt.Errorf("extractionLogRepo.List count: %w", err)
	}

	var rows []logRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(
		`SELECT * FROM extraction_log ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`),
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("extractionLogRepo.List: %w", err)
	}

	records := make([]domain.ExtractionRecord, 0, len(rows))
	for i := range rows {
		rec, err := fromRow(&rows[i])
		if err != nil {
			return nil, 0, fmt.Errorf("extractionLogRepo.List: row %s: %w", rows[i].ID, err)
		}
		records = append(records, *rec)
	}
	return records, total, nil
}

func (r *extractionLogRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func toRow(rec *domain.ExtractionRecord) (*logRow, error) {
	row := &logRow{
		ID:          rec.ID,
		RequestID:   rec.RequestID,
		Source:      rec.Source,
		Filename:    rec.Filename,
		Status:      string(rec.Status),
		TierRank:    rec.TierRank,
		TierVariant: string(rec.TierVariant),
		InputBytes:  rec.InputBytes,
		CreatedAt:   rec.CreatedAt.UTC(),
	}

	metadata := rec.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	row.Metadata = string(b)

	warnings := rec.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	if b, err = json.Marshal(warnings); err != nil {
		return nil, fmt.Errorf("encoding warnings: %w", err)
	}
	row.Warnings = string(b)

	if rec.Invoice != nil {
		if b, err = json.Marshal(rec.Invoice); err != nil {
			return nil, fmt.Errorf("encoding invoice: %w", err)
		}
		row.Invoice = sql.NullString{String: string(b), Valid: true}
	}
	if rec.Failure != nil {
		if b, err = json.Marshal(rec.Failure); err != nil {
			return nil, fmt.Errorf("encoding failure: %w", err)
		}
		row.Failure = sql.NullString{String: string(b), Valid: true}
	}
	return row, nil
}

func fromRow(row *logRow) (*domain.ExtractionRecord, error) {
	rec := &domain.ExtractionRecord{
		ID:          row.ID,
		RequestID:   row.RequestID,
		Source:      row.Source,
		Filename:    row.Filename,
		Status:      domain.RecordStatus(row.Status),
		TierRank:    row.TierRank,
		TierVariant: domain.Variant(row.TierVariant),
		InputBytes:  row.InputBytes,
		CreatedAt:   row.CreatedAt.UTC(),
	}
	if row.Metadata != "" {
		if err := json.Unmarshal([]byte(row.Metadata), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
		if len(rec.Metadata) == 0 {
			rec.Metadata = nil
		}
	}
	if row.Warnings != "" {
		if err := json.Unmarshal([]byte(row.Warnings), &rec.Warnings); err != nil {
			return nil, fmt.Errorf("decoding warnings: %w", err)
		}
		if len(rec.Warnings) == 0 {
			rec.Warnings = nil
		}
	}
	if row.Invoice.Valid {
		rec.Invoice = &domain.StructuredInvoice{}
		if err := json.Unmarshal([]byte(row.Invoice.String), rec.Invoice); err != nil {
			return nil, fmt.Errorf("decoding invoice: %w", err)
		}
	}
	if row.Failure.Valid {
		rec.Failure = &domain.ExtractionFailure{}
		if err := json.Unmarshal([]byte(row.Failure.String), rec.Failure); err != nil {
			return nil, fmt.Errorf("decoding failure: %w", err)
		}
	}
	return rec, nil
}
