package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"mailparser/internal/domain"
	"mailparser/internal/port"
)

// Archive stores each record as its own JSON object in a bucket.
type Archive struct {
	storage port.ObjectStorage
	bucket  string
	prefix  string
}

// NewArchive creates an Archive writing under prefix in bucket.
func NewArchive(storage port.ObjectStorage, bucket, prefix string) *Archive {
	return &Archive{storage: storage, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for a record: <prefix>/<yyyy>/<mm>/<dd>/<id>.json.
func (a *Archive) Key(record *domain.ExtractionRecord) string {
	ts := record.CreatedAt.UTC()
	return path.Join(a.prefix, ts.Format("2006"), ts.Format("01"), ts.Format("02"), record.ID+".json")
}

func (a *Archive) Append(ctx context.Context, record *domain.ExtractionRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("sink.Archive: marshal: %w", err)
	}
	_, err = a.storage.Upload(ctx, port.UploadInput{
		Bucket:      a.bucket,
		Key:         a.Key(record),
		Body:        bytes.NewReader(body),
		ContentType: "application/json",
		Size:        int64(len(body)),
	})
	if err != nil {
		return fmt.Errorf("sink.Archive: %w", err)
	}
	return nil
}
