package sink_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mailparser/internal/domain"
	"mailparser/internal/port"
	"mailparser/internal/sink"
	"mailparser/mocks"
)

func testRecord(id string) *domain.ExtractionRecord {
	return &domain.ExtractionRecord{
		ID:          id,
		RequestID:   "req-" + id,
		Source:      "webhook",
		Status:      domain.RecordStatusSucceeded,
		TierRank:    1,
		TierVariant: domain.VariantStrict,
		Invoice: &domain.StructuredInvoice{
			PONumber:    "PO-" + id,
			TotalAmount: domain.Float(12.5),
			LineItems:   []domain.LineItem{},
		},
		CreatedAt: time.Date(2024, 2, 9, 8, 30, 0, 0, time.UTC),
	}
}

func TestJSONL_AppendsOneLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "processed_orders.json")
	s := sink.NewJSONL(path)

	require.NoError(t, s.Append(context.Background(), testRecord("a")))
	require.NoError(t, s.Append(context.Background(), testRecord("b")))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var got map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &got))
		ids = append(ids, got["id"].(string))
		assert.Contains(t, got, "timestamp")
	}
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestJSONL_ConcurrentAppendsDoNotInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	s := sink.NewJSONL(path)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Append(context.Background(), testRecord(string(rune('a'+i)))))
		}(i)
	}
	wg.Wait()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec domain.ExtractionRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		lines++
	}
	assert.Equal(t, 20, lines)
}

func TestJSONL_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := sink.NewJSONL(filepath.Join(t.TempDir(), "x.jsonl"))

	assert.ErrorIs(t, s.Append(ctx, testRecord("a")), context.Canceled)
}

func TestArchive_KeyLayout(t *testing.T) {
	a := sink.NewArchive(nil, "bucket", "/extractions/")

	assert.Equal(t, "extractions/2024/02/09/abc.json", a.Key(testRecord("abc")))
	assert.Equal(t, "2024/02/09/abc.json", sink.NewArchive(nil, "bucket", "").Key(testRecord("abc")))
}

func TestArchive_UploadsRecordJSON(t *testing.T) {
	store := new(mocks.MockObjectStorage)
	var got port.UploadInput
	var body []byte
	store.On("Upload", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			got = args.Get(1).(port.UploadInput)
			body, _ = io.ReadAll(got.Body)
		}).
		Return(&port.UploadOutput{Location: "s3://bucket/p/2024/02/09/r1.json"}, nil)

	a := sink.NewArchive(store, "bucket", "p")

	require.NoError(t, a.Append(context.Background(), testRecord("r1")))
	assert.Equal(t, "bucket", got.Bucket)
	assert.Equal(t, "p/2024/02/09/r1.json", got.Key)
	assert.Equal(t, "application/json", got.ContentType)
	assert.Equal(t, int64(len(body)), got.Size)

	var rec domain.ExtractionRecord
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, "r1", rec.ID)
	assert.Equal(t, "PO-r1", rec.Invoice.PONumber)
}

func TestArchive_UploadError(t *testing.T) {
	store := new(mocks.MockObjectStorage)
	store.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("denied"))

	err := sink.NewArchive(store, "bucket", "p").Append(context.Background(), testRecord("r1"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}

func TestMulti_AttemptsEverySinkAndJoinsErrors(t *testing.T) {
	rec := testRecord("m")
	first := new(mocks.MockResultSink)
	second := new(mocks.MockResultSink)
	third := new(mocks.MockResultSink)
	errA := errors.New("a failed")
	errC := errors.New("c failed")
	first.On("Append", mock.Anything, rec).Return(errA)
	second.On("Append", mock.Anything, rec).Return(nil)
	third.On("Append", mock.Anything, rec).Return(errC)

	err := sink.Multi{first, second, third}.Append(context.Background(), rec)

	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errC)
	second.AssertCalled(t, "Append", mock.Anything, rec)
}

func TestMulti_AllSucceed(t *testing.T) {
	rec := testRecord("m")
	only := new(mocks.MockResultSink)
	only.On("Append", mock.Anything, rec).Return(nil)

	assert.NoError(t, sink.Multi{only, sink.Noop{}}.Append(context.Background(), rec))
}

func TestJSONL_ListReadsBackInOrder(t *testing.T) {
	s := sink.NewJSONL(filepath.Join(t.TempDir(), "log.jsonl"))
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Append(context.Background(), testRecord(id)))
	}

	all, total, err := s.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, all, 3)
	assert.Equal(t, "PO-a", all[0].Invoice.PONumber)
	assert.Equal(t, 12.5, *all[0].Invoice.TotalAmount)

	page, total, err := s.List(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)
}

func TestJSONL_ListMissingFile(t *testing.T) {
	s := sink.NewJSONL(filepath.Join(t.TempDir(), "absent.jsonl"))

	recs, total, err := s.List(context.Background(), 0, 10)

	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Zero(t, total)
}

func TestJSONL_ListMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"id\":\"a\"}\n\nnot json\n"), 0o644))

	_, _, err := sink.NewJSONL(path).List(context.Background(), 0, 10)

	assert.ErrorContains(t, err, "line 3")
}
