package app_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailparser/internal/app"
	"mailparser/internal/config"
	"mailparser/internal/domain"
	"mailparser/internal/sink"
)

func baseConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LLM:        config.LLMConfig{Provider: "openai", APIKey: "sk-test", Model: "gpt-4o"},
		Extraction: config.ExtractionConfig{TimeoutSecs: 5, ConsistencyChecks: true},
		Sink:       config.SinkConfig{Kind: app.SinkJSONL, JSONLPath: filepath.Join(t.TempDir(), "out.jsonl")},
		DB:         config.DBConfig{Driver: "sqlite", Path: ":memory:"},
		Email:      config.EmailConfig{Provider: "noop"},
		Batch:      config.BatchConfig{Concurrency: 2},
		Server:     config.ServerConfig{MaxUploadMB: 1},
	}
}

func TestNew_JSONLSink(t *testing.T) {
	a, err := app.New(context.Background(), baseConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	assert.NotNil(t, a.Intake)
	assert.NotNil(t, a.Extractor)
	assert.NotNil(t, a.Text)
	assert.Nil(t, a.Records)
	assert.IsType(t, &sink.JSONL{}, a.Lister)
	assert.NotNil(t, a.BatchRunner())
}

func TestNew_SQLSinkExposesRecords(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Sink.Kind = app.SinkSQL

	a, err := app.New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	require.NotNil(t, a.Records)
	assert.Equal(t, a.Records, a.Lister)
	require.NoError(t, a.Records.Append(context.Background(), &domain.ExtractionRecord{
		RequestID: "r1", Source: "cli", Status: domain.RecordStatusSucceeded,
	}))
	recs, total, err := a.Records.List(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "r1", recs[0].RequestID)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing api key", func(c *config.Config) { c.LLM.APIKey = "" }},
		{"unknown provider", func(c *config.Config) { c.LLM.Provider = "watson" }},
		{"unknown sink", func(c *config.Config) { c.Sink.Kind = "kafka" }},
		{"unknown email provider", func(c *config.Config) { c.Email.Provider = "pigeon" }},
		{"ses without recipients", func(c *config.Config) { c.Email.Provider = "ses"; c.Email.Region = "us-east-1" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(t)
			tt.mutate(cfg)
			_, err := app.New(context.Background(), cfg, zerolog.Nop())
			assert.Error(t, err)
		})
	}
}

func TestOpenRecords(t *testing.T) {
	cfg := baseConfig(t)
	cfg.DB.Path = filepath.Join(t.TempDir(), "log.db")

	repo, closeFn, err := app.OpenRecords(cfg)
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	assert.NoError(t, repo.Ping(context.Background()))
}
