package extraction_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mailparser/internal/domain"
	"mailparser/internal/extraction"
	"mailparser/internal/port"
	"mailparser/mocks"
)

const documentText = "EMAIL CONTENT:\nPlease process PO-2024-001 from Acme Corp."

const strictReply = `Sure! Here is the JSON:
{
  "po_number": "PO-2024-001",
  "po_date": "2024-03-01",
  "billing_info": {"company": "Acme Corp", "address": "1 Main St"},
  "line_items": [{"description": "Widget", "quantity": 10, "unit_price": "$12.50", "total": "$125.00"}],
  "subtotal": "$125.00",
  "total_amount": "$1,234.56"
}`

const partialReply = `{"po_number": "PO-9", "total_amount": "99.90"}`

func TestExtract_StrictTierShortCircuits(t *testing.T) {
	completer := new(mocks.MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(strictReply, nil)

	ex := extraction.NewExtractor(completer, extraction.WithConsistencyChecks(false))
	res := ex.Extract(context.Background(), documentText)

	require.True(t, res.Succeeded())
	assert.Nil(t, res.Failure)
	assert.Equal(t, 1, res.Tier.Rank)
	assert.Equal(t, domain.VariantStrict, res.Tier.Variant)
	assert.Equal(t, "PO-2024-001", res.Invoice.PONumber)
	assert.Equal(t, 1234.56, *res.Invoice.TotalAmount)
	assert.Equal(t, 12.5, *res.Invoice.LineItems[0].UnitPrice)
	completer.AssertNumberOfCalls(t, "Complete", 1)
}

func TestExtract_FallsBackToPartial(t *testing.T) {
	completer := new(mocks.MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(partialReply, nil)

	ex := extraction.NewExtractor(completer, extraction.WithConsistencyChecks(false))
	res := ex.Extract(context.Background(), documentText)

	require.True(t, res.Succeeded())
	assert.Equal(t, 2, res.Tier.Rank)
	assert.Equal(t, domain.VariantPartial, res.Tier.Variant)
	assert.Equal(t, "PO-9", res.Invoice.PONumber)
	assert.Equal(t, 99.9, *res.Invoice.TotalAmount)
	completer.AssertNumberOfCalls(t, "Complete", 2)
}

func TestExtract_FallsBackToFreeForm(t *testing.T) {
	completer := new(mocks.MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return("no idea", nil).Once()
	completer.On("Complete", mock.Anything, mock.Anything).Return(`{"po_number": "PO-1",}`, nil).Once()
	completer.On("Complete", mock.Anything, mock.Anything).Return(`{"invoice_number": "INV-5", "total": "$20"}`, nil).Once()

	ex := extraction.NewExtractor(completer, extraction.WithConsistencyChecks(false))
	res := ex.Extract(context.Background(), documentText)

	require.True(t, res.Succeeded())
	assert.Equal(t, 3, res.Tier.Rank)
	assert.Equal(t, domain.VariantFreeForm, res.Tier.Variant)
	assert.Equal(t, 20.0, *res.Invoice.TotalAmount)
	assert.Equal(t, "INV-5", res.Invoice.Extras["invoice_number"])
	completer.AssertExpectations(t)
}

func TestExtract_AllTiersFail(t *testing.T) {
	completer := new(mocks.MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return("I could not find an invoice.", nil)

	ex := extraction.NewExtractor(completer)
	res := ex.Extract(context.Background(), documentText)

	require.False(t, res.Succeeded())
	require.NotNil(t, res.Failure)
	assert.Nil(t, res.Invoice)
	assert.Nil(t, res.Tier)
	assert.Equal(t, domain.CategoryAllTiersFailed, res.Failure.Category)
	assert.Contains(t, res.Failure.Message, "failed to extract invoice data")
	assert.Contains(t, res.Failure.Message, domain.ErrNoJSONFound.Error())
	assert.Equal(t, documentText, res.Failure.InputSample)

	require.Len(t, res.Failure.Attempts, 3)
	for i, a := range res.Failure.Attempts {
		assert.Equal(t, i+1, a.Rank)
		assert.Equal(t, domain.CategoryNoJSONFound, a.Category)
	}
	completer.AssertNumberOfCalls(t, "Complete", 3)
}

func TestExtract_UnusableResponsesAreEmptyModelOutput(t *testing.T) {
	completer := new(mocks.MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("connection refused")).Once()
	completer.On("Complete", mock.Anything, mock.Anything).Return("   ", nil).Once()
	completer.On("Complete", mock.Anything, mock.Anything).Return("", nil).Once()

	res := extraction.NewExtractor(completer).Extract(context.Background(), documentText)

	require.NotNil(t, res.Failure)
	require.Len(t, res.Failure.Attempts, 3)
	for _, a := range res.Failure.Attempts {
		assert.Equal(t, domain.CategoryEmptyModelOutput, a.Category)
	}
	assert.Contains(t, res.Failure.Attempts[0].Message, "connection refused")
}

func TestExtract_FailureSampleIsBounded(t *testing.T) {
	completer := new(mocks.MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return("nope", nil)

	long := strings.Repeat("x", 1200)
	res := extraction.NewExtractor(completer).Extract(context.Background(), long)

	require.NotNil(t, res.Failure)
	assert.Equal(t, strings.Repeat("x", 500)+"...", res.Failure.InputSample)
}

func TestExtract_PromptsPerTier(t *testing.T) {
	completer := new(mocks.MockCompleter)
	var prompts []string
	completer.On("Complete", mock.Anything, mock.MatchedBy(func(req port.CompletionRequest) bool {
		return req.Model == "llama3-70b-8192" && req.Temperature == 0
	})).Run(func(args mock.Arguments) {
		prompts = append(prompts, args.Get(1).(port.CompletionRequest).Prompt)
	}).Return("nothing", nil)

	ex := extraction.NewExtractor(completer, extraction.WithModel("llama3-70b-8192"))
	ex.Extract(context.Background(), documentText)

	require.Len(t, prompts, 3)
	for _, p := range prompts {
		assert.Contains(t, p, documentText)
	}
	assert.Contains(t, prompts[0], `"required"`)
	assert.Contains(t, prompts[1], "JSON Schema")
	assert.NotContains(t, prompts[1], `"required"`)
	assert.NotContains(t, prompts[2], "JSON Schema")
}

func TestExtract_CanceledContextStopsCascade(t *testing.T) {
	completer := new(mocks.MockCompleter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := extraction.NewExtractor(completer).Extract(ctx, documentText)

	require.NotNil(t, res.Failure)
	assert.Equal(t, domain.CategoryAllTiersFailed, res.Failure.Category)
	assert.Contains(t, res.Failure.Message, context.Canceled.Error())
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestExtract_ConsistencyWarnings(t *testing.T) {
	completer := new(mocks.MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(strictReply, nil)

	res := extraction.NewExtractor(completer).Extract(context.Background(), documentText)

	require.True(t, res.Succeeded())
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "total_amount calculation mismatch")
}

func TestExtract_CustomAttempts(t *testing.T) {
	completer := new(mocks.MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(partialReply, nil)

	ex := extraction.NewExtractor(completer, extraction.WithAttempts(extraction.DefaultAttempts()[:1]))
	res := ex.Extract(context.Background(), documentText)

	require.NotNil(t, res.Failure)
	require.Len(t, res.Failure.Attempts, 1)
	assert.Equal(t, domain.CategorySchemaViolation, res.Failure.Attempts[0].Category)
	assert.Contains(t, res.Failure.Message, "po_date")
}

type completerFunc func(ctx context.Context, req port.CompletionRequest) (string, error)

func (f completerFunc) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	return f(ctx, req)
}

func TestExtract_ConcurrentCallsAreIndependent(t *testing.T) {
	completer := completerFunc(func(_ context.Context, req port.CompletionRequest) (string, error) {
		if strings.Contains(req.Prompt, "PO-EVEN") {
			return strictReply, nil
		}
		return "no json", nil
	})
	ex := extraction.NewExtractor(completer)

	var wg sync.WaitGroup
	results := make([]domain.ExtractionResult, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := "PO-ODD"
			if i%2 == 0 {
				text = "PO-EVEN"
			}
			results[i] = ex.Extract(context.Background(), text)
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		assert.Equal(t, i%2 == 0, res.Succeeded(), "result %d", i)
	}
}
