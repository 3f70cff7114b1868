package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

var (
	_ ReportGenerator = (*Generator)(nil)
	_ ReportGenerator = StaticGenerator{}
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	args := m.Called(ctx, req)
	if out, ok := args.Get(0).(*Completion); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCompleter) Provider() string { return "fake" }
func (m *mockCompleter) Model() string    { return "fake-1" }

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordLLMRequest(provider, model string, duration time.Duration, inputTokens, outputTokens int) {
	m.Called(provider, model, duration, inputTokens, outputTokens)
}

func (m *mockRecorder) RecordLLMRequestFailed(provider, model, errorType string) {
	m.Called(provider, model, errorType)
}

func testPaper() *domain.Paper {
	return &domain.Paper{
		DOI:           "10.1000/xyz",
		Title:         "Sleep and memory consolidation",
		Abstract:      "We study sleep.",
		CitationCount: 42,
		Badges:        []string{"Open Access"},
	}
}

func TestGenerator_Generate(t *testing.T) {
	t.Parallel()

	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, mock.MatchedBy(func(req CompletionRequest) bool {
		return req.System == searchSystemPrompt && req.User != ""
	})).Return(&Completion{Text: "relevant", Model: "fake-1", InputTokens: 10, OutputTokens: 3}, nil)

	recorder := &mockRecorder{}
	recorder.On("RecordLLMRequest", "fake", "fake-1", mock.Anything, 10, 3).Return()

	gen := NewGenerator(completer, recorder, zerolog.Nop())
	text, err := gen.Generate(context.Background(), domain.ReportTypeSearch, "does sleep help memory?", testPaper())

	require.NoError(t, err)
	assert.Equal(t, "relevant", text)
	completer.AssertExpectations(t)
	recorder.AssertExpectations(t)
}

func TestGenerator_Generate_Failure(t *testing.T) {
	t.Parallel()

	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, mock.Anything).
		Return(nil, &APIError{Provider: "fake", StatusCode: 429})

	recorder := &mockRecorder{}
	recorder.On("RecordLLMRequestFailed", "fake", "fake-1", "rate_limit").Return()

	gen := NewGenerator(completer, recorder, zerolog.Nop())
	_, err := gen.Generate(context.Background(), domain.ReportTypeCiteCheck, "claim", testPaper())

	require.Error(t, err)
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	recorder.AssertExpectations(t)
}

func TestGenerator_Generate_NilPaper(t *testing.T) {
	t.Parallel()

	gen := NewGenerator(&mockCompleter{}, nil, zerolog.Nop())
	_, err := gen.Generate(context.Background(), domain.ReportTypeSearch, "q", nil)
	require.Error(t, err)
}

func TestStaticGenerator_Generate(t *testing.T) {
	t.Parallel()

	text, err := StaticGenerator{}.Generate(context.Background(), domain.ReportTypeSearch, "sleep", testPaper())
	require.NoError(t, err)
	assert.Equal(t, "static test response for query: sleep\nPaper title: Sleep and memory consolidation", text)
}

func TestBuildReportPrompt(t *testing.T) {
	t.Parallel()

	paper := testPaper()
	paper.Journal = "Nature"
	paper.PublicationDate = time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)
	paper.IsPreprint = true
	paper.Metrics.IsRetracted = true

	t.Run("search", func(t *testing.T) {
		t.Parallel()
		req := BuildReportPrompt(domain.ReportTypeSearch, "does sleep help?", paper)
		assert.Equal(t, searchSystemPrompt, req.System)
		assert.Contains(t, req.User, "Research question: does sleep help?")
		assert.Contains(t, req.User, "- Title: Sleep and memory consolidation")
		assert.Contains(t, req.User, "- Journal: Nature")
		assert.Contains(t, req.User, "- Published: 2021-03-04")
		assert.Contains(t, req.User, "- Citations: 42")
		assert.Contains(t, req.User, "- Preprint: true")
		assert.Contains(t, req.User, "- Retracted: true")
		assert.Contains(t, req.User, "- Badges: Open Access")
		assert.Contains(t, req.User, "We study sleep.")
	})

	t.Run("cite check", func(t *testing.T) {
		t.Parallel()
		req := BuildReportPrompt(domain.ReportTypeCiteCheck, "sleep improves recall", paper)
		assert.Equal(t, citeCheckSystemPrompt, req.System)
		assert.Contains(t, req.User, "Claim: sleep improves recall")
		assert.NotContains(t, req.User, "Research question")
	})
}
