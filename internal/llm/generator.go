package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// ReportGenerator produces report text about a paper for a query.
// *enrichment.Service accepts any value with this method set.
type ReportGenerator interface {
	Generate(ctx context.Context, reportType domain.ReportType, query string, paper *domain.Paper) (string, error)
}

// Recorder receives completion outcomes. observability.Metrics implements it.
type Recorder interface {
	RecordLLMRequest(provider, model string, duration time.Duration, inputTokens, outputTokens int)
	RecordLLMRequestFailed(provider, model, errorType string)
}

// Generator renders report prompts and sends them to a Completer.
type Generator struct {
	completer Completer
	metrics   Recorder
	logger    zerolog.Logger
}

// NewGenerator creates a Generator. metrics may be nil.
func NewGenerator(completer Completer, metrics Recorder, logger zerolog.Logger) *Generator {
	return &Generator{
		completer: completer,
		metrics:   metrics,
		logger: logger.With().
			Str("component", "report_generator").
			Str("provider", completer.Provider()).
			Logger(),
	}
}

// Generate implements ReportGenerator.
func (g *Generator) Generate(ctx context.Context, reportType domain.ReportType, query string, paper *domain.Paper) (string, error) {
	if paper == nil {
		return "", fmt.Errorf("generate %s report: nil paper", reportType)
	}

	start := time.Now()
	out, err := g.completer.Complete(ctx, BuildReportPrompt(reportType, query, paper))
	if err != nil {
		if g.metrics != nil {
			g.metrics.RecordLLMRequestFailed(g.completer.Provider(), g.completer.Model(), errorType(err))
		}
		g.logger.Warn().Err(err).
			Str("report_type", string(reportType)).
			Str("doi", paper.DOI).
			Msg("report generation failed")
		return "", fmt.Errorf("generate %s report: %w", reportType, err)
	}

	if g.metrics != nil {
		g.metrics.RecordLLMRequest(g.completer.Provider(), out.Model, time.Since(start), out.InputTokens, out.OutputTokens)
	}
	g.logger.Debug().
		Str("report_type", string(reportType)).
		Str("doi", paper.DOI).
		Int("input_tokens", out.InputTokens).
		Int("output_tokens", out.OutputTokens).
		Dur("duration", time.Since(start)).
		Msg("report generated")

	return out.Text, nil
}

// StaticGenerator returns a fixed response without calling any provider.
// It is used in tests and offline runs.
type StaticGenerator struct{}

// Generate implements ReportGenerator.
func (StaticGenerator) Generate(_ context.Context, _ domain.ReportType, query string, paper *domain.Paper) (string, error) {
	if paper == nil {
		return "", fmt.Errorf("generate static report: nil paper")
	}
	return fmt.Sprintf("static test response for query: %s\nPaper title: %s", query, paper.Title), nil
}
