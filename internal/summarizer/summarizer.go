package summarizer

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/brieflyhq/briefly-back/internal/ai"
	"github.com/brieflyhq/briefly-back/internal/domain"
)

const (
	defaultMaxContentLength = 15000
	truncationNote          = "\n\n[Content truncated for length]"
	fallbackSummary         = "No summary available"
)

const systemInstructions = `You are an expert document analyst. You read documents, transcripts and notes and produce concise, faithful summaries. Respond with a JSON object only, no prose around it.`

type Config struct {
	Model            string
	Temperature      float64
	MaxOutputTokens  int
	MaxContentLength int
}

// Summarizer turns extracted plain text into a structured summary with
// a single model call. There is no retry and no second parse attempt:
// one request, one parse, one outcome.
type Summarizer struct {
	generator        ai.TextGenerator
	model            string
	temperature      float64
	maxOutputTokens  int
	maxContentLength int
	logger           *log.Logger
}

func NewSummarizer(generator ai.TextGenerator, config Config, logger *log.Logger) *Summarizer {
	if config.MaxContentLength <= 0 {
		config.MaxContentLength = defaultMaxContentLength
	}
	if config.MaxOutputTokens <= 0 {
		config.MaxOutputTokens = 2000
	}
	if config.Temperature <= 0 {
		config.Temperature = 0.3
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Summarizer{
		generator:        generator,
		model:            config.Model,
		temperature:      config.Temperature,
		maxOutputTokens:  config.MaxOutputTokens,
		maxContentLength: config.MaxContentLength,
		logger:           logger,
	}
}

func (s *Summarizer) Summarize(ctx context.Context, fileName, content string) (domain.SummaryResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.SummaryResult{}, fmt.Errorf("nothing to summarize")
	}

	prepared, truncated := truncateContent(content, s.maxContentLength)
	if truncated {
		s.logger.Printf("content for %q truncated to %d characters", fileName, s.maxContentLength)
	}

	result, err := s.generator.Generate(ctx, ai.GenerateRequest{
		Model:           s.model,
		Instructions:    systemInstructions,
		Input:           buildPrompt(fileName, prepared),
		Temperature:     s.temperature,
		MaxOutputTokens: s.maxOutputTokens,
		ForceJSON:       true,
	})
	if err != nil {
		return domain.SummaryResult{}, fmt.Errorf("generate summary: %w", err)
	}

	return parseSummaryResponse(result.Text), nil
}

func buildPrompt(fileName, content string) string {
	var builder strings.Builder
	builder.WriteString("Analyze the following content from the file \"")
	builder.WriteString(fileName)
	builder.WriteString("\" and provide:\n")
	builder.WriteString("1. A concise summary (2-3 paragraphs)\n")
	builder.WriteString("2. 5-7 key points as short sentences\n")
	builder.WriteString("3. 3-5 actionable items or takeaways\n\n")
	builder.WriteString("Respond with a JSON object of this exact shape:\n")
	builder.WriteString(`{"summary": "...", "key_points": ["..."], "action_items": ["..."]}`)
	builder.WriteString("\n\nContent:\n")
	builder.WriteString(content)
	return builder.String()
}

// truncateContent caps the prompt body at limit characters and discloses
// the cut inside the prompt so the model does not summarize a document
// it only partially saw as if it were whole.
func truncateContent(content string, limit int) (string, bool) {
	runes := []rune(content)
	if len(runes) <= limit {
		return content, false
	}
	return string(runes[:limit]) + truncationNote, true
}
