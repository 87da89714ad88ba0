package summarizer

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/brieflyhq/briefly-back/internal/domain"
)

const summarySchemaJSON = `{
	"type": "object",
	"properties": {
		"summary": {"type": "string", "minLength": 1},
		"key_points": {"type": "array", "items": {"type": "string"}},
		"action_items": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["summary", "key_points", "action_items"]
}`

var summarySchema = jsonschema.MustCompileString("summary.schema.json", summarySchemaJSON)

// parseSummaryResponse never fails. A response that validates against
// the schema maps directly; anything less is salvaged key by key, with
// a placeholder summary and empty lists filling the gaps. A response
// that is not JSON at all becomes a summary made of the raw text.
func parseSummaryResponse(text string) domain.SummaryResult {
	text = stripCodeFence(text)

	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			trimmed = fallbackSummary
		}
		return domain.SummaryResult{
			Summary:     trimmed,
			KeyPoints:   []string{},
			ActionItems: []string{},
		}
	}

	if err := summarySchema.Validate(value); err == nil {
		var strict domain.SummaryResult
		if err := json.Unmarshal([]byte(text), &strict); err == nil {
			if strict.KeyPoints == nil {
				strict.KeyPoints = []string{}
			}
			if strict.ActionItems == nil {
				strict.ActionItems = []string{}
			}
			return strict
		}
	}

	return salvageSummary(value)
}

func salvageSummary(value any) domain.SummaryResult {
	result := domain.SummaryResult{
		Summary:     fallbackSummary,
		KeyPoints:   []string{},
		ActionItems: []string{},
	}

	object, ok := value.(map[string]any)
	if !ok {
		return result
	}

	if summary, ok := object["summary"].(string); ok && strings.TrimSpace(summary) != "" {
		result.Summary = strings.TrimSpace(summary)
	}
	result.KeyPoints = stringList(object["key_points"])
	result.ActionItems = stringList(object["action_items"])
	return result
}

func stringList(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		text, ok := item.(string)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, strings.TrimSpace(text))
	}
	return out
}

// stripCodeFence unwraps a response the model wrapped in a markdown
// fence despite the JSON response format.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
