package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/motospec/backend/internal/domain"
	"github.com/rs/zerolog"
)

// FieldPrices holds every variant/color price; it is always normalized to a list.
const FieldPrices = "Ex-Showroom Price INR"

// RecordPreprocessor cleans a fetched record before it is compared or stored
type RecordPreprocessor struct {
	logger zerolog.Logger
}

// NewRecordPreprocessor creates a new record preprocessor
func NewRecordPreprocessor(logger zerolog.Logger) *RecordPreprocessor {
	return &RecordPreprocessor{logger: logger}
}

// Preprocess returns a cleaned copy of record:
//   - field names are trimmed (prompt keys like "Bharat Stage " come back padded)
//   - string values are trimmed
//   - the price field becomes a list
//   - a missing Models name falls back to the requested model
func (p *RecordPreprocessor) Preprocess(record domain.Record, requestedModel string) domain.Record {
	out := make(domain.Record, len(record))
	for k, v := range record {
		key := strings.TrimSpace(k)
		if s, ok := v.(string); ok {
			v = strings.TrimSpace(s)
		}
		out[key] = v
	}

	if v, ok := out[FieldPrices]; ok {
		out[FieldPrices] = NormalizePriceList(v)
	}

	if out.Name() == "" && strings.TrimSpace(requestedModel) != "" {
		out[domain.FieldModels] = strings.TrimSpace(requestedModel)
	}

	p.logger.Debug().
		Str("model", out.Name()).
		Int("fields", len(out)).
		Msg("preprocessed fetched record")

	return out
}

// NormalizePriceList coerces a price value into a list of strings. Strings are split
// on newlines, else semicolons, else commas when that yields several parts;
// otherwise the value becomes a single-item list.
func NormalizePriceList(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, domain.FormatValue(item))
		}
		return out
	case string:
		switch {
		case strings.Contains(t, "\n"):
			return splitNonEmpty(t, "\n")
		case strings.Contains(t, ";"):
			return splitNonEmpty(t, ";")
		case strings.Contains(t, ",") && len(strings.Split(t, ",")) > 1:
			return splitNonEmpty(t, ",")
		default:
			return []string{t}
		}
	case nil:
		return []string{"NA"}
	default:
		return []string{domain.FormatValue(t)}
	}
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ExtractJSONObject decodes the JSON object spanning the first '{' and the last '}'
// of text, which tolerates prose or code fences around an LLM answer.
func ExtractJSONObject(text string) (domain.Record, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in response", domain.ErrInvalidRecord)
	}

	var record domain.Record
	if err := json.Unmarshal([]byte(text[start:end+1]), &record); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	return record, nil
}
