package usecase

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/motospec/backend/internal/domain"
)

// numberRunRegex matches a digit run with at most one decimal point, e.g. "46.39" in
// "46.39 bhp @ 7250 rpm". A bare "." never matches.
var numberRunRegex = regexp.MustCompile(`\d*\.?\d+`)

// Missing is the sentinel for an absent or unparseable numeric value.
var Missing = math.NaN()

// IsMissing reports whether v is the missing sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Boolean-like tokens recognised by BinaryEncode
var (
	truthyTokens = map[string]bool{"x": true, "yes": true, "true": true, "available": true}
	falsyTokens  = map[string]bool{"no": true, "na": true, "n/a": true, "": true}
)

// numericRuns strips thousands separators and returns every digit/dot run that
// parses as a float.
func numericRuns(v interface{}) []float64 {
	text := strings.ReplaceAll(valueText(v), ",", "")
	var out []float64
	for _, m := range numberRunRegex.FindAllString(text, -1) {
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}

// valueText renders a raw cell for parsing; missing values become "".
func valueText(v interface{}) string {
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		return ""
	}
	return domain.FormatValue(v)
}

// ExtractFirstNumber returns the first numeric token of a free-text field
// ("9.5:1" -> 9.5, "3,37,000" -> 337000) or Missing when there is none.
func ExtractFirstNumber(v interface{}) float64 {
	runs := numericRuns(v)
	if len(runs) == 0 {
		return Missing
	}
	return runs[0]
}

// ParsePairedDimensions splits a compound "A x B" field ("78 x 67.8") into its first
// two numeric tokens. Fewer than two tokens yields (Missing, Missing).
func ParsePairedDimensions(v interface{}) (float64, float64) {
	runs := numericRuns(v)
	if len(runs) < 2 {
		return Missing, Missing
	}
	return runs[0], runs[1]
}

// ExtractPower keeps the leading number of a power string; units and rpm are dropped.
func ExtractPower(v interface{}) float64 {
	return ExtractFirstNumber(v)
}

// ExtractTorque keeps the leading number of a torque string.
func ExtractTorque(v interface{}) float64 {
	return ExtractFirstNumber(v)
}

// BinaryEncode maps boolean-like tokens to 1 or 0. Unknown tokens map to 0, so 0
// does not mean "explicitly false".
func BinaryEncode(v interface{}) int {
	token := strings.ToLower(strings.TrimSpace(valueText(v)))
	if truthyTokens[token] {
		return 1
	}
	if falsyTokens[token] {
		return 0
	}
	return 0
}

// coerceNumeric converts a pass-through cell to a number; anything that is not a
// clean number becomes Missing.
func coerceNumeric(v interface{}) float64 {
	switch t := v.(type) {
	case nil:
		return Missing
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case bool:
		if t {
			return 1
		}
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(valueText(v)), 64)
	if err != nil || math.IsInf(f, 0) {
		return Missing
	}
	return f
}
