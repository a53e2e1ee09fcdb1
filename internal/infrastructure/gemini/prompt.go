package gemini

import (
	"fmt"
	"strings"

	"github.com/motospec/backend/internal/domain"
)

// BuildPrompt asks for every catalog field as one JSON object.
func BuildPrompt(model, variant string) string {
	var sb strings.Builder
	sb.WriteString("Return the following motorcycle's full specification as a JSON object with all the following keys ")
	sb.WriteString("(even if some values are missing, keep the key with value as 'NA').\n")
	fmt.Fprintf(&sb, "Model: %s\nVariant: %s\n\n", model, variant)
	sb.WriteString("For 'Ex-Showroom Price INR', return a list of all available prices for all variants/colors, ")
	sb.WriteString(`e.g. ["Astral - 3,63,123", "Interstellar Grey - 3,79,123 (DT)", ...]. `)
	sb.WriteString("If only one price is available, return it as a single-item list.\n\n")
	fmt.Fprintf(&sb, "Keys: [%s]\n\n", strings.Join(domain.FieldOrder, ", "))
	sb.WriteString("Return only the JSON object, no explanation. If a value is a list, return as a JSON array.\n")
	return sb.String()
}
