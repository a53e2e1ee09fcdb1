package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/motospec/backend/internal/domain"
	"github.com/motospec/backend/internal/usecase"
)

// printer renders command results as text or JSON.
type printer struct {
	out      io.Writer
	jsonMode bool
	noColor  bool
}

func newPrinter(out io.Writer, jsonMode, noColor bool) *printer {
	return &printer{out: out, jsonMode: jsonMode, noColor: noColor}
}

func (p *printer) encode(v interface{}) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) colorf(attr color.Attribute, format string, args ...interface{}) {
	if p.noColor || color.NoColor {
		fmt.Fprintf(p.out, format, args...)
		return
	}
	color.New(attr).Fprintf(p.out, format, args...)
}

// Result prints a ranking. A not-found result lists the suggested names instead.
func (p *printer) Result(result *domain.SimilarityResult) error {
	if p.jsonMode {
		return p.encode(result)
	}

	if !result.Found {
		p.colorf(color.FgYellow, "⚠ %q is not in the catalog\n", result.Reference)
		if len(result.Suggestions) > 0 {
			fmt.Fprintf(p.out, "Did you mean: %s\n", strings.Join(result.Suggestions, ", "))
		}
		return nil
	}

	header := fmt.Sprintf("Models similar to %s", result.Reference)
	if result.Snapping {
		header += " (near-equal snapping)"
	}
	p.colorf(color.Bold, "%s\n", header)

	if len(result.Matches) == 0 {
		fmt.Fprintln(p.out, "  no other models in the catalog")
		return nil
	}

	width := 0
	for _, m := range result.Matches {
		if len(m.Model) > width {
			width = len(m.Model)
		}
	}
	for i, m := range result.Matches {
		fmt.Fprintf(p.out, "%3d. %-*s  ", i+1, width, m.Model)
		p.colorf(percentColor(m.Percent), "%6.2f%%\n", m.Percent)
	}
	return nil
}

// Matrix prints the pairwise similarity matrix with one row per model.
func (p *printer) Matrix(models []string, matrix [][]float64) error {
	if p.jsonMode {
		return p.encode(map[string]interface{}{"models": models, "matrix": matrix})
	}
	if len(models) == 0 {
		fmt.Fprintln(p.out, "catalog is empty")
		return nil
	}

	width := 0
	for _, m := range models {
		if len(m) > width {
			width = len(m)
		}
	}
	fmt.Fprintf(p.out, "%-*s", width, "")
	for j := range models {
		fmt.Fprintf(p.out, " %6d", j+1)
	}
	fmt.Fprintln(p.out)
	for i, row := range matrix {
		fmt.Fprintf(p.out, "%-*s", width, models[i])
		for _, v := range row {
			fmt.Fprintf(p.out, " %6.3f", v)
		}
		fmt.Fprintln(p.out)
	}
	return nil
}

// Appended confirms a catalog append.
func (p *printer) Appended(model string) error {
	if p.jsonMode {
		return p.encode(map[string]string{"status": "appended", "model": model})
	}
	p.colorf(color.FgGreen, "✓ %s appended to catalog\n", model)
	return nil
}

func percentColor(pct float64) color.Attribute {
	switch {
	case pct >= 90:
		return color.FgGreen
	case pct >= 70:
		return color.FgYellow
	default:
		return color.FgRed
	}
}

// readRecordFile decodes one JSON object from path, or from stdin when path is "-".
func readRecordFile(path string) (domain.Record, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	var record domain.Record
	if err := json.Unmarshal(b, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: record must be a JSON object", domain.ErrInvalidRecord)
	}
	return record, nil
}

func writeTableFile(path string, table *usecase.ComparisonTable) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := table.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
