package usecase

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/motospec/backend/internal/domain"
)

// ComparisonTable is a field-by-model table: one row per field, one column per model.
type ComparisonTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// BuildComparisonTable lays out the query record next to its matches. catalogRows
// supplies the stored record for each match, keyed by model name; a match without a
// stored record shows "NA" everywhere.
func BuildComparisonTable(query domain.Record, matches []domain.Match, catalogRows map[string]domain.Record) *ComparisonTable {
	records := make([]domain.Record, 0, len(matches)+1)
	records = append(records, query)

	headers := []string{"Field", fmt.Sprintf("%s (fetched online data)", query.Name())}
	for _, m := range matches {
		rec, ok := catalogRows[m.Model]
		if !ok {
			rec = domain.Record{}
		}
		records = append(records, rec)
		if math.IsNaN(m.Score) {
			headers = append(headers, fmt.Sprintf("%s (Similarity N/A)", m.Model))
			continue
		}
		headers = append(headers, fmt.Sprintf("%s (%.2f%% Similar)", m.Model, m.Percent))
	}

	table := &ComparisonTable{Headers: headers}
	for _, field := range orderedFields(records) {
		row := make([]string, 0, len(headers))
		row = append(row, field)
		for _, rec := range records {
			row = append(row, displayValue(rec[field]))
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// WriteCSV writes the table with its header line.
func (t *ComparisonTable) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// orderedFields is FieldOrder followed by fields outside it, sorted.
func orderedFields(records []domain.Record) []string {
	known := make(map[string]bool, len(domain.FieldOrder))
	for _, f := range domain.FieldOrder {
		known[f] = true
	}
	extraSet := make(map[string]bool)
	for _, rec := range records {
		for f := range rec {
			if !known[f] {
				extraSet[f] = true
			}
		}
	}
	extra := make([]string, 0, len(extraSet))
	for f := range extraSet {
		extra = append(extra, f)
	}
	sort.Strings(extra)

	out := make([]string, 0, len(domain.FieldOrder)+len(extra))
	out = append(out, domain.FieldOrder...)
	return append(out, extra...)
}

// displayValue renders a cell: missing -> "NA", lists joined with ", ".
func displayValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "NA"
	case float64:
		if math.IsNaN(t) {
			return "NA"
		}
	case []string:
		return strings.Join(t, ", ")
	case []interface{}:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = domain.FormatValue(item)
		}
		return strings.Join(parts, ", ")
	}
	return domain.FormatValue(v)
}
