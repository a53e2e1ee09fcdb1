package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// FieldModels is the display-name column that identifies a record.
const FieldModels = "Models"

// Record is one vehicle specification: field name -> scalar (string, float64, int,
// bool) or []string / []interface{} for list-valued fields such as prices and colors.
// A nil or absent value means the field is missing.
type Record map[string]interface{}

// Name returns the record's Models value, trimmed.
func (r Record) Name() string {
	return strings.TrimSpace(r.Text(FieldModels))
}

// Text renders a field as a string. Missing values render as "".
// Lists are JSON-encoded, matching their persisted form.
func (r Record) Text(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	return FormatValue(v)
}

// Has reports whether the field is present with a non-nil value.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// Fields returns the record's field names in sorted order.
func (r Record) Fields() []string {
	fields := make([]string, 0, len(r))
	for k := range r {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// Flatten returns a copy of the record with every list value serialized to a JSON
// string, the form the catalog persists.
func (r Record) Flatten() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if IsList(v) {
			b, err := json.Marshal(v)
			if err == nil {
				out[k] = string(b)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IsList reports whether v is a list-valued field.
func IsList(v interface{}) bool {
	switch v.(type) {
	case []string, []interface{}:
		return true
	}
	return false
}

// FormatValue renders a cell value as text.
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if math.IsNaN(t) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case []string, []interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// Catalog is a snapshot of the catalog store: its column header (the schema) and
// rows in storage order.
type Catalog struct {
	Columns []string
	Rows    []Record
}

// HasColumn reports whether the column is part of the catalog schema.
func (c *Catalog) HasColumn(name string) bool {
	for _, col := range c.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// Find returns the first row whose Models equals name, or nil.
func (c *Catalog) Find(name string) Record {
	for _, row := range c.Rows {
		if row.Name() == name {
			return row
		}
	}
	return nil
}

// Append adds a row and extends the header with any new columns in sorted order.
func (c *Catalog) Append(r Record) {
	known := make(map[string]bool, len(c.Columns))
	for _, col := range c.Columns {
		known[col] = true
	}
	for _, f := range r.Fields() {
		if !known[f] {
			c.Columns = append(c.Columns, f)
			known[f] = true
		}
	}
	c.Rows = append(c.Rows, r)
}
