package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/motospec/backend/internal/domain"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// NumericFeature is one numeric axis of the feature vector. Extract turns the raw
// Source cell into a number or Missing.
type NumericFeature struct {
	Name    string
	Source  string
	Extract func(v interface{}) float64
}

// CategoricalFeature is one label-encoded axis of the feature vector.
type CategoricalFeature struct {
	Name string
}

// FeatureSpec fixes the axis order shared by catalog rows and query rows.
type FeatureSpec struct {
	Numeric     []NumericFeature
	Categorical []CategoricalFeature
}

// DefaultFeatureSpec is the motorcycle reference configuration:
// 12 numeric and 10 categorical features.
func DefaultFeatureSpec() FeatureSpec {
	bore := func(v interface{}) float64 { b, _ := ParsePairedDimensions(v); return b }
	stroke := func(v interface{}) float64 { _, s := ParsePairedDimensions(v); return s }

	return FeatureSpec{
		Numeric: []NumericFeature{
			{Name: "Displacement (cc)", Source: "Displacement (cc)", Extract: coerceNumeric},
			{Name: "Compression Ratio", Source: "Compression Ratio", Extract: ExtractFirstNumber},
			{Name: "Power (PS)", Source: "Maximum Power", Extract: ExtractPower},
			{Name: "Torque (Nm)", Source: "Maximum Torque", Extract: ExtractTorque},
			{Name: "Bore (mm)", Source: "Bore X Stroke (mm)", Extract: bore},
			{Name: "Stroke (mm)", Source: "Bore X Stroke (mm)", Extract: stroke},
			{Name: "Kerb Weight (kg)", Source: "Kerb Weight (kg)", Extract: coerceNumeric},
			{Name: "Fuel Tank Capacity (L)", Source: "Fuel Tank Capacity (L)", Extract: coerceNumeric},
			{Name: "Wheelbase (mm)", Source: "Wheelbase (mm)", Extract: coerceNumeric},
			{Name: "Seat Height (mm)", Source: "Seat Height (mm)", Extract: coerceNumeric},
			{Name: "Front Brake Size (mm)", Source: "Front Brake Size", Extract: ExtractFirstNumber},
			{Name: "Rear Brake Size (mm)", Source: "Rear Brake Size", Extract: ExtractFirstNumber},
		},
		Categorical: []CategoricalFeature{
			{Name: "Engine Layout"},
			{Name: "Gear Box"},
			{Name: "Final Drive"},
			{Name: "Front Suspension"},
			{Name: "Rear Suspension"},
			{Name: "ABS"},
			{Name: "Seat Type"},
			{Name: "Wheels"},
			{Name: "Headlamp"},
			{Name: "Instrument Display"},
		},
	}
}

// RequiredColumns lists the catalog columns the feature spec reads, in first-use order.
func (s FeatureSpec) RequiredColumns() []string {
	seen := map[string]bool{domain.FieldModels: true}
	cols := []string{domain.FieldModels}
	for _, f := range s.Numeric {
		if !seen[f.Source] {
			seen[f.Source] = true
			cols = append(cols, f.Source)
		}
	}
	for _, f := range s.Categorical {
		if !seen[f.Name] {
			seen[f.Name] = true
			cols = append(cols, f.Name)
		}
	}
	return cols
}

// Dim is the length of the concatenated [numeric | categorical] vector.
func (s FeatureSpec) Dim() int {
	return len(s.Numeric) + len(s.Categorical)
}

// LabelEncoder maps each distinct string of one column to a small integer.
// Classes are sorted, so the mapping only depends on the set of observed values.
type LabelEncoder struct {
	Classes []string
	index   map[string]int
}

func fitLabelEncoder(values []string) *LabelEncoder {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	classes := make([]string, 0, len(set))
	for v := range set {
		classes = append(classes, v)
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &LabelEncoder{Classes: classes, index: index}
}

// Encode returns the id of value, or -1 if it was not observed during the build.
func (e *LabelEncoder) Encode(value string) int {
	id, ok := e.index[value]
	if !ok {
		return -1
	}
	return id
}

// Decode returns the string for id.
func (e *LabelEncoder) Decode(id int) (string, bool) {
	if id < 0 || id >= len(e.Classes) {
		return "", false
	}
	return e.Classes[id], true
}

// FeatureMatrix holds the row-aligned feature matrices of one build. Row i is
// catalog row i; a query row, when present, is last.
type FeatureMatrix struct {
	Spec   FeatureSpec
	Models []string

	// Raw holds extracted values before imputation; Missing marks absent cells.
	Raw *mat.Dense
	// Imputed is Raw with missing cells replaced by the column mean.
	Imputed *mat.Dense
	// Scaled is Imputed standardized to zero mean and unit variance.
	Scaled *mat.Dense

	Cat      [][]int
	Encoders []*LabelEncoder

	Means   []float64
	StdDevs []float64
}

// Len returns the number of rows in the build.
func (m *FeatureMatrix) Len() int {
	return len(m.Models)
}

// IndexOf returns the first row whose model name equals name, or -1.
func (m *FeatureMatrix) IndexOf(name string) int {
	name = strings.TrimSpace(name)
	for i, model := range m.Models {
		if model == name {
			return i
		}
	}
	return -1
}

// Vector returns row i as the concatenated [scaled numeric | categorical] vector.
func (m *FeatureMatrix) Vector(i int) []float64 {
	return m.vectorWith(i, mat.Row(nil, i, m.Scaled))
}

func (m *FeatureMatrix) vectorWith(i int, numeric []float64) []float64 {
	vec := make([]float64, 0, m.Spec.Dim())
	vec = append(vec, numeric...)
	for _, code := range m.Cat[i] {
		vec = append(vec, float64(code))
	}
	return vec
}

// BuildFeatureMatrix builds imputed, standardized and label-encoded features for the
// catalog rows plus an optional query row. Imputation and scaling statistics come
// from exactly this row set; nothing is shared between builds.
func BuildFeatureMatrix(catalog *domain.Catalog, query domain.Record, spec FeatureSpec) (*FeatureMatrix, error) {
	if len(spec.Numeric) == 0 {
		return nil, fmt.Errorf("%w: feature spec has no numeric features", domain.ErrInvalidRequest)
	}
	if catalog == nil {
		catalog = &domain.Catalog{}
	}
	if err := checkSchema(catalog, spec); err != nil {
		return nil, err
	}

	rows := catalog.Rows
	if query != nil {
		rows = make([]domain.Record, 0, len(catalog.Rows)+1)
		rows = append(rows, catalog.Rows...)
		rows = append(rows, query)
	}

	fm := &FeatureMatrix{Spec: spec, Models: make([]string, len(rows))}
	for i, row := range rows {
		fm.Models[i] = row.Name()
	}
	if len(rows) == 0 {
		return fm, nil
	}

	n, p := len(rows), len(spec.Numeric)
	fm.Raw = mat.NewDense(n, p, nil)
	for i, row := range rows {
		for j, f := range spec.Numeric {
			fm.Raw.Set(i, j, f.Extract(row[f.Source]))
		}
	}

	fm.Imputed = mat.DenseCopyOf(fm.Raw)
	fm.Scaled = mat.NewDense(n, p, nil)
	fm.Means = make([]float64, p)
	fm.StdDevs = make([]float64, p)
	for j := 0; j < p; j++ {
		col := mat.Col(nil, j, fm.Imputed)
		fill := presentMean(col)
		for i, v := range col {
			if IsMissing(v) {
				col[i] = fill
			}
		}
		fm.Imputed.SetCol(j, col)

		mean, std := stat.PopMeanStdDev(col, nil)
		fm.Means[j], fm.StdDevs[j] = mean, std
		for i, v := range col {
			if std == 0 {
				fm.Scaled.Set(i, j, 0)
				continue
			}
			fm.Scaled.Set(i, j, (v-mean)/std)
		}
	}

	fm.Cat = make([][]int, n)
	for i := range fm.Cat {
		fm.Cat[i] = make([]int, len(spec.Categorical))
	}
	fm.Encoders = make([]*LabelEncoder, len(spec.Categorical))
	for j, f := range spec.Categorical {
		values := make([]string, n)
		for i, row := range rows {
			values[i] = row.Text(f.Name)
		}
		enc := fitLabelEncoder(values)
		for i, v := range values {
			fm.Cat[i][j] = enc.Encode(v)
		}
		fm.Encoders[j] = enc
	}

	return fm, nil
}

// presentMean is the mean of the non-missing values; an all-missing column imputes to 0.
func presentMean(col []float64) float64 {
	present := make([]float64, 0, len(col))
	for _, v := range col {
		if !IsMissing(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return 0
	}
	return stat.Mean(present, nil)
}

// checkSchema fails when the catalog header lacks a configured source column. This
// is a configuration error, distinct from per-row missing values.
func checkSchema(catalog *domain.Catalog, spec FeatureSpec) error {
	var missing []string
	for _, col := range spec.RequiredColumns() {
		if !catalog.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrSchemaMismatch, strings.Join(missing, ", "))
	}
	return nil
}
