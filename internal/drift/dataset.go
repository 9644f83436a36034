// Package drift implements statistical data drift detection between a
// reference dataset and newly observed data, plus model performance drift
// monitoring. Results feed the alerting and retraining layers.
package drift

import (
	"sort"
	"strconv"
)

// ColumnType tags a column as numerical or categorical. The type is resolved
// once when the column is added, never re-inspected per test run.
type ColumnType int

const (
	Numerical ColumnType = iota
	Categorical
)

func (t ColumnType) String() string {
	if t == Categorical {
		return "categorical"
	}
	return "numerical"
}

// Column is a single named feature column. Exactly one of Floats or Labels is
// populated depending on Type.
type Column struct {
	Name   string
	Type   ColumnType
	Floats []float64
	Labels []string
}

// labels returns the column as categorical values, stringifying numeric
// columns so they can participate in a categorical comparison.
func (c Column) labels() []string {
	if c.Type == Categorical {
		return c.Labels
	}
	out := make([]string, len(c.Floats))
	for i, v := range c.Floats {
		out[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return out
}

// Dataset is an immutable named collection of feature columns. Columns are
// copied in on construction and never mutated afterwards.
type Dataset struct {
	name    string
	columns map[string]Column
	rows    int
}

// NewDataset returns an empty dataset with the given name.
func NewDataset(name string) *Dataset {
	return &Dataset{name: name, columns: make(map[string]Column)}
}

// AddNumericColumn copies values in as a numerical column.
func (d *Dataset) AddNumericColumn(name string, values []float64) *Dataset {
	d.columns[name] = Column{
		Name:   name,
		Type:   Numerical,
		Floats: append([]float64(nil), values...),
	}
	if len(values) > d.rows {
		d.rows = len(values)
	}
	return d
}

// AddCategoricalColumn copies values in as a categorical column.
func (d *Dataset) AddCategoricalColumn(name string, values []string) *Dataset {
	d.columns[name] = Column{
		Name:   name,
		Type:   Categorical,
		Labels: append([]string(nil), values...),
	}
	if len(values) > d.rows {
		d.rows = len(values)
	}
	return d
}

// Name returns the dataset name used in reports.
func (d *Dataset) Name() string { return d.name }

// Rows returns the number of rows in the longest column.
func (d *Dataset) Rows() int { return d.rows }

// Column looks up a column by feature name.
func (d *Dataset) Column(name string) (Column, bool) {
	c, ok := d.columns[name]
	return c, ok
}

// HasFeature reports whether a column with the given name exists.
func (d *Dataset) HasFeature(name string) bool {
	_, ok := d.columns[name]
	return ok
}

// FeatureNames returns the column names in sorted order.
func (d *Dataset) FeatureNames() []string {
	names := make([]string, 0, len(d.columns))
	for name := range d.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DatasetFromMatrix builds a dataset of numerical columns from a row-major
// feature matrix. Column j of every row maps to featureNames[j].
func DatasetFromMatrix(name string, featureNames []string, X [][]float64) *Dataset {
	d := NewDataset(name)
	for j, feature := range featureNames {
		col := make([]float64, 0, len(X))
		for _, row := range X {
			if j < len(row) {
				col = append(col, row[j])
			}
		}
		d.AddNumericColumn(feature, col)
	}
	return d
}
