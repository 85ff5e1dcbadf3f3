package similarity

import "sort"

// FeatureMatrix is the dense developer x feature matrix. Rows follow input
// order; columns are the sorted union of every observed feature name.
type FeatureMatrix struct {
	columns []string
	ids     []string
	rows    [][]float64
	index   map[string]int
}

// BuildMatrix projects every developer's sparse vector onto the global feature
// space in two passes: first collect the column union, then fill the rows,
// leaving 0 for features a developer never exhibited.
func BuildMatrix(features *Features) *FeatureMatrix {
	seen := make(map[string]struct{})
	for _, id := range features.ids {
		for name := range features.vectors[id] {
			seen[name] = struct{}{}
		}
	}

	columns := make([]string, 0, len(seen))
	for name := range seen {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	colIndex := make(map[string]int, len(columns))
	for i, name := range columns {
		colIndex[name] = i
	}

	m := &FeatureMatrix{
		columns: columns,
		ids:     make([]string, len(features.ids)),
		rows:    make([][]float64, len(features.ids)),
		index:   make(map[string]int, len(features.ids)),
	}
	for i, id := range features.ids {
		row := make([]float64, len(columns))
		for name, n := range features.vectors[id] {
			row[colIndex[name]] = float64(n)
		}
		m.ids[i] = id
		m.rows[i] = row
		m.index[id] = i
	}

	return m
}

// Columns returns the feature names in column order.
func (m *FeatureMatrix) Columns() []string {
	return append([]string(nil), m.columns...)
}

// IDs returns the developer identifiers in row order.
func (m *FeatureMatrix) IDs() []string {
	return append([]string(nil), m.ids...)
}

// Row returns the row for a developer.
func (m *FeatureMatrix) Row(id string) ([]float64, bool) {
	i, ok := m.index[id]
	if !ok {
		return nil, false
	}
	return m.rows[i], true
}

// Len returns the number of rows.
func (m *FeatureMatrix) Len() int {
	return len(m.rows)
}
