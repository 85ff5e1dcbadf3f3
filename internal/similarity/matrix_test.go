package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMatrix(t *testing.T) {
	activity := Activity{
		{ID: "a", Repositories: []RepositorySignal{signal("r", map[string]int{"py": 5}, map[string]int{"x": 1})}},
		{ID: "b", Repositories: []RepositorySignal{signal("r", map[string]int{"js": 2}, map[string]int{})}},
		{ID: "idle"},
	}

	features, err := Aggregate(activity)
	require.NoError(t, err)

	m := BuildMatrix(features)

	assert.Equal(t, []string{"js", "py", "x"}, m.Columns())
	assert.Equal(t, []string{"a", "b", "idle"}, m.IDs())
	assert.Equal(t, 3, m.Len())

	tests := []struct {
		id  string
		row []float64
	}{
		{"a", []float64{0, 5, 1}},
		{"b", []float64{2, 0, 0}},
		{"idle", []float64{0, 0, 0}},
	}
	for _, tt := range tests {
		row, ok := m.Row(tt.id)
		require.True(t, ok)
		assert.Equal(t, tt.row, row, "row for %s", tt.id)
	}

	_, ok := m.Row("ghost")
	assert.False(t, ok)
}

func TestBuildMatrix_EmptyPopulation(t *testing.T) {
	features, err := Aggregate(Activity{})
	require.NoError(t, err)

	m := BuildMatrix(features)
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Columns())
}

func TestBuildMatrix_ColumnsAreReproducible(t *testing.T) {
	activity := Activity{
		{ID: "a", Repositories: []RepositorySignal{signal("r", map[string]int{"z": 1, "m": 1, "a": 1, "q": 1}, map[string]int{"k": 1})}},
	}

	first := BuildMatrix(mustAggregate(t, activity)).Columns()
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, BuildMatrix(mustAggregate(t, activity)).Columns())
	}
}

func mustAggregate(t *testing.T, activity Activity) *Features {
	t.Helper()
	features, err := Aggregate(activity)
	require.NoError(t, err)
	return features
}
