package similarity

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	apperrors "github.com/ZanzyTHEbar/similar-dev-search/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func languagesOnly(id string, languages map[string]int) Developer {
	return Developer{ID: id, Repositories: []RepositorySignal{signal("r1", languages, map[string]int{})}}
}

func TestFindSimilarDevelopers_ConcreteScenario(t *testing.T) {
	activity := Activity{
		languagesOnly("a", map[string]int{"py": 5}),
		languagesOnly("b", map[string]int{"py": 5}),
		languagesOnly("c", map[string]int{"js": 5}),
	}

	result, err := FindSimilarDevelopers("a", activity)
	require.NoError(t, err)

	assert.Equal(t, Result{{Developer: "b", Score: 1.0}, {Developer: "c", Score: 0.0}}, result)

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"c":0}`, string(encoded))
}

func TestFindSimilarDevelopers_Properties(t *testing.T) {
	activity := Activity{
		languagesOnly("q", map[string]int{"go": 3, "rust": 1}),
		languagesOnly("d1", map[string]int{"go": 1}),
		languagesOnly("d2", map[string]int{"rust": 4, "go": 1}),
		{ID: "idle"},
		languagesOnly("d3", map[string]int{"go": 6, "rust": 2}),
		languagesOnly("d4", map[string]int{"java": 9}),
	}

	result, err := FindSimilarDevelopers("q", activity)
	require.NoError(t, err)

	t.Run("excludes the query developer", func(t *testing.T) {
		_, found := result.Score("q")
		assert.False(t, found)
	})

	t.Run("bounded size", func(t *testing.T) {
		assert.Len(t, result, len(activity)-1)
	})

	t.Run("scores in range and descending", func(t *testing.T) {
		for i, m := range result {
			assert.GreaterOrEqual(t, m.Score, 0.0)
			assert.LessOrEqual(t, m.Score, 1.0)
			if i > 0 {
				assert.GreaterOrEqual(t, result[i-1].Score, m.Score)
			}
		}
	})

	t.Run("identical direction ranks first", func(t *testing.T) {
		assert.Equal(t, "d3", result[0].Developer)
		assert.InDelta(t, 1.0, result[0].Score, 1e-12)
	})

	t.Run("zero vector scores zero", func(t *testing.T) {
		score, found := result.Score("idle")
		require.True(t, found)
		assert.Equal(t, 0.0, score)
	})

	t.Run("deterministic", func(t *testing.T) {
		first, err := json.Marshal(result)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, err := FindSimilarDevelopers("q", activity)
			require.NoError(t, err)
			encoded, err := json.Marshal(again)
			require.NoError(t, err)
			assert.Equal(t, string(first), string(encoded))
		}
	})
}

func TestFindSimilarDevelopers_ZeroQuery(t *testing.T) {
	activity := Activity{
		{ID: "q", Repositories: []RepositorySignal{signal("r", map[string]int{}, map[string]int{})}},
		languagesOnly("a", map[string]int{"go": 1}),
		languagesOnly("b", map[string]int{"py": 2}),
	}

	result, err := FindSimilarDevelopers("q", activity)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, result.Developers())
	for _, m := range result {
		assert.Equal(t, 0.0, m.Score)
	}
}

func TestFindSimilarDevelopers_TopKTruncation(t *testing.T) {
	activity := Activity{languagesOnly("q", map[string]int{"a": 1})}
	for i := 0; i < 20; i++ {
		activity = append(activity, languagesOnly(fmt.Sprintf("dev%02d", i), map[string]int{"a": i + 1, "b": 20}))
	}

	result, err := FindSimilarDevelopers("q", activity)
	require.NoError(t, err)
	require.Len(t, result, SimilarDevelopersNumber)

	expected := make([]string, 0, SimilarDevelopersNumber)
	for i := 19; i >= 5; i-- {
		expected = append(expected, fmt.Sprintf("dev%02d", i))
	}
	assert.Equal(t, expected, result.Developers())
}

func TestFindSimilarDevelopers_StableTies(t *testing.T) {
	activity := Activity{
		languagesOnly("tie-late", map[string]int{"go": 2}),
		languagesOnly("q", map[string]int{"go": 1}),
		languagesOnly("other", map[string]int{"py": 1}),
		languagesOnly("tie-early", map[string]int{"go": 7}),
		{ID: "zero-1"},
		{ID: "zero-2"},
	}

	result, err := FindSimilarDevelopers("q", activity)
	require.NoError(t, err)

	assert.Equal(t, []string{"tie-late", "tie-early", "other", "zero-1", "zero-2"}, result.Developers())
}

func TestFindSimilarDevelopers_OnlyQueryDeveloper(t *testing.T) {
	activity := Activity{languagesOnly("q", map[string]int{"go": 1})}

	result, err := FindSimilarDevelopers("q", activity)
	require.NoError(t, err)
	assert.Empty(t, result)

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(encoded))
}

func TestFindSimilarDevelopers_Errors(t *testing.T) {
	t.Run("unknown query developer", func(t *testing.T) {
		activity := Activity{languagesOnly("a", map[string]int{"go": 1})}

		result, err := FindSimilarDevelopers("ghost", activity)
		assert.Nil(t, result)
		assert.True(t, apperrors.IsDeveloperNotFound(err))
	})

	t.Run("empty population", func(t *testing.T) {
		_, err := FindSimilarDevelopers("ghost", Activity{})
		assert.True(t, apperrors.IsDeveloperNotFound(err))
	})

	t.Run("count overflow is rejected instead of scored", func(t *testing.T) {
		activity := Activity{
			languagesOnly("q", map[string]int{"go": 1}),
			{ID: "d", Repositories: []RepositorySignal{
				signal("r", map[string]int{"go": math.MaxInt}, map[string]int{"go": 1}),
			}},
		}

		result, err := FindSimilarDevelopers("q", activity)
		assert.Nil(t, result)
		require.Error(t, err)
		assert.True(t, apperrors.IsInputShape(err))
		assert.Contains(t, err.Error(), "count overflow for feature go")
	})

	t.Run("malformed signal wins over unknown query", func(t *testing.T) {
		activity := Activity{
			{ID: "a", Repositories: []RepositorySignal{{Name: "r", Languages: map[string]int{}}}},
		}

		_, err := FindSimilarDevelopers("ghost", activity)
		assert.True(t, apperrors.IsInputShape(err))
	})
}

func TestResult_MarshalJSONKeepsRankOrder(t *testing.T) {
	result := Result{
		{Developer: "zed@example.com", Score: 0.9},
		{Developer: "amy@example.com", Score: 0.5},
		{Developer: `quote"d`, Score: 0.25},
	}

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Equal(t, `{"zed@example.com":0.9,"amy@example.com":0.5,"quote\"d":0.25}`, string(encoded))
}

func BenchmarkFindSimilarDevelopers(b *testing.B) {
	activity := make(Activity, 0, 500)
	for i := 0; i < 500; i++ {
		languages := map[string]int{fmt.Sprintf("lang%d", i%12): i + 1, "go": i % 7}
		variables := map[string]int{fmt.Sprintf("var%d", i%40): 3, "ctx": i % 5}
		activity = append(activity, Developer{
			ID:           fmt.Sprintf("dev%d@example.com", i),
			Repositories: []RepositorySignal{signal("r", languages, variables)},
		})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := FindSimilarDevelopers("dev0@example.com", activity); err != nil {
			b.Fatal(err)
		}
	}
}
