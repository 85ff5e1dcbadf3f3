package activity

import (
	"math"
	"testing"

	apperrors "github.com/ZanzyTHEbar/similar-dev-search/internal/errors"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/similarity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	doc := `{
		"zoe@example.com": {
			"api": {"languages": {"Go": 12}, "variables": {"ctx": 30, "err": 41}},
			"web": {"languages": {"TypeScript": 4}, "variables": {}}
		},
		"adam@example.com": {},
		"mia@example.com": {
			"tool": {"languages": {"Python": 2}, "variables": {"Python": 1}}
		}
	}`

	act, err := Decode([]byte(doc))
	require.NoError(t, err)
	require.Len(t, act, 3)

	assert.Equal(t, "zoe@example.com", act[0].ID)
	assert.Equal(t, "adam@example.com", act[1].ID)
	assert.Equal(t, "mia@example.com", act[2].ID)

	require.Len(t, act[0].Repositories, 2)
	assert.Equal(t, "api", act[0].Repositories[0].Name)
	assert.Equal(t, map[string]int{"Go": 12}, act[0].Repositories[0].Languages)
	assert.Equal(t, map[string]int{"ctx": 30, "err": 41}, act[0].Repositories[0].Variables)

	web := act[0].Repositories[1]
	assert.NotNil(t, web.Variables, "present but empty category must stay non-nil")
	assert.Empty(t, web.Variables)

	assert.Empty(t, act[1].Repositories)
}

func TestDecode_FeedsRanking(t *testing.T) {
	doc := `{
		"a": {"r1": {"languages": {"py": 5}, "variables": {}}},
		"b": {"r1": {"languages": {"py": 5}, "variables": {}}},
		"c": {"r1": {"languages": {"js": 5}, "variables": {}}}
	}`

	act, err := Decode([]byte(doc))
	require.NoError(t, err)

	result, err := similarity.FindSimilarDevelopers("a", act)
	require.NoError(t, err)
	assert.Equal(t, similarity.Result{{Developer: "b", Score: 1}, {Developer: "c", Score: 0}}, result)
}

func TestDecode_EmptyDocument(t *testing.T) {
	act, err := Decode([]byte(`{}`))
	require.NoError(t, err)
	assert.NotNil(t, act)
	assert.Empty(t, act)
}

func TestDecode_InputShapeErrors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		contains string
	}{
		{"invalid json", `{"a":`, "not valid JSON"},
		{"root not object", `[1,2]`, "must be a JSON object"},
		{"developer not object", `{"a": 3}`, "object of repositories"},
		{"repository not object", `{"a": {"r": []}}`, "repository signal must be an object"},
		{"missing languages", `{"a": {"r": {"variables": {}}}}`, `field "languages"`},
		{"missing variables", `{"a": {"r": {"languages": {}}}}`, `field "variables"`},
		{"null category", `{"a": {"r": {"languages": null, "variables": {}}}}`, "object of counts"},
		{"negative count", `{"a": {"r": {"languages": {"go": -2}, "variables": {}}}}`, "non-negative integer"},
		{"fractional count", `{"a": {"r": {"languages": {"go": 1.5}, "variables": {}}}}`, "non-negative integer"},
		{"string count", `{"a": {"r": {"languages": {"go": "3"}, "variables": {}}}}`, "non-negative integer"},
		{"count beyond int64", `{"a": {"r": {"languages": {"go": 10000000000000000000}, "variables": {}}}}`, "exceeds the maximum"},
		{"exponent count beyond int64", `{"a": {"r": {"languages": {"go": 1e19}, "variables": {}}}}`, "exceeds the maximum"},
		{"repeated key overflows", `{"a": {"r": {"languages": {"go": 9223372036854775807, "go": 1}, "variables": {}}}}`, "exceeds the maximum"},
		{"duplicate developer", `{"a": {}, "a": {}}`, "duplicate developer"},
		{"duplicate repository", `{"a": {"r": {"languages": {}, "variables": {}}, "r": {"languages": {}, "variables": {}}}}`, "duplicate repository"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act, err := Decode([]byte(tt.doc))
			assert.Nil(t, act)
			require.Error(t, err)
			assert.True(t, apperrors.IsInputShape(err), "expected input shape error, got %v", err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestDecode_LargeCounts(t *testing.T) {
	act, err := Decode([]byte(`{"a": {"r": {"languages": {"go": 9223372036854775807, "c": 1e3}, "variables": {}}}}`))
	require.NoError(t, err)
	require.Len(t, act, 1)

	languages := act[0].Repositories[0].Languages
	assert.Equal(t, math.MaxInt64, languages["go"])
	assert.Equal(t, 1000, languages["c"])
}

func TestDecodeRequest(t *testing.T) {
	body := `{"query": "a", "activity": {"a": {}, "b": {"r": {"languages": {"go": 1}, "variables": {}}}}}`

	req, err := DecodeRequest([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "a", req.Query)
	require.Len(t, req.Activity, 2)
	assert.Equal(t, "b", req.Activity[1].ID)
}

func TestDecodeRequest_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		category apperrors.ErrorCategory
	}{
		{"invalid json", `nope`, apperrors.CategoryValidation},
		{"not an object", `"a"`, apperrors.CategoryValidation},
		{"missing query", `{"activity": {}}`, apperrors.CategoryValidation},
		{"empty query", `{"query": "", "activity": {}}`, apperrors.CategoryValidation},
		{"numeric query", `{"query": 4, "activity": {}}`, apperrors.CategoryValidation},
		{"missing activity", `{"query": "a"}`, apperrors.CategoryValidation},
		{"malformed activity", `{"query": "a", "activity": {"a": {"r": {}}}}`, apperrors.CategoryInputShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeRequest([]byte(tt.body))
			assert.Nil(t, req)
			assert.True(t, apperrors.IsCategory(err, tt.category), "got %v", err)
		})
	}
}
