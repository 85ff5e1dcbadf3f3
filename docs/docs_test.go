package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestSwaggerDocIsRegistered(t *testing.T) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var swagger map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(doc), &swagger))

	info := swagger["info"].(map[string]interface{})
	assert.Equal(t, "Similar Developer Search API", info["title"])

	paths := swagger["paths"].(map[string]interface{})
	for _, p := range []string{"/similar", "/snapshots", "/snapshots/{id}", "/snapshots/{id}/similar/{developer}", "/health"} {
		assert.Contains(t, paths, p)
	}
}
