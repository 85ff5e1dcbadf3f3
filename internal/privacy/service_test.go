package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeData(t *testing.T) {
	a := NewAnonymizer("salt")

	first := a.AnonymizeData("192.0.2.10")
	assert.Len(t, first, digestLength)
	assert.Equal(t, first, a.AnonymizeData("192.0.2.10"))
	assert.NotEqual(t, first, a.AnonymizeData("192.0.2.11"))
	assert.NotContains(t, first, "192")

	assert.NotEqual(t, first, NewAnonymizer("other").AnonymizeData("192.0.2.10"))
	assert.Empty(t, a.AnonymizeData(""))
}
