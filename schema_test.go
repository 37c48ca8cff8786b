package tex2typst

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsSchema(t *testing.T) {
	data, err := OptionsSchema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "properties")

	text := string(data)
	for _, name := range []string{"fracToSlash", "customTexMacros", "inftyToOo", "blockMathMode"} {
		assert.Contains(t, text, name)
	}
}
