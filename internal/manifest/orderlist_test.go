package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderList_ClassifiesPrefixes(t *testing.T) {
	input := "+Mod A\n-Mod B\n*=== CORE ===\n\n# a comment\n+Mod C\n"
	order, err := ParseOrderList(strings.NewReader(input))
	require.NoError(t, err)

	assert.True(t, order.Enabled["Mod A"])
	assert.True(t, order.Enabled["Mod C"])
	assert.True(t, order.Disabled["Mod B"])
	assert.Len(t, order.Entries, 4)
	assert.Equal(t, OrderEntry{Name: "=== CORE ===", Kind: SeparatorEntry}, order.Entries[2])
}

func TestParseOrderList_SeparatorOnlyManifest(t *testing.T) {
	input := "*=== CORE ===\n*=== UI ===\n"
	order, err := ParseOrderList(strings.NewReader(input))
	require.NoError(t, err)

	assert.Empty(t, order.Enabled)
	assert.Empty(t, order.Disabled)
	require.Len(t, order.Entries, 2)
	assert.Equal(t, "=== CORE ===", order.Entries[0].Name)
	assert.Equal(t, "=== UI ===", order.Entries[1].Name)
}

func TestParseOrderList_IgnoresBlankAndCommentLines(t *testing.T) {
	input := "\n# nothing here\n\n+OnlyOne\n"
	order, err := ParseOrderList(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, order.Entries, 1)
}
