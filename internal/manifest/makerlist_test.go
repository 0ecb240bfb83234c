package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMakerList_SeparatorLine(t *testing.T) {
	records, warnings, err := ParseMakerList(strings.NewReader("=== CORE ===\n"), nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, records, 1)
	assert.Equal(t, Separator{Name: "=== CORE ==="}, records[0])
}

func TestParseMakerList_FullInstallEnablesEveryDownloadable(t *testing.T) {
	line := "https://www.moddb.com/downloads/start/1\t0\t.zip\tMod A - Author\t\t\t\n"
	records, _, err := ParseMakerList(strings.NewReader(line), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0].(Downloadable)
	assert.True(t, rec.Enabled)
	assert.Equal(t, ModDbMirror, rec.Kind)
}

func TestParseMakerList_EnabledFlagFollowsOrderList(t *testing.T) {
	input := "https://www.moddb.com/downloads/start/1\t0\t.zip\tMod A\t\t\t\n" +
		"https://github.com/org/repo\t0\t.zip\tMod B\t\t\t\n"
	order := &OrderList{Enabled: map[string]bool{"Mod A": true}, Disabled: map[string]bool{"Mod B": true}}

	records, _, err := ParseMakerList(strings.NewReader(input), order)
	require.NoError(t, err)
	require.Len(t, records, 2)

	a := records[0].(Downloadable)
	b := records[1].(Downloadable)
	assert.True(t, a.Enabled)
	assert.False(t, b.Enabled)
	assert.Equal(t, CodeHostArchive, b.Kind)
}

func TestParseMakerList_DefaultsForMissingTrailingFields(t *testing.T) {
	records, warnings, err := ParseMakerList(strings.NewReader("https://www.moddb.com/downloads/start/2\n"), nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, records, 1)
	rec := records[0].(Downloadable)
	assert.Equal(t, "0", rec.Instructions)
	assert.Equal(t, "", rec.PatchSuffix)
	assert.Equal(t, "Unknown", rec.DisplayName)
}

func TestParseMakerList_UnclassifiableURLProducesWarningAndSkipsLine(t *testing.T) {
	input := "https://example.com/nope\t0\t.zip\tWeird Mod\n" +
		"https://www.moddb.com/downloads/start/3\t0\t.zip\tReal Mod\n"
	records, warnings, err := ParseMakerList(strings.NewReader(input), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Real Mod", records[0].(Downloadable).DisplayName)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "could not classify")
}

func TestParseMakerList_UnrecognisedTrailingFieldsWarnButDoNotFail(t *testing.T) {
	input := "https://www.moddb.com/downloads/start/4\t0\t.zip\tMod\t\t\t\tEXTRA\tMORE\n"
	records, warnings, err := ParseMakerList(strings.NewReader(input), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "trailing field")
}

func TestMakerList_ParseEmitParseRoundTrip(t *testing.T) {
	original := "=== CORE ===\n" +
		"https://www.moddb.com/downloads/start/1\taddon1:addon2\t.zip\tMod A\thttps://www.moddb.com/mods/a\tmoda.zip\tabc123\n" +
		"https://github.com/org/repo/releases/download/v1/file.zip\t0\t\tMod B\t\t\t\n"

	records1, _, err := ParseMakerList(strings.NewReader(original), nil)
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, EmitMakerList(&sb, records1))

	records2, _, err := ParseMakerList(strings.NewReader(sb.String()), nil)
	require.NoError(t, err)

	assert.Equal(t, records1, records2)
}
