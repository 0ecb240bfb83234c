package modinstall

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gammainstall/internal/manifest"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestInstall_FOMODStrategyIsPreferred(t *testing.T) {
	extracted := t.TempDir()
	writeFile(t, filepath.Join(extracted, "fomod", "ModuleConfig.xml"), `<config>
<installStep><optionalFileGroups><group><plugins><plugin><files>
<folder source="textures" destination="gamedata/textures"/>
<folder source="configs" destination="gamedata/configs"/>
</files></plugin></plugins></group></optionalFileGroups></installStep>
</config>`)
	writeFile(t, filepath.Join(extracted, "textures", "a.dds"), "tex")
	writeFile(t, filepath.Join(extracted, "configs", "b.ltx"), "cfg")

	modsRoot := t.TempDir()
	rec := manifest.Downloadable{DisplayName: "FOMOD Mod - Author", Instructions: "0"}

	strategy, err := Install(rec, extracted, modsRoot, nil)
	require.NoError(t, err)
	assert.Equal(t, StrategyFOMOD, strategy)
	assert.FileExists(t, filepath.Join(modsRoot, rec.DisplayName, "gamedata", "textures", "a.dds"))
	assert.FileExists(t, filepath.Join(modsRoot, rec.DisplayName, "gamedata", "configs", "b.ltx"))
}

func TestInstall_InstructionStrategyMergesNamedFolders(t *testing.T) {
	extracted := t.TempDir()
	writeFile(t, filepath.Join(extracted, "addon1", "f1.txt"), "a")
	writeFile(t, filepath.Join(extracted, "addon2", "f2.txt"), "b")
	writeFile(t, filepath.Join(extracted, "notes", "readme.txt"), "c")

	modsRoot := t.TempDir()
	rec := manifest.Downloadable{DisplayName: "Instruction Mod", Instructions: "addon1:addon2"}

	strategy, err := Install(rec, extracted, modsRoot, nil)
	require.NoError(t, err)
	assert.Equal(t, StrategyInstruction, strategy)
	assert.FileExists(t, filepath.Join(modsRoot, rec.DisplayName, "f1.txt"))
	assert.FileExists(t, filepath.Join(modsRoot, rec.DisplayName, "f2.txt"))
	assert.NoFileExists(t, filepath.Join(modsRoot, rec.DisplayName, "readme.txt"))
}

func TestInstall_AutoDetectWithDirectGamedata(t *testing.T) {
	extracted := t.TempDir()
	writeFile(t, filepath.Join(extracted, "gamedata", "configs", "x.ltx"), "x")

	modsRoot := t.TempDir()
	rec := manifest.Downloadable{DisplayName: "Auto Mod", Instructions: "0"}

	strategy, err := Install(rec, extracted, modsRoot, nil)
	require.NoError(t, err)
	assert.Equal(t, StrategyAutoDetect, strategy)
	assert.FileExists(t, filepath.Join(modsRoot, rec.DisplayName, "gamedata", "configs", "x.ltx"))
}

func TestInstall_AutoDetectAmbiguousCopiesWholeTreeVerbatim(t *testing.T) {
	extracted := t.TempDir()
	writeFile(t, filepath.Join(extracted, "folder1", "a.txt"), "a")
	writeFile(t, filepath.Join(extracted, "folder2", "b.txt"), "b")

	modsRoot := t.TempDir()
	rec := manifest.Downloadable{DisplayName: "Ambiguous Mod", Instructions: "0"}

	strategy, err := Install(rec, extracted, modsRoot, nil)
	require.NoError(t, err)
	assert.Equal(t, StrategyAutoDetect, strategy)
	assert.FileExists(t, filepath.Join(modsRoot, rec.DisplayName, "folder1", "a.txt"))
	assert.FileExists(t, filepath.Join(modsRoot, rec.DisplayName, "folder2", "b.txt"))
}

func TestInstall_MissingInstructionFolderWarnsAndContinues(t *testing.T) {
	extracted := t.TempDir()
	writeFile(t, filepath.Join(extracted, "addon1", "f1.txt"), "a")

	modsRoot := t.TempDir()
	rec := manifest.Downloadable{DisplayName: "Partial Mod", Instructions: "addon1:missing"}

	var warnings []string
	strategy, err := Install(rec, extracted, modsRoot, func(msg string) {
		warnings = append(warnings, msg)
	})
	require.NoError(t, err)
	assert.Equal(t, StrategyInstruction, strategy)
	assert.Len(t, warnings, 1)
	assert.FileExists(t, filepath.Join(modsRoot, rec.DisplayName, "f1.txt"))
}
