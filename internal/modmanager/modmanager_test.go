package modmanager

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"

	"gammainstall/internal/fetch"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func buildMO2Zip(t *testing.T) []byte {
	t.Helper()
	files := map[string]string{
		"ModOrganizer.exe": "exe",
		"uibase.dll":       "dll",
		"helper.dll":       "dll",
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestVerifyInstallation_TrueWhenAllFilesPresent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ModOrganizer.exe"), "exe")
	writeFile(t, filepath.Join(root, "uibase.dll"), "dll")
	writeFile(t, filepath.Join(root, "helper.dll"), "dll")
	assert.True(t, VerifyInstallation(root))
}

func TestVerifyInstallation_FalseWhenDllMissing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ModOrganizer.exe"), "exe")
	assert.False(t, VerifyInstallation(root))
}

func TestSetupPortableMode_CreatesEmptySentinel(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, SetupPortableMode(root))
	info, err := os.Stat(filepath.Join(root, "portable.txt"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}

func TestCreateProfile_WritesProfileIniAndEmptyModlist(t *testing.T) {
	root := t.TempDir()
	profileDir, err := CreateProfile(root, "GAMMA")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "profiles", "GAMMA"), profileDir)

	cfg, err := ini.Load(filepath.Join(profileDir, "profile.ini"))
	require.NoError(t, err)
	assert.Equal(t, "true", cfg.Section("General").Key("LocalSaves").String())
	assert.Equal(t, "true", cfg.Section("General").Key("AutomaticArchiveInvalidation").String())

	content, err := os.ReadFile(filepath.Join(profileDir, "modlist.txt"))
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestGenerateModlist_UsesSeparatorAndEnabledPrefixes(t *testing.T) {
	profileDir := t.TempDir()
	require.NoError(t, GenerateModlist(profileDir, []string{
		"000-=== CORE ===_separator",
		"Some Mod - Author",
		"001-=== UI ===_separator",
	}, nil))

	content, err := os.ReadFile(filepath.Join(profileDir, "modlist.txt"))
	require.NoError(t, err)
	assert.Equal(t, "*000-=== CORE ===_separator\n+Some Mod - Author\n*001-=== UI ===_separator\n", string(content))
}

func TestGenerateModlist_EmitsDisabledModsWithMinusPrefix(t *testing.T) {
	profileDir := t.TempDir()
	require.NoError(t, GenerateModlist(profileDir, []string{
		"Some Mod - Author",
	}, []string{"Skipped Mod"}))

	content, err := os.ReadFile(filepath.Join(profileDir, "modlist.txt"))
	require.NoError(t, err)
	assert.Equal(t, "+Some Mod - Author\n-Skipped Mod\n", string(content))
}

func TestConfigureModOrganizerIni_SetsExpectedKeysAndPreservesExisting(t *testing.T) {
	root := t.TempDir()
	iniPath := filepath.Join(root, "ModOrganizer.ini")

	existing := ini.Empty()
	sec, err := existing.NewSection("CustomSection")
	require.NoError(t, err)
	_, err = sec.NewKey("keep", "me")
	require.NoError(t, err)
	require.NoError(t, existing.SaveTo(iniPath))

	require.NoError(t, ConfigureModOrganizerIni(root, filepath.Join(root, "anomaly"), "GAMMA"))

	cfg, err := ini.Load(iniPath)
	require.NoError(t, err)
	assert.Equal(t, "S.T.A.L.K.E.R. Anomaly", cfg.Section("General").Key("gameName").String())
	assert.Equal(t, "GAMMA", cfg.Section("General").Key("selected_profile").String())
	assert.Equal(t, "false", cfg.Section("Settings").Key("check_for_updates").String())
	assert.Equal(t, "me", cfg.Section("CustomSection").Key("keep").String())
}

func TestInstall_SkipsWhenAlreadyValid(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ModOrganizer.exe"), "exe")
	writeFile(t, filepath.Join(root, "uibase.dll"), "dll")
	writeFile(t, filepath.Join(root, "helper.dll"), "dll")

	s := New(fetch.NewFetcher(http.DefaultClient))
	err := s.Install(context.Background(), root, t.TempDir(), t.TempDir(), Options{SkipIfValid: true})
	require.NoError(t, err)
}

func TestInstall_DownloadsExtractsAndConfigures(t *testing.T) {
	zipBytes := buildMO2Zip(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipBytes)
	}))
	defer srv.Close()

	s := &Setup{
		fetcher:     fetch.NewFetcher(http.DefaultClient),
		urlTemplate: srv.URL + "/%s/Mod.Organizer-%s.7z",
	}

	mo2Root := filepath.Join(t.TempDir(), "mo2")
	cacheDir := t.TempDir()
	gamePath := filepath.Join(t.TempDir(), "anomaly")

	err := s.Install(context.Background(), mo2Root, gamePath, cacheDir, Options{SkipIfValid: true, Version: "v2.4.4"})
	require.NoError(t, err)

	assert.True(t, VerifyInstallation(mo2Root))
	assert.FileExists(t, filepath.Join(mo2Root, "portable.txt"))
	assert.FileExists(t, filepath.Join(mo2Root, "profiles", "GAMMA", "profile.ini"))
	assert.FileExists(t, filepath.Join(mo2Root, "ModOrganizer.ini"))
}
