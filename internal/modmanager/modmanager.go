// Package modmanager implements Mod-Manager Setup (spec.md §4.10,
// SPEC_FULL.md §4.10.1): downloading and installing the ModOrganizer2
// analog, portable-mode configuration, profile creation, and the
// ModOrganizer.ini/profile.ini configuration files.
//
// Grounded on original_source/launcher/core/gamma/mo2.py's MO2Manager.
package modmanager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"gammainstall/internal/archive"
	"gammainstall/internal/fetch"
)

const (
	releaseURLTemplate = "https://github.com/ModOrganizer2/modorganizer/releases/download/%s/Mod.Organizer-%s.7z"
	// DefaultVersion matches mo2.py's MO2_DEFAULT_VERSION.
	DefaultVersion = "v2.4.4"
	gameName       = "S.T.A.L.K.E.R. Anomaly"
)

var requiredFiles = []string{"ModOrganizer.exe", "uibase.dll", "helper.dll"}

func allRequiredFilesPresent(root string) bool {
	for _, name := range requiredFiles {
		if fi, err := os.Stat(filepath.Join(root, name)); err != nil || fi.IsDir() {
			return false
		}
	}
	return true
}

// ErrVerificationFailed is returned when extraction completes but the
// resulting tree still fails VerifyInstallation.
var ErrVerificationFailed = errors.New("modmanager: installation verification failed after extraction")

// Setup drives the mod-manager workflow against a direct (non-ModDB)
// fetcher, since MO2 ships as a GitHub release asset.
type Setup struct {
	fetcher      *fetch.Fetcher
	urlTemplate  string
}

// New builds a Setup around fetcher, targeting the real ModOrganizer2
// GitHub releases.
func New(fetcher *fetch.Fetcher) *Setup {
	return &Setup{fetcher: fetcher, urlTemplate: releaseURLTemplate}
}

// VerifyInstallation reports whether root contains ModOrganizer.exe plus
// its required shared libraries.
func VerifyInstallation(root string) bool {
	return allRequiredFilesPresent(root)
}

// Options configures one Install call.
type Options struct {
	Version          string
	ProfileName      string
	SkipIfValid      bool
	DownloadProgress fetch.ProgressFunc
	ExtractProgress  archive.ProgressFunc
}

func (o Options) versionOrDefault() string {
	if o.Version == "" {
		return DefaultVersion
	}
	return o.Version
}

func (o Options) profileNameOrDefault() string {
	if o.ProfileName == "" {
		return "GAMMA"
	}
	return o.ProfileName
}

// Install runs the complete workflow: skip if valid, else download the
// release archive (cached by filename), wipe and re-extract mo2Root,
// verify, enable portable mode, create the profile, and write
// ModOrganizer.ini pointing at gamePath.
func (s *Setup) Install(ctx context.Context, mo2Root, gamePath, cacheDir string, opts Options) error {
	if opts.SkipIfValid && VerifyInstallation(mo2Root) {
		return nil
	}

	version := opts.versionOrDefault()
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return err
	}

	filename := fmt.Sprintf("Mod.Organizer-%s.7z", version)
	archivePath := filepath.Join(cacheDir, filename)
	downloadURL := fmt.Sprintf(s.urlTemplate, version, version)

	if err := s.fetcher.Fetch(ctx, fetch.Request{
		URL:        downloadURL,
		OutputPath: archivePath,
		UseCached:  true,
		Progress:   opts.DownloadProgress,
	}); err != nil {
		return err
	}

	os.RemoveAll(mo2Root)
	if err := os.MkdirAll(mo2Root, 0o755); err != nil {
		return err
	}
	if err := archive.Extract(archivePath, mo2Root, opts.ExtractProgress); err != nil {
		return err
	}

	if !VerifyInstallation(mo2Root) {
		return ErrVerificationFailed
	}

	if err := SetupPortableMode(mo2Root); err != nil {
		return err
	}

	profileName := opts.profileNameOrDefault()
	if _, err := CreateProfile(mo2Root, profileName); err != nil {
		return err
	}

	return ConfigureModOrganizerIni(mo2Root, gamePath, profileName)
}

// SetupPortableMode creates the empty portable.txt sentinel that tells MO2
// to use directories relative to its own install rather than AppData.
func SetupPortableMode(mo2Root string) error {
	path := filepath.Join(mo2Root, "portable.txt")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("modmanager: failed to create portable.txt: %w", err)
	}
	return f.Close()
}

// CreateProfile creates profiles/<profileName>/ with profile.ini and an
// empty modlist.txt (populated later via GenerateModlist), returning the
// profile directory path.
func CreateProfile(mo2Root, profileName string) (string, error) {
	profileDir := filepath.Join(mo2Root, "profiles", profileName)
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return "", fmt.Errorf("modmanager: failed to create profile directory: %w", err)
	}

	cfg := ini.Empty()
	sec, err := cfg.NewSection("General")
	if err != nil {
		return "", err
	}
	for _, kv := range [][2]string{
		{"LocalSaves", "true"},
		{"LocalSettings", "true"},
		{"AutomaticArchiveInvalidation", "true"},
	} {
		if _, err := sec.NewKey(kv[0], kv[1]); err != nil {
			return "", err
		}
	}
	if err := cfg.SaveTo(filepath.Join(profileDir, "profile.ini")); err != nil {
		return "", fmt.Errorf("modmanager: failed to write profile.ini: %w", err)
	}

	modlistPath := filepath.Join(profileDir, "modlist.txt")
	if _, err := os.Stat(modlistPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(modlistPath, nil, 0o644); err != nil {
			return "", fmt.Errorf("modmanager: failed to create modlist.txt: %w", err)
		}
	}

	return profileDir, nil
}

// GenerateModlist writes profiles/<profileName>/modlist.txt: one line per
// name in order, "*<name>" for separators (identified by the
// "_separator" suffix InstallSeparator gives them) and "+<name>" for
// everything else in names, followed by one "-<name>" line per entry in
// disabled - mods present in the manifest but not installed, per spec.md
// §6's "present but skipped" enabled-list entry. Mirrors
// generate_modlist's same suffix-based branching.
func GenerateModlist(profileDir string, names []string, disabled []string) error {
	var b strings.Builder
	for _, name := range names {
		if strings.HasSuffix(name, "_separator") {
			fmt.Fprintf(&b, "*%s\n", name)
		} else {
			fmt.Fprintf(&b, "+%s\n", name)
		}
	}
	for _, name := range disabled {
		fmt.Fprintf(&b, "-%s\n", name)
	}
	path := filepath.Join(profileDir, "modlist.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("modmanager: failed to write modlist.txt: %w", err)
	}
	return nil
}

// ConfigureModOrganizerIni writes/merges <mo2Root>/ModOrganizer.ini: if the
// file already exists its other sections/keys are preserved (LooseLoad
// mirrors configparser's read-before-write behaviour in configure_mo2_ini),
// only the General/Settings keys below are set or overwritten.
func ConfigureModOrganizerIni(mo2Root, gamePath, profileName string) error {
	path := filepath.Join(mo2Root, "ModOrganizer.ini")

	cfg, err := ini.LooseLoad(path)
	if err != nil {
		return fmt.Errorf("modmanager: failed to read existing ModOrganizer.ini: %w", err)
	}

	absGamePath, err := filepath.Abs(gamePath)
	if err != nil {
		absGamePath = gamePath
	}

	general := cfg.Section("General")
	general.Key("gamePath").SetValue(absGamePath)
	general.Key("gameName").SetValue(gameName)
	general.Key("selected_profile").SetValue(profileName)
	general.Key("language").SetValue("en")

	settings := cfg.Section("Settings")
	settings.Key("check_for_updates").SetValue("false")
	settings.Key("compact_downloads").SetValue("true")
	settings.Key("hide_api_counter").SetValue("true")

	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("modmanager: failed to write ModOrganizer.ini: %w", err)
	}
	return nil
}
