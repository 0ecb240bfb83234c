// Package basegame implements the Base-Game Installer (spec.md §4.9,
// SPEC_FULL.md §4.9.1): verifying, downloading, extracting, and
// Wine-patching the S.T.A.L.K.E.R. Anomaly installation that the modpack is
// layered on top of.
//
// Grounded on original_source/launcher/core/gamma/anomaly.py's
// AnomalyInstaller almost directly: verify_installation, download_anomaly,
// extract_anomaly/_find_game_directory, patch_user_ltx, and install's
// skip-if-valid workflow.
package basegame

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gammainstall/internal/archive"
	"gammainstall/internal/moddb"
)

const (
	infoURL     = "https://www.moddb.com/mods/stalker-anomaly/downloads/stalker-anomaly-153"
	downloadURL = "https://www.moddb.com/downloads/start/277404"
	archiveName = "stalker-anomaly-153.7z"
)

// requiredDirs are the directories SPEC_FULL.md §4.9.1 narrows
// anomaly.py's REQUIRED_DIRS to (dropping "tools", which the spec does not
// list as load-bearing for verification).
var requiredDirs = []string{"bin", "gamedata", "appdata"}

var executables = []string{"AnomalyDX9.exe", "AnomalyDX11.exe", "AnomalyDX11AVX.exe"}

// ErrGameDirectoryNotFound is returned when an extracted archive contains
// no directory matching the required Anomaly layout, at its root or nested
// one level down.
var ErrGameDirectoryNotFound = errors.New("basegame: could not locate game directory in extracted archive")

// ErrVerificationFailed is returned when an install completes but the
// resulting tree still fails VerifyInstallation.
var ErrVerificationFailed = errors.New("basegame: installation verification failed after extraction")

// Installer drives the base-game workflow against a ModDB fetcher.
type Installer struct {
	fetcher     *moddb.Fetcher
	infoURL     string
	downloadURL string
}

// New builds an Installer around fetcher, targeting the fixed Anomaly 1.5.3
// ModDB URLs.
func New(fetcher *moddb.Fetcher) *Installer {
	return &Installer{fetcher: fetcher, infoURL: infoURL, downloadURL: downloadURL}
}

// VerifyInstallation reports whether gamePath already contains a complete,
// valid Anomaly installation: all of requiredDirs present, at least one
// known executable under bin/, and appdata/user.ltx present.
func VerifyInstallation(gamePath string) bool {
	info, err := os.Stat(gamePath)
	if err != nil || !info.IsDir() {
		return false
	}

	for _, dir := range requiredDirs {
		fi, err := os.Stat(filepath.Join(gamePath, dir))
		if err != nil || !fi.IsDir() {
			return false
		}
	}

	foundExe := false
	for _, exe := range executables {
		if fi, err := os.Stat(filepath.Join(gamePath, "bin", exe)); err == nil && !fi.IsDir() {
			foundExe = true
			break
		}
	}
	if !foundExe {
		return false
	}

	if fi, err := os.Stat(filepath.Join(gamePath, "appdata", "user.ltx")); err != nil || fi.IsDir() {
		return false
	}

	return true
}

// Options configures one Install call.
type Options struct {
	SkipIfValid      bool
	WineMode         bool
	DownloadProgress moddb.ProgressFunc
	ExtractProgress  archive.ProgressFunc
}

// Install runs the complete workflow: skip if a valid installation is
// already present, else download (cached, hash scraped from the info page),
// extract to gamePath, verify, and apply the Wine user.ltx patch.
func (in *Installer) Install(ctx context.Context, gamePath, cacheDir string, opts Options) error {
	if opts.SkipIfValid && VerifyInstallation(gamePath) {
		return nil
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return err
	}

	archivePath := filepath.Join(cacheDir, archiveName)
	if err := in.fetcher.Fetch(ctx, moddb.Request{
		InfoURL:     in.infoURL,
		DownloadURL: in.downloadURL,
		OutputPath:  archivePath,
		UseCached:   true,
		Progress:    opts.DownloadProgress,
	}); err != nil {
		return err
	}

	if err := extractGame(archivePath, gamePath, opts.ExtractProgress); err != nil {
		return err
	}

	if !VerifyInstallation(gamePath) {
		return ErrVerificationFailed
	}

	return PatchUserLtx(gamePath, opts.WineMode)
}

// extractGame extracts archivePath to a sibling temp directory, locates the
// actual game root within it (the archive may nest the game one directory
// deep), and moves that root into place at gamePath, replacing anything
// already there. Mirrors extract_anomaly/_find_game_directory.
func extractGame(archivePath, gamePath string, progress archive.ProgressFunc) error {
	tempExtract := gamePath + "_temp"
	os.RemoveAll(tempExtract)
	defer os.RemoveAll(tempExtract)

	if err := archive.Extract(archivePath, tempExtract, progress); err != nil {
		return err
	}

	gameDir, err := findGameDirectory(tempExtract)
	if err != nil {
		return err
	}

	os.RemoveAll(gamePath)
	if err := os.MkdirAll(filepath.Dir(gamePath), 0o755); err != nil {
		return err
	}
	return os.Rename(gameDir, gamePath)
}

func hasAllRequiredDirs(root string) bool {
	for _, dir := range requiredDirs {
		fi, err := os.Stat(filepath.Join(root, dir))
		if err != nil || !fi.IsDir() {
			return false
		}
	}
	return true
}

func findGameDirectory(extractRoot string) (string, error) {
	if hasAllRequiredDirs(extractRoot) {
		return extractRoot, nil
	}

	entries, err := os.ReadDir(extractRoot)
	if err != nil {
		return "", ErrGameDirectoryNotFound
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(extractRoot, entry.Name())
		if hasAllRequiredDirs(candidate) {
			return candidate, nil
		}
	}

	return "", ErrGameDirectoryNotFound
}

// PatchUserLtx applies the GAMMA-required edits to appdata/user.ltx. When
// wineMode is set, rs_screenmode fullscreen is rewritten to rs_screenmode
// borderless, since Wine is unreliable in true fullscreen. A missing
// user.ltx is not an error: the file is optional at this stage and a later
// mod may supply its own.
func PatchUserLtx(gamePath string, wineMode bool) error {
	userLtx := filepath.Join(gamePath, "appdata", "user.ltx")

	content, err := os.ReadFile(userLtx)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	if wineMode {
		content = []byte(strings.ReplaceAll(string(content), "rs_screenmode fullscreen", "rs_screenmode borderless"))
	}

	return os.WriteFile(userLtx, content, 0o644)
}
