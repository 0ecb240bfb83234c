// Package modinstall turns an extracted mod archive plus its manifest
// record into a directory under the mods root, choosing between the three
// install strategies of spec.md §4.7 (grounded on mod_manager.py's
// extract_and_install_mod: FOMOD, then instruction-based, then
// auto-detection). A FOMOD manifest that yields no directives falls through
// to the later strategies; an instruction list is never retried with
// auto-detection, and folders it names that are missing only produce
// warnings.
package modinstall

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gammainstall/internal/archive"
	"gammainstall/internal/manifest"
)

// Strategy names the install strategy that was actually used, useful for
// logging and for the S1-S6 seed-scenario tests to assert on.
type Strategy int

const (
	StrategyFOMOD Strategy = iota
	StrategyInstruction
	StrategyAutoDetect
)

func (s Strategy) String() string {
	switch s {
	case StrategyFOMOD:
		return "fomod"
	case StrategyInstruction:
		return "instruction"
	case StrategyAutoDetect:
		return "auto-detect"
	default:
		return "unknown"
	}
}

const fomodManifestPath = "fomod/ModuleConfig.xml"

// Install copies rec's extracted archive at extractedRoot into
// modsRoot/rec.DisplayName, selecting a strategy in the order §4.7
// prescribes. It does not write the mod's meta.ini; the caller does that
// with WriteDownloadableMetaIni. warn receives non-fatal messages (missing FOMOD source folders, missing instruction folders).
func Install(rec manifest.Downloadable, extractedRoot, modsRoot string, warn func(string)) (Strategy, error) {
	installRoot := filepath.Join(modsRoot, rec.DisplayName)
	if err := os.MkdirAll(installRoot, 0o755); err != nil {
		return 0, fmt.Errorf("modinstall: failed to create %s: %w", installRoot, err)
	}

	fomodPath := filepath.Join(extractedRoot, filepath.FromSlash(fomodManifestPath))
	if fileExists(fomodPath) {
		directives := archive.ParseFomod(fomodPath)
		if len(directives) > 0 {
			if err := archive.ApplyDirectives(directives, extractedRoot, installRoot, warn); err != nil {
				return 0, fmt.Errorf("modinstall: fomod install of %s failed: %w", rec.DisplayName, err)
			}
			return StrategyFOMOD, nil
		}
		// Empty directive list (FOMOD present but unparsable/empty) falls
		// through to the instruction and auto-detection checks below, matching mod_manager.py's
		// _install_with_fomod fallback.
	}

	if rec.Instructions != "" && rec.Instructions != "0" {
		if err := installWithInstructions(rec, extractedRoot, installRoot, warn); err != nil {
			return 0, err
		}
		return StrategyInstruction, nil
	}

	if err := installAutoDetect(extractedRoot, installRoot); err != nil {
		return 0, err
	}
	return StrategyAutoDetect, nil
}

// installWithInstructions copies each colon-separated folder name's
// contents into installRoot verbatim (spec.md §4.7 strategy 2).
func installWithInstructions(rec manifest.Downloadable, extractedRoot, installRoot string, warn func(string)) error {
	for _, folder := range strings.Split(rec.Instructions, ":") {
		folder = strings.TrimSpace(folder)
		if folder == "" {
			continue
		}
		source := filepath.Join(extractedRoot, filepath.FromSlash(folder))
		if !dirExists(source) {
			if warn != nil {
				warn(fmt.Sprintf("instruction folder not found: %s", source))
			}
			continue
		}
		if err := copyTree(source, installRoot); err != nil {
			return fmt.Errorf("modinstall: instruction install of %s failed: %w", rec.DisplayName, err)
		}
	}
	return nil
}

// installAutoDetect runs the layout detector and copies from the detected
// mod root, or the whole extracted tree verbatim if the layout is
// ambiguous (spec.md §4.2/§4.7 strategy 3).
func installAutoDetect(extractedRoot, installRoot string) error {
	root, ok := archive.DetectModRoot(extractedRoot)
	if !ok {
		root = extractedRoot
	}
	if err := copyTree(root, installRoot); err != nil {
		return fmt.Errorf("modinstall: auto-detect install from %s failed: %w", root, err)
	}
	return nil
}
