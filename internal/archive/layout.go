package archive

import (
	"os"
	"path/filepath"
)

// gameContentDir is the marker subfolder used by rule 1 and 2 of the layout
// detector (spec.md §4.2). It names the game-content directory the original
// S.T.A.L.K.E.R. Anomaly / GAMMA tooling looks for.
const gameContentDir = "gamedata"

// anomalyMarkerDirs are the alternate top-level folders rule 3 accepts.
var anomalyMarkerDirs = []string{"appdata", "db", "gamedata"}

// DetectModRoot implements spec.md §4.2's three ordered rules and returns
// "" when the layout is ambiguous, which the caller treats as "copy the
// whole tree verbatim".
func DetectModRoot(root string) (string, bool) {
	if dirExists(filepath.Join(root, gameContentDir)) {
		return root, true
	}

	subdirs := listSubdirs(root)
	if len(subdirs) == 1 {
		nested := filepath.Join(root, subdirs[0])
		if dirExists(filepath.Join(nested, gameContentDir)) {
			return nested, true
		}
	}

	top := make(map[string]bool, len(subdirs))
	for _, d := range subdirs {
		top[d] = true
	}
	for _, marker := range anomalyMarkerDirs {
		if top[marker] {
			return root, true
		}
	}

	return "", false
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func listSubdirs(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs
}
