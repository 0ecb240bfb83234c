package pipeline

import (
	"path"
	"path/filepath"
	"strings"

	"gammainstall/internal/manifest"
)

// cachePath mirrors models.py's get_cache_path: a record's cache filename is
// its ArchiveFilename when the manifest supplied one, otherwise the final
// path segment of its download URL.
func cachePath(cacheDir string, rec manifest.Downloadable) string {
	name := rec.ArchiveFilename
	if name == "" {
		name = path.Base(strings.TrimRight(rec.URL, "/"))
	}
	return filepath.Join(cacheDir, name)
}
