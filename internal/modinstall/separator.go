package modinstall

import (
	"fmt"
	"path/filepath"

	"gammainstall/internal/manifest"
)

// InstallSeparator materialises sep as an empty directory named
// NNN-<name>_separator (zero-padded 3-digit index) containing only a
// meta.ini marking it as a separator, per spec.md §4.7's separator
// handling and mod_manager.py's install_separator.
func InstallSeparator(sep manifest.Separator, modsRoot string, index int) (string, error) {
	name := fmt.Sprintf("%03d-%s_separator", index, sep.Name)
	dir := filepath.Join(modsRoot, name)
	if err := WriteSeparatorMetaIni(dir); err != nil {
		return "", fmt.Errorf("modinstall: failed to create separator %q: %w", sep.Name, err)
	}
	return name, nil
}
