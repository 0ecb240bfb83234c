package modinstall

import (
	"fmt"
	"os"
	"path/filepath"

	"gammainstall/internal/manifest"
)

const metaFilename = "meta.ini"

const gameIdentifier = "stalkeranomaly"

// downloadableMetaIniTemplate matches generate_meta_ini on
// DownloadableModRecord in models.py byte for byte, including the fixed
// MO2 "color" Variant blob that marks a mod as GAMMA-managed.
const downloadableMetaIniTemplate = `[General]
gameName=%s
modid=0
ignoredversion=%s
version=%s
installationFile=%s
url=%s
hasCustomURL=true
color=@Variant(\0\0\0\x43\0\xff\xff\0\0\0\0\0\0\0\0)
tracked=0

[installedFiles]
1\modid=0
1\fileid=0
size=1
`

// separatorMetaIniTemplate matches SeparatorRecord.generate_meta_ini.
const separatorMetaIniTemplate = `[General]
gameName=%s
modid=0
version=
newestVersion=
category=-1
installationFile=
repository=
`

// WriteDownloadableMetaIni writes <modRoot>/meta.ini for rec, per
// spec.md §4.7's metadata-file contract: game identifier, mod-id 0,
// version/ignoredversion/installationFile all set to the display name,
// url falling back from info URL to the download URL, hasCustomURL true.
func WriteDownloadableMetaIni(rec manifest.Downloadable, modRoot string) error {
	url := rec.InfoURL
	if url == "" {
		url = rec.URL
	}
	content := fmt.Sprintf(downloadableMetaIniTemplate, gameIdentifier, rec.DisplayName, rec.DisplayName, rec.DisplayName, url)
	return writeMetaIni(modRoot, content)
}

// WriteSeparatorMetaIni writes the meta.ini for a separator directory.
func WriteSeparatorMetaIni(sepRoot string) error {
	content := fmt.Sprintf(separatorMetaIniTemplate, gameIdentifier)
	return writeMetaIni(sepRoot, content)
}

func writeMetaIni(root, content string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("modinstall: failed to create %s: %w", root, err)
	}
	path := filepath.Join(root, metaFilename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("modinstall: failed to write %s: %w", path, err)
	}
	return nil
}
