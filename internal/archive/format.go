// Package archive detects archive formats, extracts them into a target
// directory with progress reporting, parses FOMOD install-script directives,
// and locates the "mod root" inside an extracted tree. Spec.md §4.1-§4.3.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies an archive's container type.
type Format int

const (
	Unknown Format = iota
	Zip
	Rar
	SevenZip
)

func (f Format) String() string {
	switch f {
	case Zip:
		return "zip"
	case Rar:
		return "rar"
	case SevenZip:
		return "7z"
	default:
		return "unknown"
	}
}

// ErrUnsupportedFormat is returned when neither magic bytes nor filename
// suffix identify a supported container.
var ErrUnsupportedFormat = errors.New("unsupported archive format")

// DetectFormat is a pure function of the file's leading bytes and its
// filename suffix (spec.md §8 invariant 8): it never consults anything but
// those two inputs, so the same bytes under the same name always classify
// the same way.
func DetectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unknown, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	magic := make([]byte, 6)
	n, _ := f.Read(magic)
	magic = magic[:n]

	if fmt := formatFromMagic(magic); fmt != Unknown {
		return fmt, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return Zip, nil
	case ".rar":
		return Rar, nil
	case ".7z":
		return SevenZip, nil
	}

	return Unknown, nil
}

func formatFromMagic(magic []byte) Format {
	switch {
	case len(magic) >= 2 && magic[0] == 'P' && magic[1] == 'K':
		return Zip
	case len(magic) >= 3 && string(magic[:3]) == "Rar":
		return Rar
	case len(magic) >= 6 && magic[0] == '7' && magic[1] == 'z' &&
		magic[2] == 0xBC && magic[3] == 0xAF && magic[4] == 0x27 && magic[5] == 0x1C:
		return SevenZip
	default:
		return Unknown
	}
}
