// Package manifest parses the two plain-text files that describe a
// modpack run: the order list (enabled/disabled/separator markers) and the
// maker list (one tab-separated record per mod), per spec.md §4.6 and
// §3's ManifestRecord data model. Grounded on
// original_source/launcher/core/gamma/models.py's ModRecord.from_tsv_line.
package manifest

import (
	"fmt"
	"strings"
)

// Kind classifies a Downloadable record by the URL substring that
// identifies its source, matching models.py's ModType (minus SEPARATOR,
// which is its own Record variant here rather than a ModType value).
type Kind int

const (
	ModDbMirror Kind = iota
	CodeHostArchive
	LargeFileRepo
)

func (k Kind) String() string {
	switch k {
	case ModDbMirror:
		return "ModDbMirror"
	case CodeHostArchive:
		return "CodeHostArchive"
	case LargeFileRepo:
		return "LargeFileRepo"
	default:
		return "Unknown"
	}
}

// classifyKind maps a record's URL to a Kind by substring, in the same
// order and with the same substrings as from_tsv_line: "moddb", "github",
// then "gamma_large_files".
func classifyKind(url string) (Kind, error) {
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, "moddb"):
		return ModDbMirror, nil
	case strings.Contains(lower, "github"):
		return CodeHostArchive, nil
	case strings.Contains(lower, "gamma_large_files"):
		return LargeFileRepo, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownKind, url)
	}
}

// Record is the ManifestRecord tagged union of spec.md §3: every maker-list
// line parses to exactly one of Separator or Downloadable. A private
// marker method keeps the set of implementations closed, in place of a
// class hierarchy (spec.md §9: "avoid class hierarchies and dynamic
// dispatch on kind fields").
type Record interface {
	isRecord()
}

// Separator is a visual grouping marker carried through to the final
// enabled-list; it has no archive and installs as an empty directory with
// only a metadata file.
type Separator struct {
	Name string
}

func (Separator) isRecord() {}

// Downloadable is a mod record that must be fetched, extracted, and
// installed.
type Downloadable struct {
	URL             string
	Instructions    string
	PatchSuffix     string
	DisplayName     string
	InfoURL         string
	ArchiveFilename string
	ExpectedHash    string
	Kind            Kind
	Enabled         bool
}

func (Downloadable) isRecord() {}
