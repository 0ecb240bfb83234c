package manifest

import "errors"

var (
	// ErrUnknownKind is returned for a Downloadable line whose URL matches
	// none of the recognised substrings. The maker-list parser turns this
	// into a warning and skips the line rather than aborting (spec.md §4.6).
	ErrUnknownKind = errors.New("manifest: could not classify record kind from URL")
)
