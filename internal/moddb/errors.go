package moddb

import "errors"

// Sentinel errors for the ModDB fetch workflow, per spec.md §4.5 and §7.
var (
	ErrScrapingFailed    = errors.New("moddb: failed to scrape download page")
	ErrDownloadLinkMissing = errors.New("moddb: download link not found on page")
	ErrMirrorLinkMissing = errors.New("moddb: could not extract mirror link from page")
	ErrDownloadFailed    = errors.New("moddb: download failed")
	ErrHashMismatch      = errors.New("moddb: downloaded file hash does not match expected hash")
)
