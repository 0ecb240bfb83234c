// Package fetch implements the Direct Fetcher (spec.md §4.5's "Direct
// Fetcher" row): a streaming download from a stable code-hosting or
// release-binary URL, with no scraping and no mirror-page indirection.
//
// mod_manager.py's download_mod dispatches ModType.GITHUB and
// ModType.LARGE_FILE records straight to downloader.download_file(url, ...),
// skipping scrape_download_page/extract_mirror_link entirely - those two
// steps exist only for ModType.MODDB records. Fetcher is that simpler path,
// reusing the same retried-download-with-hash-verification primitive as
// internal/moddb.
package fetch

import (
	"context"
	"net/http"

	"gammainstall/internal/moddb"
)

// ProgressFunc reports (bytes_downloaded, total_bytes_or_zero).
type ProgressFunc = moddb.ProgressFunc

// Fetcher performs direct, unscraped downloads for CodeHostArchive and
// LargeFileRepo manifest records.
type Fetcher struct {
	client *http.Client
}

// NewFetcher builds a Fetcher around client, which should already be
// configured with DNS caching and a reasonable timeout (internal/httpclient).
func NewFetcher(client *http.Client) *Fetcher {
	return &Fetcher{client: client}
}

// Request describes one direct download.
type Request struct {
	URL         string
	OutputPath  string
	ExpectedMD5 string
	UseCached   bool
	Progress    ProgressFunc
}

// Fetch downloads req.URL to req.OutputPath, retrying per internal/retry's
// shared policy. If req.UseCached is set and a file already exists at
// OutputPath matching ExpectedMD5 (or no hash is required), the network is
// skipped entirely, mirroring internal/moddb.Fetcher's cache check so resume
// behaves identically regardless of which fetcher a mod kind uses.
func (f *Fetcher) Fetch(ctx context.Context, req Request) error {
	if req.UseCached && fileExists(req.OutputPath) {
		if req.ExpectedMD5 == "" {
			return nil
		}
		if ok, err := verifyExisting(req.OutputPath, req.ExpectedMD5); err == nil && ok {
			return nil
		}
	}

	return moddb.DownloadFileWithRetry(ctx, f.client, req.URL, req.OutputPath, req.ExpectedMD5, req.Progress)
}
