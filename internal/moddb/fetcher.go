package moddb

import (
	"context"
	"fmt"
	"net/http"

	"gammainstall/internal/hashutil"
	"gammainstall/internal/httpclient"
	"gammainstall/internal/retry"
)

// httpPageFetcher adapts an *http.Client to PageFetcher. One instance is
// built per Fetcher with redirects disabled, matching the original's
// allow_redirects=False on the mirror-page request - the 3xx-detection
// strategy in ExtractMirrorLink depends on the client NOT following the
// redirect transparently.
type httpPageFetcher struct {
	client *http.Client
}

func (f httpPageFetcher) Get(url string) (*http.Response, error) {
	return httpclient.Get(f.client, url)
}

// Fetcher drives the complete ModDB download workflow: cache check, page
// scrape, mirror extraction, streaming download, hash verification. Mirrors
// download_mod's orchestration in original_source's moddb.py.
type Fetcher struct {
	scrapeClient *http.Client
	mirrorClient *http.Client
	downloadClient *http.Client
}

// NewFetcher builds a Fetcher. scrapeAndDownloadClient is used for the info
// page and the final download (both expect transparent redirect following);
// noRedirectClient must have its CheckRedirect set to stop at the first hop
// so mirror pages' 3xx responses are observable.
func NewFetcher(scrapeAndDownloadClient, noRedirectClient *http.Client) *Fetcher {
	return &Fetcher{
		scrapeClient:   scrapeAndDownloadClient,
		mirrorClient:   noRedirectClient,
		downloadClient: scrapeAndDownloadClient,
	}
}

// Request describes one mod's fetch: where to scrape metadata from, where
// the mirror/download page lives, and where to save the result.
type Request struct {
	InfoURL     string // ModDB mod page, for scraped filename/md5; may be empty
	DownloadURL string // mirror/download page to resolve to a direct link
	OutputPath  string
	ExpectedMD5 string // known hash; if empty, Fetch scrapes InfoURL for one
	UseCached   bool
	Progress    ProgressFunc
}

// Fetch runs the full cache-check -> scrape -> mirror -> download workflow
// for req, per original_source's download_mod.
func (f *Fetcher) Fetch(ctx context.Context, req Request) error {
	expectedMD5 := req.ExpectedMD5

	if req.UseCached && fileExists(req.OutputPath) {
		if expectedMD5 != "" {
			ok, err := hashutil.Verify(req.OutputPath, expectedMD5)
			if err == nil && ok {
				return nil
			}
		} else {
			return nil
		}
	}

	if expectedMD5 == "" && req.InfoURL != "" {
		var meta PageMetadata
		err := retry.Do(ctx, func(attempt int) error {
			var scrapeErr error
			meta, scrapeErr = ScrapeDownloadPage(httpPageFetcher{f.scrapeClient}, req.InfoURL)
			return scrapeErr
		})
		if err == nil {
			expectedMD5 = meta.MD5
		}
		// A scrape failure is non-fatal here: the download still proceeds
		// without hash verification, matching download_mod's behaviour of
		// logging a warning and continuing.
	}

	// extract_mirror_link carries no retry in original_source; a single
	// failed attempt falls straight back to a direct download of downloadURL.
	mirrorURL, err := ExtractMirrorLink(httpPageFetcher{f.mirrorClient}, req.DownloadURL)
	if err != nil {
		mirrorURL = req.DownloadURL
	}

	if err := DownloadFileWithRetry(ctx, f.downloadClient, mirrorURL, req.OutputPath, expectedMD5, req.Progress); err != nil {
		return fmt.Errorf("fetch %s: %w", req.DownloadURL, err)
	}

	return nil
}
