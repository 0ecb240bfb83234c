package moddb

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves canned HTML for a given URL, implementing PageFetcher
// without touching the network (spec.md §9: scraping logic must be testable
// against canned fixtures).
type fakeFetcher struct {
	server *httptest.Server
}

func (f fakeFetcher) Get(url string) (*http.Response, error) {
	return http.Get(url)
}

func newFakeServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, fakeFetcher) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, fakeFetcher{server: srv}
}

const infoPageHTML = `<html><body>
<a class="buttondownload" href="/downloads/mirror/123">Download Now</a>
<div class="row clear"><span>Filename</span><span>GreatMod-1.2.zip</span></div>
<div class="row clear"><span>MD5 Hash</span><span>ABCDEF0123456789ABCDEF0123456789</span></div>
</body></html>`

func TestScrapeDownloadPage_ExtractsLinkFilenameAndHash(t *testing.T) {
	_, fetcher := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(infoPageHTML))
	})

	meta, err := ScrapeDownloadPage(fetcher, fetcher.server.URL+"/mods/greatmod")
	require.NoError(t, err)
	assert.Equal(t, moddbOrigin+"/downloads/mirror/123", meta.DownloadURL)
	assert.Equal(t, "GreatMod-1.2.zip", meta.Filename)
	assert.Equal(t, "abcdef0123456789abcdef0123456789", meta.MD5)
}

func TestScrapeDownloadPage_RelativeHrefGetsModdbOrigin(t *testing.T) {
	html := `<a class="buttondownload" href="/downloads/mirror/55">Download</a>`
	_, fetcher := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	})

	meta, err := ScrapeDownloadPage(fetcher, fetcher.server.URL+"/mods/x")
	require.NoError(t, err)
	assert.Equal(t, moddbOrigin+"/downloads/mirror/55", meta.DownloadURL)
}

func TestScrapeDownloadPage_MissingButtonIsError(t *testing.T) {
	_, fetcher := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>nothing here</body></html>"))
	})

	_, err := ScrapeDownloadPage(fetcher, fetcher.server.URL+"/mods/x")
	assert.ErrorIs(t, err, ErrDownloadLinkMissing)
}

func TestScrapeDownloadPage_ServerErrorIsScrapingFailed(t *testing.T) {
	_, fetcher := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := ScrapeDownloadPage(fetcher, fetcher.server.URL+"/mods/x")
	assert.ErrorIs(t, err, ErrScrapingFailed)
}
