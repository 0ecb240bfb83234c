package moddb

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noRedirectFetcher struct {
	client *http.Client
}

func newNoRedirectFetcher() noRedirectFetcher {
	return noRedirectFetcher{client: &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (f noRedirectFetcher) Get(url string) (*http.Response, error) {
	return f.client.Get(url)
}

func TestExtractMirrorLink_ImmediateRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://mirror.example.com/file.zip")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	got, err := ExtractMirrorLink(newNoRedirectFetcher(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "https://mirror.example.com/file.zip", got)
}

func TestExtractMirrorLink_MetaRefresh(t *testing.T) {
	html := `<html><head><meta http-equiv="refresh" content="0;url=https://mirror.example.com/meta.zip"></head></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	}))
	defer srv.Close()

	got, err := ExtractMirrorLink(newNoRedirectFetcher(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "https://mirror.example.com/meta.zip", got)
}

func TestExtractMirrorLink_InlineScriptRegex(t *testing.T) {
	html := `<html><body><script>window.location.href = "https://mirror.example.com/script.zip";</script></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	}))
	defer srv.Close()

	got, err := ExtractMirrorLink(newNoRedirectFetcher(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "https://mirror.example.com/script.zip", got)
}

func TestExtractMirrorLink_InlineScriptRequiresVMEvaluation(t *testing.T) {
	// Built up across statements so a pure regex against the literal text
	// would miss it, exercising the otto VM fallback path.
	html := `<html><body><script>
var base = "https://mirror.example.com/";
var file = "vm.zip";
window.location.href = base + file;
</script></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	}))
	defer srv.Close()

	got, err := ExtractMirrorLink(newNoRedirectFetcher(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "https://mirror.example.com/vm.zip", got)
}

func TestExtractMirrorLink_NothingFoundIsMirrorLinkMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>no redirect here</body></html>"))
	}))
	defer srv.Close()

	_, err := ExtractMirrorLink(newNoRedirectFetcher(), srv.URL)
	assert.ErrorIs(t, err, ErrMirrorLinkMissing)
}
