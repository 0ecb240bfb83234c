package moddb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher() *Fetcher {
	return NewFetcher(http.DefaultClient, &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	})
}

func TestFetcher_Fetch_FullWorkflowScrapeMirrorDownload(t *testing.T) {
	content := []byte("modcontents")

	var downloadSrv *httptest.Server
	mirrorSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", downloadSrv.URL+"/file.zip")
		w.WriteHeader(http.StatusFound)
	}))
	defer mirrorSrv.Close()

	downloadSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer downloadSrv.Close()

	infoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a class="buttondownload" href="` + mirrorSrv.URL + `">dl</a>`))
	}))
	defer infoSrv.Close()

	dest := filepath.Join(t.TempDir(), "mod.zip")
	f := newTestFetcher()
	err := f.Fetch(context.Background(), Request{
		InfoURL:     infoSrv.URL,
		DownloadURL: mirrorSrv.URL,
		OutputPath:  dest,
		UseCached:   true,
	})
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestFetcher_Fetch_UsesCachedFileWhenHashMatches(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "mod.zip")
	content := []byte("cached")
	require.NoError(t, os.WriteFile(dest, content, 0o644))

	f := newTestFetcher()
	err := f.Fetch(context.Background(), Request{
		DownloadURL: "http://should-not-be-hit.invalid",
		OutputPath:  dest,
		ExpectedMD5: md5Hex(content),
		UseCached:   true,
	})
	require.NoError(t, err)
}

func TestFetcher_Fetch_MirrorFailureFallsBackToDirectDownload(t *testing.T) {
	content := []byte("direct")
	directSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer directSrv.Close()

	dest := filepath.Join(t.TempDir(), "mod.zip")
	f := newTestFetcher()
	err := f.Fetch(context.Background(), Request{
		DownloadURL: directSrv.URL,
		OutputPath:  dest,
		UseCached:   true,
	})
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}
