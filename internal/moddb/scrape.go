package moddb

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageMetadata is what scrape_download_page extracts from a ModDB info page:
// the download button's href plus whatever filename/md5 metadata rows are
// present, per original_source's moddb.py scrape_download_page.
type PageMetadata struct {
	DownloadURL string
	Filename    string
	MD5         string
}

// PageFetcher abstracts the HTTP round trip so ScrapeDownloadPage and
// ExtractMirrorLink can be unit tested against canned HTML fixtures without
// a live ModDB endpoint (spec.md §9, Open Question on anti-bot testability).
type PageFetcher interface {
	Get(url string) (*http.Response, error)
}

const moddbOrigin = "https://www.moddb.com"

// ScrapeDownloadPage fetches info_url and extracts the download button link,
// filename, and MD5 hash from its "row clear" metadata divs. Mirrors
// moddb.py's scrape_download_page byte for byte in spirit: buttondownload
// anchor for the link, label/value span pairs for filename and md5.
func ScrapeDownloadPage(fetcher PageFetcher, infoURL string) (PageMetadata, error) {
	var meta PageMetadata

	resp, err := fetcher.Get(infoURL)
	if err != nil {
		return meta, fmt.Errorf("%w: %v", ErrScrapingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return meta, fmt.Errorf("%w: status %d", ErrScrapingFailed, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return meta, fmt.Errorf("%w: %v", ErrScrapingFailed, err)
	}

	button := doc.Find("a.buttondownload").First()
	href, exists := button.Attr("href")
	if !exists || href == "" {
		return meta, ErrDownloadLinkMissing
	}
	if !strings.HasPrefix(href, "http") {
		href = moddbOrigin + href
	}
	meta.DownloadURL = href

	doc.Find("div.row.clear").Each(func(_ int, row *goquery.Selection) {
		spans := row.Find("span")
		if spans.Length() < 2 {
			return
		}
		label := strings.ToLower(strings.TrimSpace(spans.Eq(0).Text()))
		value := strings.TrimSpace(spans.Eq(1).Text())

		switch {
		case strings.Contains(label, "filename"):
			meta.Filename = value
		case strings.Contains(label, "md5"), strings.Contains(label, "hash"):
			meta.MD5 = strings.ToLower(value)
		}
	})

	return meta, nil
}
