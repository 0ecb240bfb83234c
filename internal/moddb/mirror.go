package moddb

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/robertkrimen/otto"
)

var metaRefreshURL = regexp.MustCompile(`(?i)url=(.*)`)
var windowLocationAssign = regexp.MustCompile(`window\.location\.href\s*=\s*["']([^"']+)["']`)

// ExtractMirrorLink follows a ModDB mirror page to its final direct download
// URL, trying each strategy in the order original_source's
// extract_mirror_link does: an immediate 3xx redirect, a
// <meta http-equiv="refresh"> tag, then a <script> that assigns
// window.location.href. fetcher must not follow redirects transparently -
// the 3xx case is only observable if the caller's transport leaves it to us.
func ExtractMirrorLink(fetcher PageFetcher, mirrorURL string) (string, error) {
	resp, err := fetcher.Get(mirrorURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMirrorLinkMissing, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if loc := resp.Header.Get("Location"); loc != "" {
			return loc, nil
		}
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: status %d", ErrMirrorLinkMissing, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMirrorLinkMissing, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMirrorLinkMissing, err)
	}

	if url, ok := metaRefreshRedirect(doc); ok {
		return url, nil
	}

	if url, ok := scriptRedirect(doc); ok {
		return url, nil
	}

	return "", ErrMirrorLinkMissing
}

func metaRefreshRedirect(doc *goquery.Document) (string, bool) {
	content, exists := doc.Find(`meta[http-equiv="refresh"]`).Attr("content")
	if !exists {
		return "", false
	}
	match := metaRefreshURL.FindStringSubmatch(content)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// scriptRedirect runs each <script> tag's text through a throwaway JS VM and
// checks, via regex, whether it assigned window.location.href - matching
// mcdex's curseforge.go technique of evaluating inline scripts with otto to
// recover values a pure regex pass could miss when the assignment is built
// up across statements. The regex is tried first since it's cheap and
// covers the common case without paying for VM execution.
func scriptRedirect(doc *goquery.Document) (string, bool) {
	var found string
	var ok bool

	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		if text == "" {
			return true
		}

		if match := windowLocationAssign.FindStringSubmatch(text); match != nil {
			found, ok = match[1], true
			return false
		}

		vm := otto.New()
		vm.Set("window", map[string]interface{}{"location": map[string]interface{}{"href": ""}})
		if _, err := vm.Run(text); err != nil {
			return true
		}
		value, err := vm.Run("window.location.href")
		if err != nil {
			return true
		}
		str, err := value.ToString()
		if err != nil || str == "" {
			return true
		}
		found, ok = str, true
		return false
	})

	return found, ok
}
