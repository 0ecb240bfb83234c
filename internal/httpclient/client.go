// Package httpclient provides the shared HTTP client used by the ModDB
// fetcher and the direct fetcher: a DNS-caching, HTTP/2-aware transport with
// a browser-like User-Agent, the same shape the teacher repo builds in its
// util.go NewHttpClient/HttpGet.
package httpclient

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/viki-org/dnscache"
)

const dialTimeout = 5 * time.Second

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var resolver = dnscache.New(15 * time.Minute)

// New builds an http.Client with a DNS-caching dialer and HTTP/2 enabled.
// When followRedirects is false the client stops at the first redirect and
// returns it as a response, which is how mirror-page indirection detects a
// 3xx without silently chasing it.
func New(followRedirects bool, timeout time.Duration) *http.Client {
	t := &http.Transport{
		MaxIdleConnsPerHost:   10,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 10 * time.Second,
		Dial: dialWithCache,
	}
	if err := http2.ConfigureTransport(t); err != nil {
		// HTTP/2 is an optimization; a transport that can't be upgraded still
		// works fine over HTTP/1.1.
		_ = err
	}

	c := &http.Client{Transport: t, Timeout: timeout}
	if !followRedirects {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return c
}

func dialWithCache(network, address string) (net.Conn, error) {
	sep := strings.LastIndex(address, ":")
	if sep < 0 {
		return net.DialTimeout(network, address, dialTimeout)
	}
	ip, err := resolver.FetchOne(address[:sep])
	if err != nil {
		return net.DialTimeout(network, address, dialTimeout)
	}
	ipStr := ip.String()
	if ip.To4() == nil {
		ipStr = fmt.Sprintf("[%s]", ipStr)
	}
	return net.DialTimeout(network, ipStr+address[sep:], dialTimeout)
}

// Get issues a GET request carrying the shared User-Agent header.
func Get(client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return client.Do(req)
}
