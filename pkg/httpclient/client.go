package httpclient

import (
	"net/http"
)

// maxRedirects bounds redirect chains. Media enclosures routinely bounce
// through one or more tracking redirectors before reaching the CDN.
const maxRedirects = 10

// HTTPClient wraps http.Client with the request headers podcast hosts expect.
// Feed endpoints, episode pages and media CDNs answer 403 or 406 to requests
// without a browser-like User-Agent, so every request goes out with a full
// browser header profile.
type HTTPClient struct {
	client *http.Client
}

// New creates an HTTP client for feed, page and media fetching.
func New() *HTTPClient {
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return &HTTPClient{client: client}
}

// Do executes an HTTP request with the browser header profile applied.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	setHeaders(req)
	return c.client.Do(req)
}

func setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}
