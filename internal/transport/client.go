// Package transport provides the authenticated HTTP client shared by the
// WCQS query client and the wiki publish sink. Authentication for WCQS is a
// single pre-provisioned OAuth token sent as a cookie scoped to the
// endpoint's domain; the wiki API uses its own session cookies from login.
package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/wikidata-reports/sdcusage/pkg/errors"
)

// DefaultTimeout is the default timeout for HTTP requests. WCQS queries
// over a 10k-item VALUES list routinely take tens of seconds.
const DefaultTimeout = 5 * time.Minute

// UserAgent identifies the tool per the Wikimedia User-Agent policy.
const UserAgent = "sdcusage (Wikidata database report bot; https://github.com/wikidata-reports/sdcusage)"

// Client wraps http.Client with a cookie jar and the headers every
// Wikimedia request needs.
type Client struct {
	http      *http.Client
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The cookie jar is
// preserved unless the replacement carries its own.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc.Jar == nil {
			hc.Jar = c.http.Jar
		}
		c.http = hc
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a transport client with its own cookie jar.
func New(opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		http:      &http.Client{Timeout: DefaultTimeout, Jar: jar},
		userAgent: UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetAuthCookie registers an authentication cookie for the endpoint's
// domain. WCQS expects the OAuth token in a cookie named wcqsOauth.
func (c *Client) SetAuthCookie(endpoint, name, value string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return errors.NewConfigError("transport", "invalid endpoint URL: "+endpoint, err)
	}
	base := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
	c.http.Jar.SetCookies(base, []*http.Cookie{{
		Name:   name,
		Value:  value,
		Path:   "/",
		Domain: u.Hostname(),
		Secure: u.Scheme == "https",
	}})
	return nil
}

// PostForm performs an authenticated form POST and returns the response.
// Callers own the response body.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.WrapAPI(endpoint, 0, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapAPI(endpoint, 0, err)
	}
	return resp, nil
}

// Get performs an authenticated GET request.
func (c *Client) Get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.WrapAPI(endpoint, 0, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapAPI(endpoint, 0, err)
	}
	return resp, nil
}

// ReadBody drains and closes the response body, enforcing the fail-fast
// contract: any non-2xx status is returned as an APIError carrying the
// response text.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		endpoint := ""
		if resp.Request != nil && resp.Request.URL != nil {
			endpoint = resp.Request.URL.String()
		}
		return nil, errors.NewAPIError(endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
