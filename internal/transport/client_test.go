package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/wikidata-reports/sdcusage/pkg/errors"
)

func TestPostFormSendsHeaders(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		got = r.Clone(r.Context())
		got.PostForm = r.PostForm
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := New()
	resp, err := c.PostForm(context.Background(), server.URL, url.Values{"query": {"SELECT *"}}, "application/sparql-results+json")
	require.NoError(t, err)
	body, err := ReadBody(resp)
	require.NoError(t, err)

	assert.Equal(t, "ok", string(body))
	assert.Equal(t, UserAgent, got.Header.Get("User-Agent"))
	assert.Equal(t, "application/x-www-form-urlencoded", got.Header.Get("Content-Type"))
	assert.Equal(t, "application/sparql-results+json", got.Header.Get("Accept"))
	assert.Equal(t, "SELECT *", got.PostForm.Get("query"))
}

func TestSetAuthCookieSentOnRequest(t *testing.T) {
	var cookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("wcqsOauth"); err == nil {
			cookie = c.Value
		}
		_, _ = w.Write([]byte("{}"))
	}))
	defer server.Close()

	c := New()
	require.NoError(t, c.SetAuthCookie(server.URL, "wcqsOauth", "token-value"))

	resp, err := c.Get(context.Background(), server.URL)
	require.NoError(t, err)
	_, err = ReadBody(resp)
	require.NoError(t, err)

	assert.Equal(t, "token-value", cookie)
}

func TestReadBodyNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	c := New()
	resp, err := c.Get(context.Background(), server.URL)
	require.NoError(t, err)

	_, err = ReadBody(resp)
	require.Error(t, err)
	assert.True(t, apperrors.IsTransport(err))

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "upstream unavailable")
}

func TestWithUserAgent(t *testing.T) {
	var ua string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("{}"))
	}))
	defer server.Close()

	c := New(WithUserAgent("custom-agent/1.0"))
	resp, err := c.Get(context.Background(), server.URL)
	require.NoError(t, err)
	_, _ = ReadBody(resp)

	assert.Equal(t, "custom-agent/1.0", ua)
}

func TestWithHTTPClientPreservesJar(t *testing.T) {
	c := New()
	require.NotNil(t, c.http.Jar)
	jar := c.http.Jar

	replacement := &http.Client{Timeout: time.Second}
	WithHTTPClient(replacement)(c)

	assert.Same(t, replacement, c.http)
	assert.Same(t, jar, c.http.Jar)
}

func TestSetAuthCookieInvalidEndpoint(t *testing.T) {
	c := New()
	err := c.SetAuthCookie("://not-a-url", "wcqsOauth", "v")
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
}
