// Package sparql implements the minimal SPARQL-over-HTTP protocol the
// pipeline needs: authenticated POSTs with a query form field and decoding
// of the standard bindings-array JSON response shape. It is not a
// general-purpose SPARQL client.
package sparql

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/wikidata-reports/sdcusage/internal/transport"
	"github.com/wikidata-reports/sdcusage/pkg/errors"
)

// DefaultEndpoint is the Wikimedia Commons Query Service SPARQL endpoint.
const DefaultEndpoint = "https://commons-query.wikimedia.org/sparql"

// DefaultTokenFile is where the pre-provisioned WCQS OAuth token lives.
const DefaultTokenFile = "./token"

// authCookieName is the cookie WCQS reads the OAuth token from.
const authCookieName = "wcqsOauth"

// Client issues queries against a single SPARQL endpoint.
type Client struct {
	endpoint  string
	transport *transport.Client
	logger    *zerolog.Logger
}

// NewClient creates a client for the given endpoint. The token is
// registered as an auth cookie scoped to the endpoint's domain.
func NewClient(endpoint, token string, tc *transport.Client, logger *zerolog.Logger) (*Client, error) {
	if tc == nil {
		tc = transport.New()
	}
	if err := tc.SetAuthCookie(endpoint, authCookieName, token); err != nil {
		return nil, err
	}
	return &Client{endpoint: endpoint, transport: tc, logger: logger}, nil
}

// Endpoint returns the endpoint URL this client queries.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Query posts the query and returns the decoded bindings array. Any
// non-success response is fatal to the run; the caller gets an APIError
// and is expected to unwind.
func (c *Client) Query(ctx context.Context, query string) ([]Binding, error) {
	form := url.Values{"query": {query}}

	resp, err := c.transport.PostForm(ctx, c.endpoint, form, "application/json")
	if err != nil {
		return nil, err
	}
	body, err := transport.ReadBody(resp)
	if err != nil {
		return nil, err
	}

	var payload response
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.WrapParse("json", "sparql response", err)
	}
	return payload.Results.Bindings, nil
}

// response is the standard SPARQL JSON results envelope.
type response struct {
	Results struct {
		Bindings []Binding `json:"bindings"`
	} `json:"results"`
}

// Binding is one result row: variable name to bound term.
type Binding map[string]Term

// Term is a single bound RDF term. Only the value is consumed here.
type Term struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Value returns the value bound to the named variable. A missing variable
// or empty value is a DataShapeError: the endpoint contract promises every
// projected variable bound in every row for the queries this tool runs.
func (b Binding) Value(variable string) (string, error) {
	term, ok := b[variable]
	if !ok {
		return "", errors.NewDataShapeError(variable, "", "variable not bound in result row")
	}
	if term.Value == "" {
		return "", errors.NewDataShapeError(variable, "", "variable bound to empty value")
	}
	return term.Value, nil
}

// ReadTokenFile loads and trims the WCQS OAuth token. A missing file is a
// ConfigError wrapping ErrTokenMissing; the run must not start without it.
func ReadTokenFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewConfigError("wcqs", "token file not found: "+path, errors.ErrTokenMissing)
		}
		return "", errors.WrapIO("read", path, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", errors.NewConfigError("wcqs", "token file is empty: "+path, errors.ErrTokenMissing)
	}
	return token, nil
}
