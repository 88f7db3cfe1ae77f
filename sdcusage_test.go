package sdcusage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikidata-reports/sdcusage/pkg/errors"
	"github.com/wikidata-reports/sdcusage/pkg/logging"
	"github.com/wikidata-reports/sdcusage/pkg/usage"
)

// staticSource serves a fixed deleted-item list.
type staticSource struct {
	items []usage.DeletedItem
}

func (s *staticSource) DeletedItems(_ context.Context) ([]usage.DeletedItem, error) {
	return s.items, nil
}

// captureSink records what would have been published.
type captureSink struct {
	text string
}

func (s *captureSink) Publish(_ context.Context, text string) error {
	s.text = text
	return nil
}

// writeTokenFile drops a token file into a temp dir.
func writeTokenFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("e2e-token\n"), 0o600))
	return path
}

// wcqsHandler answers usage queries with the given bindings and reference
// validation queries with an empty result.
func wcqsHandler(usageBindings string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		query := r.PostForm.Get("query")
		if strings.Contains(query, "prov:wasDerivedFrom") {
			_, _ = w.Write([]byte(`{"results":{"bindings":[]}}`))
			return
		}
		_, _ = w.Write([]byte(fmt.Sprintf(`{"results":{"bindings":[%s]}}`, usageBindings)))
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	// One deleted item with one surviving usage triple and an empty
	// exclusion set yields a single-row report.
	server := httptest.NewServer(wcqsHandler(
		`{"file":{"value":"https://commons.wikimedia.org/entity/statement/sdcS123456789012"},
		  "predicate":{"value":"http://www.wikidata.org/prop/direct/P180"},
		  "item":{"value":"http://www.wikidata.org/entity/Q5"}}`,
	))
	t.Cleanup(server.Close)

	sink := &captureSink{}
	pipeline, err := New(
		WithLogger(logging.NewTestLogger(t).Logger),
		WithEndpoint(server.URL),
		WithTokenFile(writeTokenFile(t)),
		WithDelay(0),
		WithSnapshotPath(""),
		WithDeletedItemSource(&staticSource{items: []usage.DeletedItem{
			{QID: "Q5", Admin: "Alice", Timestamp: "20230101000000"},
		}}),
		WithReportSink(sink),
	)
	require.NoError(t, err)

	require.NoError(t, pipeline.Run(context.Background()))

	assert.Contains(t, sink.text, "| [[Q5]] || [[User:Alice|Alice]] || 2023-01-01 00:00:00 || 1")
	assert.Contains(t, sink.text, "[[Category:Database reports|Deleted Wikidata entities used in SDC]]")
}

func TestPipelineExcludesOrphanedReferences(t *testing.T) {
	// The only usage is a reference node that validation reports as
	// orphaned, so the report has no rows.
	server := httptest.NewServer(func() http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			query := r.PostForm.Get("query")
			if strings.Contains(query, "prov:wasDerivedFrom") {
				_, _ = w.Write([]byte(`{"results":{"bindings":[
					{"sdcref":{"value":"https://commons.wikimedia.org/reference/orphanedref01"}}
				]}}`))
				return
			}
			_, _ = w.Write([]byte(`{"results":{"bindings":[
				{"file":{"value":"https://commons.wikimedia.org/reference/orphanedref01"},
				 "predicate":{"value":"http://www.wikidata.org/prop/reference/P248"},
				 "item":{"value":"http://www.wikidata.org/entity/Q7"}}
			]}}`))
		}
	}())
	t.Cleanup(server.Close)

	sink := &captureSink{}
	pipeline, err := New(
		WithLogger(logging.NewTestLogger(t).Logger),
		WithEndpoint(server.URL),
		WithTokenFile(writeTokenFile(t)),
		WithDelay(0),
		WithSnapshotPath(""),
		WithDeletedItemSource(&staticSource{items: []usage.DeletedItem{
			{QID: "Q7", Admin: "Bob", Timestamp: "20230301120000"},
		}}),
		WithReportSink(sink),
	)
	require.NoError(t, err)

	require.NoError(t, pipeline.Run(context.Background()))
	assert.NotContains(t, sink.text, "[[Q7]]")
}

func TestPipelineDryRunWritesToOutput(t *testing.T) {
	server := httptest.NewServer(wcqsHandler(""))
	t.Cleanup(server.Close)

	var out bytes.Buffer
	pipeline, err := New(
		WithLogger(logging.NewTestLogger(t).Logger),
		WithEndpoint(server.URL),
		WithTokenFile(writeTokenFile(t)),
		WithDelay(0),
		WithSnapshotPath(""),
		WithDeletedItemSource(&staticSource{}),
		WithDryRun(&out),
	)
	require.NoError(t, err)

	require.NoError(t, pipeline.Run(context.Background()))
	assert.Contains(t, out.String(), "Update: <onlyinclude>")
}

func TestPipelineMissingTokenFileFatalBeforeNetwork(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		requests++
	}))
	t.Cleanup(server.Close)

	pipeline, err := New(
		WithLogger(logging.NewTestLogger(t).Logger),
		WithEndpoint(server.URL),
		WithTokenFile(filepath.Join(t.TempDir(), "absent")),
		WithDeletedItemSource(&staticSource{}),
		WithReportSink(&captureSink{}),
	)
	require.NoError(t, err)

	err = pipeline.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.ErrorIs(t, err, errors.ErrTokenMissing)
	assert.Zero(t, requests)
}

func TestPipelineNoPublishOnFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	sink := &captureSink{}
	pipeline, err := New(
		WithLogger(logging.NewTestLogger(t).Logger),
		WithEndpoint(server.URL),
		WithTokenFile(writeTokenFile(t)),
		WithDelay(0),
		WithSnapshotPath(""),
		WithDeletedItemSource(&staticSource{items: []usage.DeletedItem{
			{QID: "Q1", Admin: "A", Timestamp: "20230101000000"},
		}}),
		WithReportSink(sink),
	)
	require.NoError(t, err)

	err = pipeline.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
	assert.Empty(t, sink.text, "no partial report may be published")
}
