package wikitext

import (
	"strings"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikidata-reports/sdcusage/pkg/usage"
)

func record(qid, admin string, deletedAt time.Time, count int) usage.Record {
	return usage.Record{QID: qid, Admin: admin, DeletedAt: deletedAt, Count: count}
}

func TestTableSingleRow(t *testing.T) {
	records := []usage.Record{
		record("Q5", "Alice", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 1),
	}

	got := Table(records)

	want := `{| class="wikitable sortable" style="margin:auto;"
|-
! item !! deleted by !! deletion time !! SDC uses
|-
| [[Q5]] || [[User:Alice|Alice]] || 2023-01-01 00:00:00 || 1
|}`
	assert.Equal(t, want, got)
}

func TestTableNumericSort(t *testing.T) {
	// Q2, Q10, Q1 in the input must render as Q1, Q2, Q10.
	ts := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	records := []usage.Record{
		record("Q2", "A", ts, 1),
		record("Q10", "B", ts, 2),
		record("Q1", "C", ts, 3),
	}

	got := Table(records)

	iQ1 := strings.Index(got, "[[Q1]]")
	iQ2 := strings.Index(got, "[[Q2]]")
	iQ10 := strings.Index(got, "[[Q10]]")
	require.NotEqual(t, -1, iQ1)
	require.NotEqual(t, -1, iQ2)
	require.NotEqual(t, -1, iQ10)
	assert.Less(t, iQ1, iQ2)
	assert.Less(t, iQ2, iQ10)
}

func TestTableDoesNotMutateInput(t *testing.T) {
	ts := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	records := []usage.Record{
		record("Q2", "A", ts, 1),
		record("Q1", "B", ts, 1),
	}

	_ = Table(records)
	assert.Equal(t, "Q2", records[0].QID)
}

func TestTableEmpty(t *testing.T) {
	got := Table(nil)
	assert.True(t, strings.HasPrefix(got, `{| class="wikitable sortable"`))
	assert.True(t, strings.HasSuffix(got, "|}"))
	assert.NotContains(t, got, "[[Q")
}

func TestReportWrapper(t *testing.T) {
	generatedAt := utc.Time{Time: time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)}

	got := Report("TABLE-PLACEHOLDER", generatedAt)

	assert.True(t, strings.HasPrefix(got, "Update: <onlyinclude>2023-01-02, 03:04 (UTC)</onlyinclude>"))
	assert.Contains(t, got, "TABLE-PLACEHOLDER")
	assert.Contains(t, got, "[https://commons-query.wikimedia.org/ WCQS]")
	assert.True(t, strings.HasSuffix(got, "[[Category:Database reports|Deleted Wikidata entities used in SDC]]"))
}

func TestRenderEndToEnd(t *testing.T) {
	// DeletedItems = [{Q5, Alice, 20230101000000}], one surviving triple,
	// empty exclusion set: one row with count 1.
	records := []usage.Record{
		record("Q5", "Alice", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 1),
	}
	generatedAt := utc.Time{Time: time.Date(2023, 2, 1, 10, 30, 0, 0, time.UTC)}

	got := Render(records, generatedAt)

	assert.Contains(t, got, "| [[Q5]] || [[User:Alice|Alice]] || 2023-01-01 00:00:00 || 1")
	assert.Contains(t, got, "2023-02-01, 10:30 (UTC)")
}
