package snapshot

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikidata-reports/sdcusage/pkg/usage"
)

func TestWriteAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	records := []usage.Record{
		{QID: "Q1", Admin: "Alice", DeletedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Count: 3},
		{QID: "Q2", Admin: "Bob", DeletedAt: time.Date(2023, 2, 1, 12, 30, 0, 0, time.UTC), Count: 1},
	}

	require.NoError(t, Write(context.Background(), path, records))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rows, err := db.Query(`SELECT qid, admin, deleted_at, cnt FROM usage_records ORDER BY qid`)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var got []usage.Record
	for rows.Next() {
		var r usage.Record
		var deletedAt string
		require.NoError(t, rows.Scan(&r.QID, &r.Admin, &deletedAt, &r.Count))
		r.DeletedAt, err = time.Parse("2006-01-02 15:04:05", deletedAt)
		require.NoError(t, err)
		got = append(got, r)
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, records, got)
}

func TestWriteReplacesPreviousSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	ts := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, Write(context.Background(), path, []usage.Record{
		{QID: "Q1", Admin: "A", DeletedAt: ts, Count: 1},
		{QID: "Q2", Admin: "B", DeletedAt: ts, Count: 2},
	}))
	require.NoError(t, Write(context.Background(), path, []usage.Record{
		{QID: "Q3", Admin: "C", DeletedAt: ts, Count: 1},
	}))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM usage_records`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWriteEmptyRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	require.NoError(t, Write(context.Background(), path, nil))
}
