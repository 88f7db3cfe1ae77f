// Package snapshot persists the aggregated result table to a local SQLite
// file for postmortem inspection. The write happens once, near the end of
// the run, and has no effect on the in-run data flow; a failed snapshot
// still fails the run since it signals a broken local environment.
package snapshot

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/wikidata-reports/sdcusage/pkg/errors"
	"github.com/wikidata-reports/sdcusage/pkg/usage"
)

// DefaultPath is where the debug snapshot is written.
const DefaultPath = "./results.db"

const schema = `
CREATE TABLE IF NOT EXISTS usage_records (
	qid        TEXT NOT NULL,
	admin      TEXT NOT NULL,
	deleted_at TEXT NOT NULL,
	cnt        INTEGER NOT NULL
);
DELETE FROM usage_records;
`

// Write replaces the snapshot file's contents with the given records.
func Write(ctx context.Context, path string, records []usage.Record) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return errors.WrapIO("open", path, err)
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapIO("write", path, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return errors.WrapIO("write", path, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO usage_records (qid, admin, deleted_at, cnt) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return errors.WrapIO("write", path, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.QID, r.Admin, r.DeletedAt.Format("2006-01-02 15:04:05"), r.Count); err != nil {
			return errors.WrapIO("write", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
