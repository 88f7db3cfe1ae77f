// Package usage defines the data model flowing through the reconciliation
// pipeline: deleted items pulled from the replica database, usage triples
// fetched from WCQS, and the aggregated per-item records the report is
// rendered from.
package usage

import (
	"strconv"
	"strings"
	"time"

	"github.com/wikidata-reports/sdcusage/pkg/prefixes"
)

// DeletedItem is one deleted Wikidata item as recorded in the deletion log.
// Produced once per run by the replica source; immutable thereafter.
type DeletedItem struct {
	// QID is the item identifier, e.g. "Q42".
	QID string

	// Admin is the name of the administrator who performed the deletion.
	Admin string

	// Timestamp is the raw deletion timestamp in the wiki's 14-digit
	// YYYYMMDDHHMMSS layout.
	Timestamp string
}

// TimestampLayout is the wiki log timestamp layout.
const TimestampLayout = "20060102150405"

// DeletedAt parses the raw deletion timestamp.
func (d DeletedItem) DeletedAt() (time.Time, error) {
	return time.Parse(TimestampLayout, d.Timestamp)
}

// Triple is one usage of a deleted item observed in the semantic store,
// already compacted through the prefix table. Item is a soft reference to
// a DeletedItem.QID, enforced only by the aggregation join.
type Triple struct {
	// Subject is the compacted local id of the node using the item.
	Subject string

	// SubjectTag is the namespace the subject was compacted from.
	SubjectTag prefixes.Tag

	// Predicate is the compacted local id of the linking property.
	Predicate string

	// Item is the QID of the referenced (deleted) item.
	Item string
}

// Record is one row of the final report: a deleted item together with its
// deletion metadata and the count of surviving usages. Items with zero
// surviving usages produce no Record.
type Record struct {
	QID       string
	Admin     string
	DeletedAt time.Time
	Count     int
}

// QNumber returns the numeric suffix of a QID for numeric ordering
// ("Q10" → 10). Malformed ids sort first as zero rather than failing:
// they cannot occur past the replica source's Q-prefix filter.
func QNumber(qid string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(qid, "Q"))
	if err != nil {
		return 0
	}
	return n
}
