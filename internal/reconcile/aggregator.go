// Package reconcile joins the surviving usage triples with deletion
// metadata and produces the per-item records the report renders. The
// pipeline is pure: identical inputs yield an identical, deterministically
// ordered record slice.
package reconcile

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/wikidata-reports/sdcusage/pkg/errors"
	"github.com/wikidata-reports/sdcusage/pkg/usage"
)

// MinGenuineSubjectLen separates long-form structured-data node ids from
// short-form raw identifiers: only rows whose subject is strictly longer
// than this count as genuine usage evidence. The threshold is a heuristic
// inherited from the production report and is reproduced exactly; a
// structural check on the subject's namespace tag would be more principled
// but has not been validated against the live data.
const MinGenuineSubjectLen = 12

// Aggregator builds usage records from raw triples.
type Aggregator struct {
	logger *zerolog.Logger
}

// New creates an Aggregator.
func New(logger *zerolog.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Aggregate filters the triples against the exclusion set, joins them to
// deletion metadata, and counts usages per item.
//
// The count for an item covers every surviving triple, while the item
// appears at all only if at least one of its triples passes the subject
// length threshold. That asymmetry matches the production report.
func (a *Aggregator) Aggregate(triples []usage.Triple, deleted []usage.DeletedItem, excluded map[string]struct{}) ([]usage.Record, error) {
	meta := make(map[string]usage.DeletedItem, len(deleted))
	for _, d := range deleted {
		meta[d.QID] = d
	}

	counts := make(map[string]int)
	genuine := make(map[string]struct{})

	for _, t := range triples {
		if _, ok := excluded[t.Subject]; ok {
			continue
		}
		if _, ok := meta[t.Item]; !ok {
			// Fetch windows are keyed by the deleted-item list, so an
			// unmatched item means the two sources diverged mid-run.
			a.logger.Warn().Str("item", t.Item).Msg("Usage row references unknown item, skipping")
			continue
		}
		counts[t.Item]++
		if len(t.Subject) > MinGenuineSubjectLen {
			genuine[t.Item] = struct{}{}
		}
	}

	records := make([]usage.Record, 0, len(genuine))
	for qid := range genuine {
		item := meta[qid]
		deletedAt, err := item.DeletedAt()
		if err != nil {
			return nil, errors.NewParseError("timestamp", item.Timestamp, "deletion timestamp is not YYYYMMDDHHMMSS", err)
		}
		records = append(records, usage.Record{
			QID:       qid,
			Admin:     item.Admin,
			DeletedAt: deletedAt,
			Count:     counts[qid],
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return usage.QNumber(records[i].QID) < usage.QNumber(records[j].QID)
	})

	return records, nil
}
