// Package wikitext renders the aggregated usage records into the fixed
// wikitext report published on-wiki. The markup is part of the report
// page's contract: the table header, row shape, wrapper text and category
// marker are all replicated byte for byte.
package wikitext

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentstation/utc"

	"github.com/wikidata-reports/sdcusage/pkg/usage"
)

// tableTimeLayout is how deletion times appear in table rows.
const tableTimeLayout = "2006-01-02 15:04:05"

// updateTimeLayout is how the generation timestamp appears in the report
// header.
const updateTimeLayout = "2006-01-02, 15:04"

// Table renders the wikitable. Records are sorted by the numeric suffix of
// the item id ascending, so Q2 sorts before Q10.
func Table(records []usage.Record) string {
	sorted := make([]usage.Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return usage.QNumber(sorted[i].QID) < usage.QNumber(sorted[j].QID)
	})

	var b strings.Builder
	b.WriteString(`{| class="wikitable sortable" style="margin:auto;"
|-
! item !! deleted by !! deletion time !! SDC uses
`)
	for _, r := range sorted {
		fmt.Fprintf(&b, "|-\n| [[%s]] || [[User:%s|%s]] || %s || %d\n",
			r.QID, r.Admin, r.Admin, r.DeletedAt.Format(tableTimeLayout), r.Count)
	}
	b.WriteString("|}")
	return b.String()
}

// Report wraps the rendered table in the report page template: generation
// timestamp, usage instructions, and the database-report category marker.
func Report(table string, generatedAt utc.Time) string {
	return fmt.Sprintf(`Update: <onlyinclude>%s (UTC)</onlyinclude>

In order to find usage, visit [https://commons-query.wikimedia.org/ WCQS], log in, and run a query such as: {{SPARQL|project=sdc|query=SELECT ?s ?p WHERE { ?s ?p wd:Q42 } }}

The first column <code>?s</code> represents in most cases [[:mw:Extension:WikibaseMediaInfo#MediaInfo Entity|MediaInfo entities]] or SDC statement nodes. These links redirect to the file page that is using the queried Wikidata item via SDC. For (rare) usage in reference nodes, more sophisticated queries need to be run in order to find the page using the deleted entity.

%s

[[Category:Database reports|Deleted Wikidata entities used in SDC]]`,
		generatedAt.Format(updateTimeLayout), table)
}

// Render is the convenience composition of Table and Report.
func Render(records []usage.Record, generatedAt utc.Time) string {
	return Report(Table(records), generatedAt)
}
