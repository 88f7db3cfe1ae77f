// Package validator confirms which observed reference nodes are orphaned.
// A usage row whose subject lives in the reference-node namespace may
// belong to a statement that is itself already gone; such rows must not be
// reported. The check is one existential left-anti-join per window: match
// anything still derived from the candidate, keep candidates with no match.
package validator

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/wikidata-reports/sdcusage/internal/fetcher"
	"github.com/wikidata-reports/sdcusage/internal/sparql"
	"github.com/wikidata-reports/sdcusage/pkg/prefixes"
	"github.com/wikidata-reports/sdcusage/pkg/usage"
)

// queryTemplate selects the candidates for which no statement or entity
// still derives from the reference node.
const queryTemplate = `SELECT ?sdcref WHERE {
  VALUES ?sdcref { %s }
  OPTIONAL { ?m ?p [ prov:wasDerivedFrom ?sdcref ] }
  FILTER(!BOUND(?m)) .
}`

// Validator runs the orphaned-reference check.
type Validator struct {
	client    *sparql.Client
	table     *prefixes.Table
	chunkSize int
	limiter   *rate.Limiter
	logger    *zerolog.Logger
}

// New creates a Validator sharing the fetcher's windowing and pacing
// configuration. The original tool sent one unbounded query here; chunking
// is a deliberate hardening so the candidate set can never exceed the
// endpoint's query-size limit.
func New(client *sparql.Client, table *prefixes.Table, chunkSize int, limiter *rate.Limiter, logger *zerolog.Logger) *Validator {
	if chunkSize <= 0 {
		chunkSize = fetcher.DefaultChunkSize
	}
	return &Validator{
		client:    client,
		table:     table,
		chunkSize: chunkSize,
		limiter:   limiter,
		logger:    logger,
	}
}

// Candidates extracts the distinct reference-node local ids from the
// fetched triples, sorted for deterministic query construction.
func Candidates(triples []usage.Triple) []string {
	seen := make(map[string]struct{})
	for _, t := range triples {
		if t.SubjectTag == prefixes.TagSDCReference {
			seen[t.Subject] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Orphaned returns the subset of candidate reference ids with no surviving
// dependent node. These form the exclusion set: no excluded id may
// contribute to any reported usage count.
func (v *Validator) Orphaned(ctx context.Context, candidates []string) (map[string]struct{}, error) {
	orphaned := make(map[string]struct{})
	refPrefix := v.table.IRI(prefixes.TagSDCReference)

	for _, window := range fetcher.Chunks(candidates, v.chunkSize) {
		if err := v.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		query := fmt.Sprintf(queryTemplate, sparql.Values("sdcref", window))
		bindings, err := v.client.Query(ctx, query)
		if err != nil {
			return nil, err
		}
		v.logger.Info().Int("rows", len(bindings)).Msg("Found results in reference node validation")

		for _, binding := range bindings {
			iri, err := binding.Value("sdcref")
			if err != nil {
				return nil, err
			}
			id := iri
			if len(refPrefix) > 0 && len(iri) > len(refPrefix) && iri[:len(refPrefix)] == refPrefix {
				id = iri[len(refPrefix):]
			}
			orphaned[id] = struct{}{}
		}
	}

	return orphaned, nil
}
