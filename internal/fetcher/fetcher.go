// Package fetcher pulls candidate usages of deleted items out of WCQS in
// bounded-size batches. The loop is deliberately sequential: one VALUES
// query per window, paced by a rate limiter, failing the whole run on the
// first bad response. Concurrency can be layered onto the work queue later
// without changing the external contract.
package fetcher

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/wikidata-reports/sdcusage/internal/sparql"
	"github.com/wikidata-reports/sdcusage/pkg/prefixes"
	"github.com/wikidata-reports/sdcusage/pkg/usage"
)

// DefaultChunkSize is the number of item ids per VALUES window. WCQS
// handles 10k-term VALUES lists; larger windows risk query-size limits.
const DefaultChunkSize = 10_000

// queryTemplate asks for every triple whose object is one of the window's
// items.
const queryTemplate = `SELECT ?file ?predicate ?item WHERE {
  VALUES ?item {
    %s
  }
  ?file ?predicate ?item .
}`

// Fetcher issues windowed usage queries against a SPARQL endpoint.
type Fetcher struct {
	client    *sparql.Client
	table     *prefixes.Table
	chunkSize int
	limiter   *rate.Limiter
	logger    *zerolog.Logger
}

// New creates a Fetcher. The limiter paces the batch loop; pass a limiter
// built with rate.Every(delay) and burst 1 for the fixed inter-request
// delay contract.
func New(client *sparql.Client, table *prefixes.Table, chunkSize int, limiter *rate.Limiter, logger *zerolog.Logger) *Fetcher {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Fetcher{
		client:    client,
		table:     table,
		chunkSize: chunkSize,
		limiter:   limiter,
		logger:    logger,
	}
}

// Chunks splits keys into consecutive windows of size, the last window
// possibly shorter. Concatenating the result reproduces keys in order.
func Chunks(keys []string, size int) [][]string {
	if size <= 0 || len(keys) == 0 {
		if len(keys) == 0 {
			return nil
		}
		return [][]string{keys}
	}
	out := make([][]string, 0, (len(keys)+size-1)/size)
	for i := 0; i < len(keys); i += size {
		end := i + size
		if end > len(keys) {
			end = len(keys)
		}
		out = append(out, keys[i:end])
	}
	return out
}

// Fetch runs one usage query per window of qids and accumulates the
// compacted rows. Progress is logged before each window; any endpoint
// failure aborts immediately with no partial-result salvage.
func (f *Fetcher) Fetch(ctx context.Context, qids []string) ([]usage.Triple, error) {
	total := len(qids)
	var triples []usage.Triple

	for i, window := range Chunks(qids, f.chunkSize) {
		offset := i * f.chunkSize
		pct := 0.0
		if total > 0 {
			pct = float64(offset) / float64(total) * 100
		}
		f.logger.Info().
			Int("offset", offset).
			Int("total", total).
			Str("progress", fmt.Sprintf("%.2f%%", pct)).
			Msg("Fetching usage batch")

		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		query := fmt.Sprintf(queryTemplate, sparql.Values("wd", window))
		bindings, err := f.client.Query(ctx, query)
		if err != nil {
			return nil, err
		}
		f.logger.Info().Int("rows", len(bindings)).Msg("Usage batch returned")

		for _, binding := range bindings {
			triple, err := f.compact(binding)
			if err != nil {
				return nil, err
			}
			triples = append(triples, triple)
		}
	}

	return triples, nil
}

// compact turns one result row into a Triple through the prefix table.
// Subjects outside every known namespace keep their full IRI and an empty
// tag; only the reference-node namespace tag is load-bearing downstream.
func (f *Fetcher) compact(binding sparql.Binding) (usage.Triple, error) {
	subjectIRI, err := binding.Value("file")
	if err != nil {
		return usage.Triple{}, err
	}
	predicateIRI, err := binding.Value("predicate")
	if err != nil {
		return usage.Triple{}, err
	}
	itemIRI, err := binding.Value("item")
	if err != nil {
		return usage.Triple{}, err
	}

	subjectTag, subject, _ := f.table.Compact(subjectIRI)
	_, predicate, _ := f.table.Compact(predicateIRI)
	_, item, _ := f.table.Compact(itemIRI)

	return usage.Triple{
		Subject:    subject,
		SubjectTag: subjectTag,
		Predicate:  predicate,
		Item:       item,
	}, nil
}
