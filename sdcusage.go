// Package sdcusage reconciles deleted Wikidata items against the Wikimedia
// Commons structured-data store and publishes a report of dangling
// references. A run is strictly sequential: pull the deleted-item list,
// fetch candidate usages from WCQS in throttled windows, discard orphaned
// reference nodes, aggregate surviving usages per item, render the
// wikitext table and overwrite the report page. The first error at any
// stage terminates the run; nothing is published on a partial result.
package sdcusage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/agentstation/utc"
	"golang.org/x/time/rate"

	"github.com/wikidata-reports/sdcusage/internal/fetcher"
	"github.com/wikidata-reports/sdcusage/internal/publish"
	"github.com/wikidata-reports/sdcusage/internal/reconcile"
	"github.com/wikidata-reports/sdcusage/internal/replica"
	"github.com/wikidata-reports/sdcusage/internal/snapshot"
	"github.com/wikidata-reports/sdcusage/internal/sparql"
	"github.com/wikidata-reports/sdcusage/internal/transport"
	"github.com/wikidata-reports/sdcusage/internal/validator"
	"github.com/wikidata-reports/sdcusage/pkg/logging"
	"github.com/wikidata-reports/sdcusage/pkg/prefixes"
	"github.com/wikidata-reports/sdcusage/pkg/usage"
	"github.com/wikidata-reports/sdcusage/pkg/wikitext"
)

// DefaultDelay is the fixed pause between consecutive WCQS requests.
const DefaultDelay = 2 * time.Second

// DeletedItemSource provides the deleted-item list for a run.
type DeletedItemSource interface {
	DeletedItems(ctx context.Context) ([]usage.DeletedItem, error)
}

// ReportSink receives the rendered report.
type ReportSink interface {
	Publish(ctx context.Context, text string) error
}

// Pipeline is a configured reconciliation run.
type Pipeline struct {
	config *config
}

// New creates a Pipeline with the given options applied over the
// production defaults.
func New(opts ...Option) (*Pipeline, error) {
	cfg := &config{
		logger:       logging.Default(),
		endpoint:     sparql.DefaultEndpoint,
		tokenFile:    sparql.DefaultTokenFile,
		chunkSize:    fetcher.DefaultChunkSize,
		delay:        DefaultDelay,
		snapshotPath: snapshot.DefaultPath,
		dryRunOut:    os.Stdout,
		table:        prefixes.Default(),
		replicaCfg:   replica.DefaultConfig(),
		wikiAPI:      publish.DefaultAPIEndpoint,
		wikiPage:     publish.DefaultPage,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return &Pipeline{config: cfg}, nil
}

// Run executes the full pipeline.
func (p *Pipeline) Run(ctx context.Context) error {
	cfg := p.config
	log := cfg.logger

	// Token check is the first thing that happens: a missing token file is
	// fatal before any network activity.
	token, err := sparql.ReadTokenFile(cfg.tokenFile)
	if err != nil {
		return err
	}

	var tcOpts []transport.Option
	if cfg.httpClient != nil {
		tcOpts = append(tcOpts, transport.WithHTTPClient(cfg.httpClient))
	}
	tc := transport.New(tcOpts...)

	client, err := sparql.NewClient(cfg.endpoint, token, tc, log)
	if err != nil {
		return err
	}

	source := cfg.source
	if source == nil {
		source = replica.NewSource(cfg.replicaCfg, log)
	}

	deleted, err := source.DeletedItems(ctx)
	if err != nil {
		return err
	}

	qids := make([]string, len(deleted))
	for i, d := range deleted {
		qids[i] = d.QID
	}

	// One limiter paces both query stages: the fixed inter-request delay
	// applies to every WCQS round trip, not just the usage windows.
	limiter := rate.NewLimiter(rate.Every(cfg.delay), 1)

	f := fetcher.New(client, cfg.table, cfg.chunkSize, limiter, log)
	triples, err := f.Fetch(ctx, qids)
	if err != nil {
		return err
	}

	v := validator.New(client, cfg.table, cfg.chunkSize, limiter, log)
	excluded, err := v.Orphaned(ctx, validator.Candidates(triples))
	if err != nil {
		return err
	}

	records, err := reconcile.New(log).Aggregate(triples, deleted, excluded)
	if err != nil {
		return err
	}
	log.Info().Int("count", len(records)).Msg("Found cases to list on report page")

	if cfg.snapshotPath != "" {
		if err := snapshot.Write(ctx, cfg.snapshotPath, records); err != nil {
			return err
		}
	}

	report := wikitext.Render(records, utc.Now())

	if cfg.dryRun {
		_, err := fmt.Fprintln(cfg.dryRunOut, report)
		return err
	}

	sink := cfg.sink
	if sink == nil {
		sink = publish.New(cfg.wikiAPI, cfg.wikiPage, cfg.wikiCreds, tc, log)
	}
	return sink.Publish(ctx, report)
}
