package sdcusage

import (
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/wikidata-reports/sdcusage/internal/publish"
	"github.com/wikidata-reports/sdcusage/internal/replica"
	"github.com/wikidata-reports/sdcusage/pkg/prefixes"
)

// Option is a function that configures a Pipeline instance.
type Option func(*config) error

// config collects everything a Pipeline run needs. Defaults match the
// production report job on Toolforge.
type config struct {
	logger       *zerolog.Logger
	endpoint     string
	tokenFile    string
	chunkSize    int
	delay        time.Duration
	snapshotPath string
	dryRun       bool
	dryRunOut    io.Writer
	httpClient   *http.Client
	table        *prefixes.Table
	source       DeletedItemSource
	sink         ReportSink
	replicaCfg   replica.Config
	wikiAPI      string
	wikiPage     string
	wikiCreds    publish.Credentials
}

// WithLogger sets the logger used by every pipeline stage.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithEndpoint overrides the WCQS SPARQL endpoint URL.
func WithEndpoint(endpoint string) Option {
	return func(c *config) error {
		c.endpoint = endpoint
		return nil
	}
}

// WithTokenFile sets the path of the WCQS OAuth token file.
func WithTokenFile(path string) Option {
	return func(c *config) error {
		c.tokenFile = path
		return nil
	}
}

// WithChunkSize sets the VALUES window size for batched queries.
func WithChunkSize(size int) Option {
	return func(c *config) error {
		c.chunkSize = size
		return nil
	}
}

// WithDelay sets the fixed inter-request delay of the batch loop.
func WithDelay(delay time.Duration) Option {
	return func(c *config) error {
		c.delay = delay
		return nil
	}
}

// WithSnapshotPath sets where the debug snapshot database is written.
// An empty path disables the snapshot.
func WithSnapshotPath(path string) Option {
	return func(c *config) error {
		c.snapshotPath = path
		return nil
	}
}

// WithDryRun writes the rendered report to out instead of publishing.
func WithDryRun(out io.Writer) Option {
	return func(c *config) error {
		c.dryRun = true
		c.dryRunOut = out
		return nil
	}
}

// WithHTTPClient replaces the HTTP client used for WCQS and the wiki API.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) error {
		c.httpClient = hc
		return nil
	}
}

// WithPrefixTable replaces the namespace prefix table.
func WithPrefixTable(table *prefixes.Table) Option {
	return func(c *config) error {
		c.table = table
		return nil
	}
}

// WithDeletedItemSource replaces the replica-backed deleted item source.
func WithDeletedItemSource(source DeletedItemSource) Option {
	return func(c *config) error {
		c.source = source
		return nil
	}
}

// WithReportSink replaces the wiki publish sink.
func WithReportSink(sink ReportSink) Option {
	return func(c *config) error {
		c.sink = sink
		return nil
	}
}

// WithReplicaConfig overrides the replica database configuration.
func WithReplicaConfig(cfg replica.Config) Option {
	return func(c *config) error {
		c.replicaCfg = cfg
		return nil
	}
}

// WithWikiCredentials sets the bot-password account used for publishing.
func WithWikiCredentials(username, password string) Option {
	return func(c *config) error {
		c.wikiCreds = publish.Credentials{Username: username, Password: password}
		return nil
	}
}

// WithWikiTarget overrides the wiki API endpoint and report page.
func WithWikiTarget(apiEndpoint, page string) Option {
	return func(c *config) error {
		c.wikiAPI = apiEndpoint
		c.wikiPage = page
		return nil
	}
}
