package app

import (
	"fmt"

	"github.com/spf13/cobra"

	sdcusage "github.com/wikidata-reports/sdcusage"
	"github.com/wikidata-reports/sdcusage/internal/replica"
)

// NewReportCommand creates the report command, which runs the full
// reconciliation pipeline and publishes the result.
func (a *App) NewReportCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run the reconciliation pipeline and publish the report",
		Long: `Report pulls the deleted-item list from the wiki replica, fetches
candidate usages from WCQS in throttled batches, validates reference
nodes, aggregates surviving usages per item, and overwrites the on-wiki
report page. With --dry-run the rendered report is printed to stdout
instead of being published.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.Config()

			opts := []sdcusage.Option{
				sdcusage.WithLogger(a.Logger()),
				sdcusage.WithEndpoint(cfg.Endpoint),
				sdcusage.WithTokenFile(cfg.TokenFile),
				sdcusage.WithChunkSize(cfg.ChunkSize),
				sdcusage.WithDelay(cfg.Delay),
				sdcusage.WithSnapshotPath(cfg.SnapshotPath),
				sdcusage.WithReplicaConfig(replica.Config{
					Host:         cfg.ReplicaHost,
					Database:     cfg.ReplicaDatabase,
					DefaultsFile: cfg.ReplicaDefaultsFile,
				}),
				sdcusage.WithWikiTarget(cfg.WikiAPI, cfg.WikiPage),
				sdcusage.WithWikiCredentials(cfg.WikiUsername, cfg.WikiPassword),
			}
			if dryRun {
				opts = append(opts, sdcusage.WithDryRun(cmd.OutOrStdout()))
			}

			pipeline, err := sdcusage.New(opts...)
			if err != nil {
				return err
			}
			return pipeline.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the report instead of publishing it")
	cmd.Flags().String("token-file", "", "path of the WCQS OAuth token file")
	cmd.Flags().Int("chunk-size", 0, "item ids per VALUES window")
	cmd.Flags().Duration("delay", 0, "fixed delay between WCQS requests")
	cmd.Flags().String("snapshot", "", "path of the debug snapshot database")

	// Per-command flag overrides land on the loaded config before RunE.
	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		if v, _ := cmd.Flags().GetString("token-file"); v != "" {
			a.config.TokenFile = v
		}
		if v, _ := cmd.Flags().GetInt("chunk-size"); v > 0 {
			a.config.ChunkSize = v
		}
		if v, _ := cmd.Flags().GetDuration("delay"); v > 0 {
			a.config.Delay = v
		}
		if v, _ := cmd.Flags().GetString("snapshot"); v != "" {
			a.config.SnapshotPath = v
		}
		return nil
	}

	return cmd
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sdcusage %s (commit %s, built %s)\n", a.version, a.commit, a.date)
		},
	}
}
