package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/wikidata-reports/sdcusage/internal/fetcher"
	"github.com/wikidata-reports/sdcusage/internal/publish"
	"github.com/wikidata-reports/sdcusage/internal/replica"
	"github.com/wikidata-reports/sdcusage/internal/snapshot"
	"github.com/wikidata-reports/sdcusage/internal/sparql"
)

// Config holds the application configuration loaded from flags,
// environment variables, .env files, and the optional config file.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool

	// Config file
	ConfigFile string

	// Pipeline configuration
	TokenFile    string
	Endpoint     string
	ChunkSize    int
	Delay        time.Duration
	SnapshotPath string

	// Replica database
	ReplicaHost         string
	ReplicaDatabase     string
	ReplicaDefaultsFile string

	// Publish target and credentials
	WikiAPI      string
	WikiPage     string
	WikiUsername string
	WikiPassword string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.sdcusage.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults()

	// Try the explicit config file, then the standard locations.
	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".sdcusage")
		}
	}

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()

	replicaDefaults := replica.DefaultConfig()

	config := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no_color"),

		ConfigFile: configFile,

		TokenFile:    viper.GetString("token_file"),
		Endpoint:     viper.GetString("endpoint"),
		ChunkSize:    viper.GetInt("chunk_size"),
		Delay:        viper.GetDuration("delay"),
		SnapshotPath: viper.GetString("snapshot_path"),

		ReplicaHost:         stringOr(viper.GetString("replica_host"), replicaDefaults.Host),
		ReplicaDatabase:     stringOr(viper.GetString("replica_database"), replicaDefaults.Database),
		ReplicaDefaultsFile: stringOr(viper.GetString("replica_defaults_file"), replicaDefaults.DefaultsFile),

		WikiAPI:      viper.GetString("wiki_api"),
		WikiPage:     viper.GetString("wiki_page"),
		WikiUsername: viper.GetString("wiki_username"),
		WikiPassword: viper.GetString("wiki_password"),

		LogLevel:  viper.GetString("log_level"),
		LogFormat: viper.GetString("log_format"),
		LogOutput: viper.GetString("log_output"),
	}

	return config, nil
}

// setDefaults registers the production defaults with viper.
func setDefaults() {
	viper.SetDefault("token_file", sparql.DefaultTokenFile)
	viper.SetDefault("endpoint", sparql.DefaultEndpoint)
	viper.SetDefault("chunk_size", fetcher.DefaultChunkSize)
	viper.SetDefault("delay", 2*time.Second)
	viper.SetDefault("snapshot_path", snapshot.DefaultPath)
	viper.SetDefault("wiki_api", publish.DefaultAPIEndpoint)
	viper.SetDefault("wiki_page", publish.DefaultPage)
}

// loadEnvFiles loads .env files from the working directory if present.
func loadEnvFiles() {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

// stringOr returns value, or fallback when value is empty.
func stringOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// UpdateFromFlags applies parsed global flag values onto the config.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}
