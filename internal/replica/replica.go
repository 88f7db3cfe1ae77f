// Package replica pulls the deleted-item list from the wikidatawiki
// analytics replica. For every deleted mainspace Q-title that does not
// currently exist as a live page it returns the latest deletion log entry:
// who deleted it and when, ordered by the numeric item suffix.
package replica

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/wikidata-reports/sdcusage/pkg/errors"
	"github.com/wikidata-reports/sdcusage/pkg/usage"
)

// Defaults for the Toolforge analytics replica.
const (
	DefaultHost     = "wikidatawiki.analytics.db.svc.wikimedia.cloud"
	DefaultDatabase = "wikidatawiki_p"
)

// deletedItemsQuery restricts to the latest deletion log entry per title,
// mainspace Q-titles only, excluding titles that exist as live pages.
const deletedItemsQuery = `WITH latest AS (
  SELECT
    log_title,
    MAX(log_timestamp) AS max_log_timestamp
  FROM
    logging
  WHERE
    log_namespace=0
    AND log_type='delete'
    AND log_action='delete'
    AND log_title LIKE 'Q%'
    AND log_title NOT IN (
      SELECT
        page_title
      FROM
        page
      WHERE
        page_namespace=0
    )
  GROUP BY
    log_title
) SELECT
  CONVERT(l.log_title USING utf8) AS qid,
  CONVERT(a.actor_name USING utf8) AS admin,
  CONVERT(l.log_timestamp USING utf8) AS ts
FROM
  logging_userindex AS l
    JOIN actor_logging AS a ON l.log_actor=a.actor_id
    INNER JOIN latest AS g ON l.log_title=g.log_title AND l.log_timestamp=g.max_log_timestamp
ORDER BY
  CAST(SUBSTRING(l.log_title, 2) AS int) ASC`

// Config locates the replica and its credentials file.
type Config struct {
	Host         string
	Database     string
	DefaultsFile string // my.cnf with a [client] user/password section
}

// DefaultConfig returns the standard Toolforge configuration, with
// credentials in ~/replica.my.cnf.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Host:         DefaultHost,
		Database:     DefaultDatabase,
		DefaultsFile: filepath.Join(home, "replica.my.cnf"),
	}
}

// Source reads deleted items from the replica database.
type Source struct {
	cfg    Config
	logger *zerolog.Logger
}

// NewSource creates a Source.
func NewSource(cfg Config, logger *zerolog.Logger) *Source {
	return &Source{cfg: cfg, logger: logger}
}

// DeletedItems runs the deletion-log query and returns one DeletedItem per
// row. Rows whose title does not start with "Q" are skipped.
func (s *Source) DeletedItems(ctx context.Context) ([]usage.DeletedItem, error) {
	dsn, err := s.dsn()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.NewConfigError("replica", "cannot open replica connection", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, deletedItemsQuery)
	if err != nil {
		return nil, errors.WrapAPI(s.cfg.Host, 0, err)
	}
	defer func() { _ = rows.Close() }()

	var items []usage.DeletedItem
	for rows.Next() {
		var item usage.DeletedItem
		if err := rows.Scan(&item.QID, &item.Admin, &item.Timestamp); err != nil {
			return nil, errors.NewDataShapeError("qid", "", "unexpected replica row shape: "+err.Error())
		}
		if !strings.HasPrefix(item.QID, "Q") {
			continue
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapAPI(s.cfg.Host, 0, err)
	}

	s.logger.Info().Int("count", len(items)).Msg("Found deleted items")
	return items, nil
}

// dsn assembles the driver DSN from config and the my.cnf defaults file.
func (s *Source) dsn() (string, error) {
	user, password, err := readDefaultsFile(s.cfg.DefaultsFile)
	if err != nil {
		return "", err
	}

	mc := mysql.NewConfig()
	mc.User = user
	mc.Passwd = password
	mc.Net = "tcp"
	mc.Addr = s.cfg.Host
	mc.DBName = s.cfg.Database
	return mc.FormatDSN(), nil
}

// readDefaultsFile reads the [client] credentials from a my.cnf file.
func readDefaultsFile(path string) (user, password string, err error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return "", "", errors.NewConfigError("replica",
			fmt.Sprintf("cannot read credentials file %s", path), err)
	}

	user = v.GetString("client.user")
	password = v.GetString("client.password")
	if user == "" {
		return "", "", errors.NewConfigError("replica",
			fmt.Sprintf("no [client] user in %s", path), nil)
	}
	return user, password, nil
}
