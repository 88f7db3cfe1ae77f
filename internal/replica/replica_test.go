package replica

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikidata-reports/sdcusage/pkg/errors"
	"github.com/wikidata-reports/sdcusage/pkg/logging"
)

func writeDefaultsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replica.my.cnf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadDefaultsFile(t *testing.T) {
	path := writeDefaultsFile(t, "[client]\nuser = s12345\npassword = hunter2\n")

	user, password, err := readDefaultsFile(path)
	require.NoError(t, err)
	assert.Equal(t, "s12345", user)
	assert.Equal(t, "hunter2", password)
}

func TestReadDefaultsFileMissing(t *testing.T) {
	_, _, err := readDefaultsFile(filepath.Join(t.TempDir(), "absent.cnf"))
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestReadDefaultsFileNoUser(t *testing.T) {
	path := writeDefaultsFile(t, "[client]\npassword = hunter2\n")

	_, _, err := readDefaultsFile(path)
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Contains(t, err.Error(), "no [client] user")
}

func TestDSN(t *testing.T) {
	path := writeDefaultsFile(t, "[client]\nuser = s12345\npassword = hunter2\n")

	s := NewSource(Config{
		Host:         DefaultHost,
		Database:     DefaultDatabase,
		DefaultsFile: path,
	}, logging.NewTestLogger(t).Logger)

	dsn, err := s.dsn()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "s12345:hunter2@tcp("), dsn)
	assert.Contains(t, dsn, DefaultHost)
	assert.Contains(t, dsn, "/"+DefaultDatabase)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultDatabase, cfg.Database)
	assert.True(t, strings.HasSuffix(cfg.DefaultsFile, "replica.my.cnf"))
}
