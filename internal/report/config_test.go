package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "dwhmon/pkg/domain-errors"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeRules(t, `{"aggregation": {"top_users": 5}}`)
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Aggregation.TopUsers)
		// Untouched sections keep their defaults.
		assert.Equal(t, DefaultConfig().Dates, cfg.Dates)
	})

	t.Run("missing file is a configuration error", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeConfig, dErrors.CodeOf(err))
	})

	t.Run("malformed JSON is a configuration error", func(t *testing.T) {
		_, err := LoadConfig(writeRules(t, `{"rules": `))
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeConfig, dErrors.CodeOf(err))
	})

	t.Run("contradictory rules fail validation", func(t *testing.T) {
		path := writeRules(t, `{"rules": {"keep_list": {"p-1": "anonymous_birth"}, "always_duplicate_ids": ["p-1"]}}`)
		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeConfig, dErrors.CodeOf(err))
	})
}

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
