package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traylinx/channelforge/internal/channel"
)

const sampleCatalog = `models:
  - gpt-4o
  - gpt-4o-mini
  - claude-3-5-sonnet
type-models:
  1:
    - gpt-4o
    - gpt-4o-mini
  14:
    - claude-3-5-sonnet
groups:
  - default
  - vip
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileCatalog_Load(t *testing.T) {
	c, err := NewFileCatalog(writeCatalog(t, sampleCatalog))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini", "claude-3-5-sonnet"}, c.ListAvailableModels())
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, c.ListModelsForType(channel.TypeOpenAI))
	assert.Equal(t, []string{"claude-3-5-sonnet"}, c.ListModelsForType(channel.ProviderType(14)))
	assert.Empty(t, c.ListModelsForType(channel.ProviderType(999)))
	assert.Equal(t, []string{"default", "vip"}, c.ListGroups())
}

func TestFileCatalog_MissingFile(t *testing.T) {
	_, err := NewFileCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestFileCatalog_InvalidYAML(t *testing.T) {
	_, err := NewFileCatalog(writeCatalog(t, "models: [unclosed"))
	assert.Error(t, err)
}

func TestFileCatalog_ReturnsCopies(t *testing.T) {
	c, err := NewFileCatalog(writeCatalog(t, sampleCatalog))
	require.NoError(t, err)
	defer c.Close()

	models := c.ListAvailableModels()
	models[0] = "mutated"
	assert.Equal(t, "gpt-4o", c.ListAvailableModels()[0])
}

func TestFileCatalog_WatchReloads(t *testing.T) {
	path := writeCatalog(t, sampleCatalog)
	c, err := NewFileCatalog(path)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Watch())

	require.NoError(t, os.WriteFile(path, []byte("models:\n  - only-one\ngroups:\n  - default\n"), 0o644))

	deadline := time.After(3 * time.Second)
	for {
		if m := c.ListAvailableModels(); len(m) == 1 && m[0] == "only-one" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("catalog was not reloaded after the file changed")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestFileCatalog_FailedReloadKeepsPrevious(t *testing.T) {
	path := writeCatalog(t, sampleCatalog)
	c, err := NewFileCatalog(path)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Watch())

	require.NoError(t, os.WriteFile(path, []byte("models: [broken"), 0o644))
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini", "claude-3-5-sonnet"}, c.ListAvailableModels())
}
