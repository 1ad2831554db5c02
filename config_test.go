package groundrag

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flarexio/groundrag/embedding"
	"github.com/flarexio/groundrag/resilience"
)

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv(resilience.EnvMaxRetries, "")
	t.Setenv(resilience.EnvBackoffBase, "")
	t.Setenv(EnvCorpusDir, "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigYAML(t *testing.T) {
	assert := assert.New(t)

	t.Setenv(resilience.EnvMaxRetries, "")
	t.Setenv(resilience.EnvBackoffBase, "")
	t.Setenv(EnvCorpusDir, "")

	input := `corpus:
  dir: docs
chunking:
  size: 800
  overlap: 100
embedding:
  provider: openai
  model: text-embedding-3-small
  dimension: 1536
retry:
  maxRetries: 2
  baseDelay: 500ms
search:
  defaultK: 3
`

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(input), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal("docs", cfg.Corpus.Dir)
	assert.Equal(800, cfg.Chunking.Size)
	assert.Equal(100, cfg.Chunking.Overlap)
	assert.Equal(embedding.ProviderOpenAI, cfg.Embedding.Provider)
	assert.Equal(1536, cfg.Embedding.Dimension)
	assert.Equal(2, cfg.Retry.MaxRetries)
	assert.Equal(500*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(3, cfg.Search.DefaultK)

	// untouched sections keep their defaults
	assert.Equal(DefaultCollection, cfg.Vector.Collection)
	assert.Equal(DefaultExcerptLimit, cfg.Search.ExcerptLimit)
}

func TestLoadConfigEmptyFile(t *testing.T) {
	t.Setenv(EnvCorpusDir, "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultCorpusDir, cfg.Corpus.Dir)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv(EnvCorpusDir, "/srv/rules")
	t.Setenv(resilience.EnvMaxRetries, "7")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "/srv/rules", cfg.Corpus.Dir)
	assert.Equal(t, 7, cfg.Retry.MaxRetries)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, LoadEnvFile(filepath.Join(dir, ".env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("GROUNDRAG_TEST_KEY=from-file\n"), 0o644))

	t.Setenv("GROUNDRAG_TEST_KEY", "")
	os.Unsetenv("GROUNDRAG_TEST_KEY")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("GROUNDRAG_TEST_KEY"))
}

func TestResolve(t *testing.T) {
	assert := assert.New(t)

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, DefaultCorpusDir), 0o755))

	nested := filepath.Join(root, "services", "api")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg := DefaultConfig().Resolve(nested)

	assert.Equal(filepath.Join(root, DefaultCorpusDir), cfg.Corpus.Dir)
	assert.Equal(filepath.Join(root, DefaultIndexPath), cfg.Vector.Path)
}

func TestResolveAbsolutePaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Corpus.Dir = "/data/corpus"
	cfg.Vector.Path = "/data/index"

	resolved := cfg.Resolve(t.TempDir())

	assert.Equal(t, "/data/corpus", resolved.Corpus.Dir)
	assert.Equal(t, "/data/index", resolved.Vector.Path)
}
