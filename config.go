package groundrag

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/groundrag/chunker"
	"github.com/flarexio/groundrag/corpus"
	"github.com/flarexio/groundrag/embedding"
	"github.com/flarexio/groundrag/resilience"
	"github.com/flarexio/groundrag/vector"
)

const (
	DefaultCorpusDir    = "AiRules"
	DefaultIndexPath    = "knowledge/rag_index"
	DefaultCollection   = "ai_rules"
	DefaultK            = 6
	DefaultExcerptLimit = 1500

	EnvCorpusDir = "GROUNDRAG_CORPUS_DIR"
)

type Config struct {
	Corpus    CorpusConfig      `yaml:"corpus"`
	Chunking  ChunkingConfig    `yaml:"chunking"`
	Embedding embedding.Config  `yaml:"embedding"`
	Retry     resilience.Config `yaml:"retry"`
	Vector    vector.Config     `yaml:"vector"`
	Search    SearchConfig      `yaml:"search"`
}

type CorpusConfig struct {
	Dir     string   `yaml:"dir"`
	Pattern string   `yaml:"pattern"`
	Markers []string `yaml:"markers"`
}

type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type SearchConfig struct {
	DefaultK     int `yaml:"defaultK"`
	ExcerptLimit int `yaml:"excerptLimit"`
}

func DefaultConfig() Config {
	return Config{
		Corpus: CorpusConfig{
			Dir:     DefaultCorpusDir,
			Pattern: corpus.DefaultPattern,
			Markers: []string{DefaultCorpusDir, "go.mod"},
		},
		Chunking: ChunkingConfig{
			Size:    chunker.DefaultChunkSize,
			Overlap: chunker.DefaultChunkOverlap,
		},
		Embedding: embedding.DefaultConfig(),
		Retry:     resilience.DefaultConfig(),
		Vector: vector.Config{
			Persistent: true,
			Path:       DefaultIndexPath,
			Collection: DefaultCollection,
		},
		Search: SearchConfig{
			DefaultK:     DefaultK,
			ExcerptLimit: DefaultExcerptLimit,
		},
	}
}

// LoadConfig reads path over the defaults, then applies environment
// overrides. A missing file leaves the defaults in place.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, err
		}

	case !errors.Is(err, os.ErrNotExist):
		return Config{}, err
	}

	return cfg.FromEnv(), nil
}

// LoadEnvFile loads KEY=VALUE pairs from path without overriding variables
// that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return err
}

func (cfg Config) FromEnv() Config {
	cfg.Retry = resilience.FromEnv(cfg.Retry)

	if dir, ok := os.LookupEnv(EnvCorpusDir); ok && dir != "" {
		cfg.Corpus.Dir = dir
	}

	return cfg
}

// Resolve anchors relative corpus and index paths at the project root found
// by walking upward from start.
func (cfg Config) Resolve(start string) Config {
	if filepath.IsAbs(cfg.Corpus.Dir) && filepath.IsAbs(cfg.Vector.Path) {
		return cfg
	}

	markers := cfg.Corpus.Markers
	if len(markers) == 0 {
		markers = []string{cfg.Corpus.Dir}
	}

	root := corpus.FindRoot(start, markers...)

	if !filepath.IsAbs(cfg.Corpus.Dir) {
		cfg.Corpus.Dir = filepath.Join(root, cfg.Corpus.Dir)
	}

	if cfg.Vector.Path != "" && !filepath.IsAbs(cfg.Vector.Path) {
		cfg.Vector.Path = filepath.Join(root, cfg.Vector.Path)
	}

	return cfg
}
