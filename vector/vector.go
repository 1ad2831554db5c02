package vector

import "context"

type Config struct {
	Persistent bool   `yaml:"persistent"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	Compress   bool   `yaml:"compress"`
}

// Embedder is the embedding function a collection is configured with.
// EmbedBatch must return exactly one vector per text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) [][]float32
}

type VectorDB interface {
	Collection(name string, embedder Embedder) (Collection, error)
}

type Collection interface {
	// Upsert embeds and stores docs; an existing ID is overwritten.
	Upsert(ctx context.Context, docs ...Document) error

	// Exists reports whether a document with id is stored.
	Exists(ctx context.Context, id string) bool

	// Delete removes the documents with the given ids.
	Delete(ctx context.Context, ids ...string) error

	// Query returns up to k documents nearest to query, most similar first.
	Query(ctx context.Context, query string, k int) ([]Document, error)

	Count() int
}

type Document struct {
	ID         string            `json:"id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Content    string            `json:"content"`
	Embedding  []float32         `json:"embedding,omitempty"`
	Similarity float32           `json:"similarity,omitempty"`
}
