package chromem

import (
	"cmp"
	"context"
	"errors"
	"math"
	"slices"

	"github.com/philippgille/chromem-go"

	"github.com/flarexio/groundrag/vector"
)

var ErrEmbedderNotSet = errors.New("embedder not set")

// Chromem collections always rank by cosine similarity; the metadata only
// records it for anyone inspecting the persisted files.
var collectionMetadata = map[string]string{
	"hnsw:space": "cosine",
}

func NewChromemVectorDB(cfg vector.Config) (vector.VectorDB, error) {
	var db *chromem.DB
	if !cfg.Persistent {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, err
		}

		db = d
	}

	return &chromemVectorDB{db}, nil
}

type chromemVectorDB struct {
	db *chromem.DB
}

func (vector *chromemVectorDB) Collection(name string, embedder vector.Embedder) (vector.Collection, error) {
	if embedder == nil {
		return nil, ErrEmbedderNotSet
	}

	c, err := vector.db.GetOrCreateCollection(name, collectionMetadata, embedder.Embed)
	if err != nil {
		return nil, err
	}

	return &collection{c, embedder}, nil
}

type collection struct {
	collection *chromem.Collection
	embedder   vector.Embedder
}

func (c *collection) Upsert(ctx context.Context, docs ...vector.Document) error {
	var (
		pending  []int
		contents []string
	)

	for i, doc := range docs {
		if len(doc.Embedding) == 0 {
			pending = append(pending, i)
			contents = append(contents, doc.Content)
		}
	}

	embeddings := make([][]float32, len(docs))
	if len(contents) > 0 {
		vectors := c.embedder.EmbedBatch(ctx, contents)
		for j, i := range pending {
			embeddings[i] = vectors[j]
		}
	}

	// one AddDocument per entry: each chunk is stored and persisted on its own
	for i, doc := range docs {
		embedding := doc.Embedding
		if len(embedding) == 0 {
			embedding = embeddings[i]
		}

		document := chromem.Document{
			ID:        doc.ID,
			Metadata:  doc.Metadata,
			Embedding: embedding,
			Content:   doc.Content,
		}

		if err := c.collection.AddDocument(ctx, document); err != nil {
			return err
		}
	}

	return nil
}

func (c *collection) Exists(ctx context.Context, id string) bool {
	document, err := c.collection.GetByID(ctx, id)
	return err == nil && document.ID == id
}

func (c *collection) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	return c.collection.Delete(ctx, nil, nil, ids...)
}

// Query ranks every entry against query and keeps the k most similar.
// Entries stored with a zero vector have no direction and are left out,
// and a query that embeds to a zero vector matches nothing.
func (c *collection) Query(ctx context.Context, query string, k int) ([]vector.Document, error) {
	n := c.collection.Count()
	if k <= 0 || n == 0 {
		return []vector.Document{}, nil
	}

	embedding, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	if isZero(embedding) {
		return []vector.Document{}, nil
	}

	// rank everything: a NaN similarity corrupts chromem's top-k selection
	results, err := c.collection.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, err
	}

	docs := make([]vector.Document, 0, len(results))
	for _, result := range results {
		if math.IsNaN(float64(result.Similarity)) {
			continue
		}

		docs = append(docs, vector.Document{
			ID:         result.ID,
			Metadata:   result.Metadata,
			Embedding:  result.Embedding,
			Content:    result.Content,
			Similarity: result.Similarity,
		})
	}

	slices.SortStableFunc(docs, func(a, b vector.Document) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})

	if len(docs) > k {
		docs = docs[:k]
	}

	return docs, nil
}

func isZero(embedding []float32) bool {
	for _, v := range embedding {
		if v != 0 {
			return false
		}
	}

	return true
}

func (c *collection) Count() int {
	return c.collection.Count()
}
