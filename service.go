package groundrag

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flarexio/groundrag/chunker"
	"github.com/flarexio/groundrag/corpus"
	"github.com/flarexio/groundrag/vector"
)

// Service defines the core logic of the grounded retrieval engine.
type Service interface {

	// Close releases the service. The persisted index stays on disk.
	Close() error

	// Build indexes every corpus document that is not indexed yet.
	Build(ctx context.Context) (BuildReport, error)

	// Query returns the chunks nearest to question, most similar first.
	Query(ctx context.Context, question string, k ...int) ([]Result, error)

	// Search returns formatted citations, or a readable message explaining
	// why none are available. It never fails.
	Search(ctx context.Context, query string, k ...int) string

	// Status reports the index state and size.
	Status(ctx context.Context) (Status, error)
}

type ServiceMiddleware func(Service) Service

// Extractor turns a corpus document into plain text.
type Extractor interface {
	Extract(path string) (string, error)
}

func NewService(cfg Config, db vector.VectorDB, embedder vector.Embedder, extractor Extractor) (Service, error) {
	log := zap.L().With(
		zap.String("service", "groundrag"),
	)

	if db == nil {
		return nil, ErrVectorDBNotSet
	}

	collection, err := db.Collection(cfg.Vector.Collection, embedder)
	if err != nil {
		return nil, err
	}

	if cfg.Search.DefaultK <= 0 {
		cfg.Search.DefaultK = DefaultK
	}

	svc := &service{
		collection: collection,
		extractor:  extractor,
		state:      StateUninitialized,
		cfg:        cfg,
		log:        log,
	}

	return svc, nil
}

type service struct {
	// Vector collection (thread-safe by itself)
	collection vector.Collection
	extractor  Extractor

	state     State
	lastBuild *BuildReport
	mu        sync.RWMutex

	cfg Config
	log *zap.Logger
}

func (svc *service) Close() error {
	svc.setState(StateUninitialized, nil)
	return nil
}

func (svc *service) corpusName() string {
	return filepath.Base(svc.cfg.Corpus.Dir)
}

func (svc *service) setState(state State, report *BuildReport) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.state = state
	if report != nil {
		svc.lastBuild = report
	}
}

func (svc *service) Build(ctx context.Context) (report BuildReport, err error) {
	log := svc.log.With(
		zap.String("action", "build"),
		zap.String("corpus", svc.cfg.Corpus.Dir),
	)

	start := time.Now()

	if !corpus.Exists(svc.cfg.Corpus.Dir) {
		return report, fmt.Errorf("%w: %s", ErrCorpusNotFound, svc.cfg.Corpus.Dir)
	}

	docs, duplicates, err := corpus.Discover(svc.cfg.Corpus.Dir, svc.cfg.Corpus.Pattern)
	if err != nil {
		return report, err
	}

	svc.setState(StateBuilding, nil)
	defer func() {
		report.Elapsed = Duration(time.Since(start))
		svc.setState(StateReady, &report)
	}()

	report.Discovered = len(docs) + len(duplicates)

	for _, name := range duplicates {
		log.Warn(corpus.ErrDuplicateDocumentID.Error(), zap.String("document", name))
		report.Failed = append(report.Failed, name)
	}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		log := log.With(
			zap.String("document", doc.Name),
		)

		// A document counts as indexed once its first chunk is stored.
		if svc.collection.Exists(ctx, ChunkID(doc.ID, 0)) {
			report.Skipped++
			continue
		}

		n, err := svc.indexDocument(ctx, doc)
		if err != nil {
			log.Error(err.Error())
			report.Failed = append(report.Failed, doc.Name)
			continue
		}

		if n == 0 {
			log.Warn("no text extracted")
			report.Empty++
			continue
		}

		report.Indexed++
		report.Chunks += n

		log.Info("document indexed", zap.Int("chunks", n))
	}

	return report, nil
}

func (svc *service) indexDocument(ctx context.Context, doc corpus.Document) (int, error) {
	text, err := svc.extractor.Extract(doc.Path)
	if err != nil {
		return 0, err
	}

	if strings.TrimSpace(text) == "" {
		return 0, nil
	}

	texts := chunker.Chunk(text, svc.cfg.Chunking.Size, svc.cfg.Chunking.Overlap)
	if len(texts) == 0 {
		return 0, nil
	}

	docs := make([]vector.Document, len(texts))
	ids := make([]string, len(texts))
	for i, t := range texts {
		chunk := Chunk{
			ID:         ChunkID(doc.ID, i),
			DocumentID: doc.ID,
			Source:     doc.Name,
			Index:      i,
			Text:       t,
		}

		docs[i] = ChunkToDocument(chunk)
		ids[i] = chunk.ID
	}

	if err := svc.collection.Upsert(ctx, docs...); err != nil {
		// leave nothing behind so the next build retries the whole document
		if derr := svc.collection.Delete(ctx, ids...); derr != nil {
			svc.log.Warn(derr.Error(), zap.String("action", "rollback"), zap.String("document", doc.Name))
		}

		return 0, err
	}

	return len(texts), nil
}

func (svc *service) topK(k ...int) int {
	if len(k) > 0 && k[0] > 0 {
		return k[0]
	}

	return svc.cfg.Search.DefaultK
}

func (svc *service) Query(ctx context.Context, question string, k ...int) ([]Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: empty question", ErrInvalidQuery)
	}

	if !corpus.Exists(svc.cfg.Corpus.Dir) || svc.collection.Count() == 0 {
		return []Result{}, nil
	}

	docs, err := svc.collection.Query(ctx, question, svc.topK(k...))
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(docs))
	for i, doc := range docs {
		results[i] = DocumentToResult(doc)
	}

	return results, nil
}

func (svc *service) Search(ctx context.Context, query string, k ...int) string {
	if !corpus.Exists(svc.cfg.Corpus.Dir) {
		name := svc.corpusName()
		return fmt.Sprintf("No %s corpus found. Ensure the '%s' folder exists at project root.", name, name)
	}

	results, err := svc.Query(ctx, query, k...)
	if err != nil {
		return "RAG query failed: " + err.Error()
	}

	if len(results) == 0 {
		return fmt.Sprintf("No relevant context found in %s.", svc.corpusName())
	}

	return FormatCitations(results, svc.cfg.Search.ExcerptLimit)
}

func (svc *service) Status(ctx context.Context) (Status, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	return Status{
		State:     svc.state,
		CorpusDir: svc.cfg.Corpus.Dir,
		IndexDir:  svc.cfg.Vector.Path,
		Entries:   svc.collection.Count(),
		LastBuild: svc.lastBuild,
	}, nil
}
