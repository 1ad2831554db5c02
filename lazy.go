package groundrag

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/flarexio/groundrag/corpus"
	"github.com/flarexio/groundrag/embedding"
	"github.com/flarexio/groundrag/pdf"
	"github.com/flarexio/groundrag/resilience"
	"github.com/flarexio/groundrag/vector"
)

// Factory constructs a ready-to-query Service.
type Factory func(ctx context.Context) (Service, error)

// NewIndexService wires the embedding provider, the vector store opened by
// openDB and the PDF extractor into a Service. Nothing is indexed yet.
func NewIndexService(cfg Config, openDB func(vector.Config) (vector.VectorDB, error)) (Service, error) {
	policy := resilience.NewPolicy(cfg.Retry)

	provider, err := embedding.NewProvider(cfg.Embedding, policy)
	if err != nil {
		return nil, err
	}

	if cfg.Vector.Persistent && cfg.Vector.Path != "" {
		if err := os.MkdirAll(cfg.Vector.Path, os.ModePerm); err != nil {
			return nil, err
		}
	}

	db, err := openDB(cfg.Vector)
	if err != nil {
		return nil, err
	}

	return NewService(cfg, db, provider, pdf.NewExtractor())
}

// NewIndexFactory returns a Factory that wires the Service and builds the
// index once when the corpus directory exists. Build errors are logged only.
func NewIndexFactory(cfg Config, openDB func(vector.Config) (vector.VectorDB, error)) Factory {
	return func(ctx context.Context) (Service, error) {
		log := zap.L().With(
			zap.String("service", "groundrag"),
			zap.String("action", "initialize"),
		)

		svc, err := NewIndexService(cfg, openDB)
		if err != nil {
			return nil, err
		}

		if !corpus.Exists(cfg.Corpus.Dir) {
			log.Warn("corpus not found", zap.String("corpus", cfg.Corpus.Dir))
			return svc, nil
		}

		if _, err := svc.Build(ctx); err != nil {
			log.Error(err.Error())
		}

		return svc, nil
	}
}

// NewLazyService defers factory until the first call that needs the index.
// The factory runs at most once; its error is kept and reported by every
// later call.
func NewLazyService(factory Factory) *LazyService {
	return &LazyService{
		factory: factory,
	}
}

type LazyService struct {
	factory Factory
	once    sync.Once

	next         Service
	err          error
	initializing bool
	closed       bool
	mu           sync.Mutex
}

// Init runs the factory now instead of on first use.
func (svc *LazyService) Init(ctx context.Context) error {
	_, err := svc.init(ctx)
	return err
}

func (svc *LazyService) init(ctx context.Context) (Service, error) {
	svc.once.Do(func() {
		svc.mu.Lock()
		closed := svc.closed
		svc.initializing = !closed
		svc.mu.Unlock()

		if closed {
			svc.set(nil, ErrServiceClosed)
			return
		}

		svc.set(svc.factory(ctx))
	})

	return svc.get()
}

func (svc *LazyService) set(next Service, err error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.next = next
	svc.err = err
	svc.initializing = false
}

func (svc *LazyService) get() (Service, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return svc.next, svc.err
}

func (svc *LazyService) Close() error {
	svc.mu.Lock()
	svc.closed = true
	svc.mu.Unlock()

	// Closing before first use prevents the factory from ever running.
	svc.once.Do(func() {
		svc.set(nil, ErrServiceClosed)
	})

	next, _ := svc.get()
	if next == nil {
		return nil
	}

	return next.Close()
}

func (svc *LazyService) Build(ctx context.Context) (BuildReport, error) {
	next, err := svc.init(ctx)
	if err != nil {
		return BuildReport{}, err
	}

	return next.Build(ctx)
}

func (svc *LazyService) Query(ctx context.Context, question string, k ...int) ([]Result, error) {
	next, err := svc.init(ctx)
	if err != nil {
		return nil, err
	}

	return next.Query(ctx, question, k...)
}

func (svc *LazyService) Search(ctx context.Context, query string, k ...int) string {
	next, err := svc.init(ctx)
	if err != nil {
		return "RAG unavailable: " + err.Error()
	}

	return next.Search(ctx, query, k...)
}

// Status never triggers initialization. While the factory runs, which
// includes the initial build, the state is StateBuilding.
func (svc *LazyService) Status(ctx context.Context) (Status, error) {
	svc.mu.Lock()
	next, err, initializing := svc.next, svc.err, svc.initializing
	svc.mu.Unlock()

	if err != nil {
		return Status{State: StateUninitialized}, err
	}

	if initializing {
		return Status{State: StateBuilding}, nil
	}

	if next == nil {
		return Status{State: StateUninitialized}, nil
	}

	return next.Status(ctx)
}
