package groundrag

import (
	"context"

	"go.uber.org/zap"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "groundrag"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) Build(ctx context.Context) (BuildReport, error) {
	log := mw.log.With(
		zap.String("action", "build"),
	)

	report, err := mw.next.Build(ctx)
	if err != nil {
		log.Error(err.Error())
		return report, err
	}

	log.Info("index built",
		zap.Int("discovered", report.Discovered),
		zap.Int("indexed", report.Indexed),
		zap.Int("skipped", report.Skipped),
		zap.Int("empty", report.Empty),
		zap.Int("failed", len(report.Failed)),
		zap.Int("chunks", report.Chunks),
		zap.Duration("elapsed", report.Elapsed.Duration()),
	)
	return report, nil
}

func (mw *loggingMiddleware) Query(ctx context.Context, question string, k ...int) ([]Result, error) {
	log := mw.log.With(
		zap.String("action", "query"),
		zap.String("question", question),
	)

	if len(k) > 0 && k[0] > 0 {
		log = log.With(
			zap.Int("k", k[0]),
		)
	}

	results, err := mw.next.Query(ctx, question, k...)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("index queried", zap.Int("count", len(results)))
	return results, nil
}

func (mw *loggingMiddleware) Search(ctx context.Context, query string, k ...int) string {
	log := mw.log.With(
		zap.String("action", "search"),
		zap.String("query", query),
	)

	if len(k) > 0 && k[0] > 0 {
		log = log.With(
			zap.Int("k", k[0]),
		)
	}

	text := mw.next.Search(ctx, query, k...)

	log.Info("context searched", zap.Int("length", len(text)))
	return text
}

func (mw *loggingMiddleware) Status(ctx context.Context) (Status, error) {
	log := mw.log.With(
		zap.String("action", "status"),
	)

	status, err := mw.next.Status(ctx)
	if err != nil {
		log.Error(err.Error())
		return status, err
	}

	log.Debug("status reported",
		zap.String("state", string(status.State)),
		zap.Int("entries", status.Entries),
	)
	return status, nil
}
