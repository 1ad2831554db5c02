package groundrag

import (
	"context"
	"errors"
)

var ErrInvalidResponse = errors.New("invalid response type")

// ProxyMiddleware forwards every call to a remote instance through endpoints.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return nil
}

func (mw *proxyMiddleware) Build(ctx context.Context) (BuildReport, error) {
	resp, err := mw.endpoints.Build(ctx, nil)
	if err != nil {
		return BuildReport{}, err
	}

	report, ok := resp.(BuildReport)
	if !ok {
		return BuildReport{}, ErrInvalidResponse
	}

	return report, nil
}

func (mw *proxyMiddleware) Query(ctx context.Context, question string, k ...int) ([]Result, error) {
	req := QueryRequest{
		Query: question,
	}

	if len(k) > 0 {
		req.K = k[0]
	}

	resp, err := mw.endpoints.Query(ctx, req)
	if err != nil {
		return nil, err
	}

	results, ok := resp.([]Result)
	if !ok {
		return nil, ErrInvalidResponse
	}

	return results, nil
}

func (mw *proxyMiddleware) Search(ctx context.Context, query string, k ...int) string {
	req := SearchRequest{
		Query: query,
	}

	if len(k) > 0 {
		req.K = k[0]
	}

	resp, err := mw.endpoints.Search(ctx, req)
	if err != nil {
		return "RAG unavailable: " + err.Error()
	}

	text, ok := resp.(string)
	if !ok {
		return "RAG unavailable: " + ErrInvalidResponse.Error()
	}

	return text
}

func (mw *proxyMiddleware) Status(ctx context.Context) (Status, error) {
	resp, err := mw.endpoints.Status(ctx, nil)
	if err != nil {
		return Status{}, err
	}

	status, ok := resp.(Status)
	if !ok {
		return Status{}, ErrInvalidResponse
	}

	return status, nil
}
