package groundrag

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
)

type EndpointSet struct {
	Build  endpoint.Endpoint
	Query  endpoint.Endpoint
	Search endpoint.Endpoint
	Status endpoint.Endpoint
}

func MakeEndpoints(svc Service) EndpointSet {
	return EndpointSet{
		Build:  BuildEndpoint(svc),
		Query:  QueryEndpoint(svc),
		Search: SearchEndpoint(svc),
		Status: StatusEndpoint(svc),
	}
}

func BuildEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		return svc.Build(ctx)
	}
}

type QueryRequest struct {
	Query string `json:"query" form:"query" binding:"required"`
	K     int    `json:"k,omitempty" form:"k"`
}

func QueryEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(QueryRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Query(ctx, req.Query, req.K)
	}
}

type SearchRequest struct {
	Query string `json:"query" form:"query"`
	K     int    `json:"k,omitempty" form:"k"`
}

func SearchEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(SearchRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Search(ctx, req.Query, req.K), nil
	}
}

func StatusEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		return svc.Status(ctx)
	}
}
