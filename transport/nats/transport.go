package nats

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/groundrag"
)

func BuildHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx := context.Background()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			code := "417"
			if errors.Is(err, groundrag.ErrCorpusNotFound) {
				code = "404"
			}

			r.Error(code, err.Error(), nil)
			return
		}

		if err := r.RespondJSON(&resp); err != nil {
			r.Error("500", err.Error(), nil)
		}
	}
}

func QueryHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req groundrag.QueryRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			code := "417"
			if errors.Is(err, groundrag.ErrInvalidQuery) {
				code = "400"
			}

			r.Error(code, err.Error(), nil)
			return
		}

		results, ok := resp.([]groundrag.Result)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		if err := r.RespondJSON(&results); err != nil {
			r.Error("500", err.Error(), nil)
		}
	}
}

func SearchHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req groundrag.SearchRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error("417", err.Error(), nil)
			return
		}

		text, ok := resp.(string)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		r.Respond([]byte(text))
	}
}

func StatusHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx := context.Background()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			r.Error("417", err.Error(), nil)
			return
		}

		if err := r.RespondJSON(&resp); err != nil {
			r.Error("500", err.Error(), nil)
		}
	}
}
