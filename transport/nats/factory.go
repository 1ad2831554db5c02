package nats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/groundrag"
)

const (
	BuildTimeout = 10 * time.Minute
	QueryTimeout = 2 * time.Minute
)

func MakeEndpoints(nc *nats.Conn, prefix string) *groundrag.EndpointSet {
	return &groundrag.EndpointSet{
		Build:  BuildEndpoint(nc, prefix+".build"),
		Query:  QueryEndpoint(nc, prefix+".query"),
		Search: SearchEndpoint(nc, prefix+".search"),
		Status: StatusEndpoint(nc, prefix+".status"),
	}
}

func request(ctx context.Context, nc *nats.Conn, topic string, data []byte, timeout time.Duration) (*nats.Msg, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := nc.RequestWithContext(ctx, topic, data)
	if err != nil {
		return nil, err
	}

	if err := Error(resp); err != nil {
		return nil, err
	}

	return resp, nil
}

func BuildEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		resp, err := request(ctx, nc, topic, nil, BuildTimeout)
		if err != nil {
			return nil, err
		}

		var report groundrag.BuildReport
		if err := json.Unmarshal(resp.Data, &report); err != nil {
			return nil, err
		}

		return report, nil
	}
}

func QueryEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		r, ok := req.(groundrag.QueryRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&r)
		if err != nil {
			return nil, err
		}

		resp, err := request(ctx, nc, topic, data, QueryTimeout)
		if err != nil {
			return nil, err
		}

		var results []groundrag.Result
		if err := json.Unmarshal(resp.Data, &results); err != nil {
			return nil, err
		}

		return results, nil
	}
}

func SearchEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		r, ok := req.(groundrag.SearchRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&r)
		if err != nil {
			return nil, err
		}

		resp, err := request(ctx, nc, topic, data, QueryTimeout)
		if err != nil {
			return nil, err
		}

		return string(resp.Data), nil
	}
}

func StatusEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		resp, err := request(ctx, nc, topic, nil, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		var status groundrag.Status
		if err := json.Unmarshal(resp.Data, &status); err != nil {
			return nil, err
		}

		return status, nil
	}
}

func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	return errors.New(code + ":" + description)
}
