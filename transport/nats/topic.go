package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/groundrag"
)

// Topic is the subject prefix served by the edge with the given id.
func Topic(edgeID string) string {
	return "edges." + edgeID + ".groundrag"
}

func AddEndpoints(group micro.Group, endpoints groundrag.EndpointSet) {
	group.AddEndpoint("build", BuildHandler(endpoints.Build))
	group.AddEndpoint("query", QueryHandler(endpoints.Query))
	group.AddEndpoint("search", SearchHandler(endpoints.Search))
	group.AddEndpoint("status", StatusHandler(endpoints.Status))
}
