package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/groundrag"

	mcpE "github.com/flarexio/groundrag/mcp"
)

func AddRouters(r *gin.Engine, endpoints groundrag.EndpointSet) {
	api := r.Group("/api")
	{
		api.POST("/index/build", BuildHandler(endpoints.Build))
		api.GET("/index/query", QueryHandler(endpoints.Query))
		api.GET("/search", SearchHandler(endpoints.Search))
		api.GET("/status", StatusHandler(endpoints.Status))
	}
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}
