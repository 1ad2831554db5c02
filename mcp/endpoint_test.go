package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"

	"github.com/flarexio/groundrag"
)

type fakeService struct {
	query string
	k     []int
}

func (svc *fakeService) Close() error { return nil }

func (svc *fakeService) Build(ctx context.Context) (groundrag.BuildReport, error) {
	return groundrag.BuildReport{}, nil
}

func (svc *fakeService) Query(ctx context.Context, question string, k ...int) ([]groundrag.Result, error) {
	return nil, nil
}

func (svc *fakeService) Search(ctx context.Context, query string, k ...int) string {
	svc.query = query
	svc.k = k
	return "[1] Source: guide.pdf\nexcerpt"
}

func (svc *fakeService) Status(ctx context.Context) (groundrag.Status, error) {
	return groundrag.Status{}, nil
}

func TestUnmarshalInitializeRequest(t *testing.T) {
	assert := assert.New(t)

	input := []byte(`{
	  "jsonrpc": "2.0",
	  "id": 1,
	  "method": "initialize",
	  "params": {
	    "protocolVersion": "2024-11-05",
	    "capabilities": {
	      "roots": {
	        "listChanged": true
	      },
	      "sampling": {},
	      "elicitation": {}
	    },
	    "clientInfo": {
	      "name": "ExampleClient",
	      "title": "Example Client Display Name",
	      "version": "1.0.0"
	    }
	  }
	}`)

	var req JSONRPCRequest
	if err := json.Unmarshal(input, &req); err != nil {
		assert.Fail(err.Error())
		return
	}

	var params mcp.InitializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(mcp.JSONRPC_VERSION, req.JSONRPC)
	assert.Equal(mcp.NewRequestId(int64(1)), req.ID)
	assert.Equal(mcp.MethodInitialize, req.Method)
	assert.Equal("2024-11-05", params.ProtocolVersion)

	resp := InitializeEndpoint(&fakeService{})(context.Background(), req)

	result, ok := resp.(mcp.JSONRPCResponse)
	if !assert.True(ok) {
		return
	}

	initResult, ok := result.Result.(*mcp.InitializeResult)
	if !assert.True(ok) {
		return
	}

	assert.Equal("2024-11-05", initResult.ProtocolVersion)
	assert.Equal(ServerName, initResult.ServerInfo.Name)
	assert.NotNil(initResult.Capabilities.Tools)
}

func TestListTools(t *testing.T) {
	assert := assert.New(t)

	req := JSONRPCRequest{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(int64(2)),
		Method:  mcp.MethodToolsList,
	}

	resp := ListToolsEndpoint(&fakeService{})(context.Background(), req)

	result, ok := resp.(mcp.JSONRPCResponse)
	if !assert.True(ok) {
		return
	}

	tools, ok := result.Result.(*mcp.ListToolsResult)
	if !assert.True(ok) {
		return
	}

	assert.Len(tools.Tools, 1)
	assert.Equal(SearchToolName, tools.Tools[0].Name)
	assert.Contains(tools.Tools[0].InputSchema.Properties, "query")
	assert.Contains(tools.Tools[0].InputSchema.Properties, "k")
	assert.Equal([]string{"query"}, tools.Tools[0].InputSchema.Required)
}

func TestCallSearchTool(t *testing.T) {
	assert := assert.New(t)

	input := []byte(`{
	  "jsonrpc": "2.0",
	  "id": 3,
	  "method": "tools/call",
	  "params": {
	    "name": "rag_search",
	    "arguments": {
	      "query": "error handling",
	      "k": 2
	    }
	  }
	}`)

	var req JSONRPCRequest
	if err := json.Unmarshal(input, &req); err != nil {
		assert.Fail(err.Error())
		return
	}

	svc := &fakeService{}
	resp := CallToolEndpoint(svc)(context.Background(), req)

	result, ok := resp.(mcp.JSONRPCResponse)
	if !assert.True(ok) {
		return
	}

	callResult, ok := result.Result.(*mcp.CallToolResult)
	if !assert.True(ok) {
		return
	}

	assert.Equal("error handling", svc.query)
	assert.Equal([]int{2}, svc.k)

	if assert.Len(callResult.Content, 1) {
		text, ok := callResult.Content[0].(mcp.TextContent)
		if assert.True(ok) {
			assert.Equal("[1] Source: guide.pdf\nexcerpt", text.Text)
		}
	}
}

func TestCallToolInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params string
	}{
		{"unknown tool", `{"name": "get_weather", "arguments": {"location": "New York"}}`},
		{"missing query", `{"name": "rag_search", "arguments": {"k": 3}}`},
		{"missing arguments", `{"name": "rag_search"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := JSONRPCRequest{
				JSONRPC: mcp.JSONRPC_VERSION,
				ID:      mcp.NewRequestId(int64(4)),
				Method:  mcp.MethodToolsCall,
				Params:  json.RawMessage(tt.params),
			}

			resp := CallToolEndpoint(&fakeService{})(context.Background(), req)

			errResp, ok := resp.(mcp.JSONRPCError)
			if assert.True(t, ok) {
				assert.Equal(t, mcp.INVALID_PARAMS, errResp.Error.Code)
			}
		})
	}
}
