package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/groundrag"
)

var (
	ErrUnknownTool  = errors.New("unknown tool")
	ErrInvalidQuery = errors.New("query is required")
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func ErrorResponse(id mcp.RequestId, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

const (
	ServerName    = "groundrag"
	ServerVersion = "1.0.0"

	SearchToolName = "rag_search"
)

const MCPSERVER_INSTRUCTIONS string = `GroundRAG answers questions from a local corpus of PDF documents:

1. **Indexing**: Documents are split into overlapping chunks and embedded once
2. **Retrieval**: Queries are matched against the chunks by cosine similarity
3. **Citations**: Every excerpt names the document it came from

Available tools:
- rag_search: Retrieve the most relevant excerpts for a query

Cite the numbered sources when using the returned context.`

// SearchTool describes rag_search.
func SearchTool() mcp.Tool {
	return mcp.NewTool(SearchToolName,
		mcp.WithDescription("Search the document corpus and return numbered, cited excerpts."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language question or keywords"),
		),
		mcp.WithNumber("k",
			mcp.DefaultNumber(groundrag.DefaultK),
			mcp.Description("Number of excerpts to return"),
		),
	)
}

// MakeEndpoints maps every supported method to its endpoint.
func MakeEndpoints(svc groundrag.Service) map[mcp.MCPMethod]MCPEndpoint {
	return map[mcp.MCPMethod]MCPEndpoint{
		mcp.MethodInitialize: InitializeEndpoint(svc),
		mcp.MethodPing:       PingEndpoint(svc),
		mcp.MethodToolsList:  ListToolsEndpoint(svc),
		mcp.MethodToolsCall:  CallToolEndpoint(svc),
	}
}

func InitializeEndpoint(svc groundrag.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    ServerName,
				Version: ServerVersion,
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func PingEndpoint(svc groundrag.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{}, // empty response
		}
	}
}

func ListToolsEndpoint(svc groundrag.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: []mcp.Tool{SearchTool()},
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

type searchArguments struct {
	Query string  `json:"query"`
	K     float64 `json:"k,omitempty"`
}

func parseSearchArguments(arguments any) (searchArguments, error) {
	var args searchArguments
	if arguments == nil {
		return args, ErrInvalidQuery
	}

	data, err := json.Marshal(arguments)
	if err != nil {
		return args, err
	}

	if err := json.Unmarshal(data, &args); err != nil {
		return args, err
	}

	if strings.TrimSpace(args.Query) == "" {
		return args, ErrInvalidQuery
	}

	return args, nil
}

func CallToolEndpoint(svc groundrag.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		if params.Name != SearchToolName {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, ErrUnknownTool.Error()+": "+params.Name)
		}

		args, err := parseSearchArguments(params.Arguments)
		if err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		text := svc.Search(ctx, args.Query, int(args.K))

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  mcp.NewToolResultText(text),
		}
	}
}
