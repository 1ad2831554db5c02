package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/flarexio/groundrag"
	"github.com/flarexio/groundrag/persistence/chromem"

	mcpE "github.com/flarexio/groundrag/mcp"
	natsT "github.com/flarexio/groundrag/transport/nats"
)

var ErrEndpointExists = errors.New("endpoint already exists")

type StdioMCPServer interface {
	AddEndpoint(method mcp.MCPMethod, endpoint mcpE.MCPEndpoint) error
	Listen(ctx context.Context) error
}

func NewStdioMCPServer(in io.Reader, out io.Writer) StdioMCPServer {
	return &stdioMCPServer{
		endpoints: make(map[mcp.MCPMethod]mcpE.MCPEndpoint),
		in:        in,
		out:       out,
	}
}

type stdioMCPServer struct {
	endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint
	in        io.Reader
	out       io.Writer
}

func (s *stdioMCPServer) Listen(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lines := make(chan string)
	errs := make(chan error, 1)

	go func(ctx context.Context, lines chan<- string, errs chan<- error) {
		defer close(lines)

		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			errs <- err
		}
	}(ctx, lines, errs)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-errs:
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err

		case line, ok := <-lines:
			if !ok {
				// the reader reports its error before closing lines
				select {
				case err := <-errs:
					return err
				default:
					return nil
				}
			}

			if line == "" {
				continue
			}

			var req mcpE.JSONRPCRequest
			if err := json.Unmarshal([]byte(line), &req); err != nil {
				continue
			}

			// notifications carry no id and expect no response
			if req.ID.IsNil() {
				continue
			}

			var resp mcp.JSONRPCMessage

			endpoint, ok := s.endpoints[req.Method]
			if ok {
				resp = endpoint(ctx, req)
			} else {
				resp = mcpE.ErrorResponse(req.ID, mcp.METHOD_NOT_FOUND, "method not found")
			}

			bs, err := json.Marshal(resp)
			if err != nil {
				continue
			}

			fmt.Fprintf(s.out, "%s\n", bs)
		}
	}
}

func (srv *stdioMCPServer) AddEndpoint(method mcp.MCPMethod, endpoint mcpE.MCPEndpoint) error {
	_, ok := srv.endpoints[method]
	if ok {
		return ErrEndpointExists
	}

	srv.endpoints[method] = endpoint
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "groundrag_mcp_server",
		Usage: "GroundRAG MCP Server (stdio)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Usage:   "Working path holding config.yaml and .env (default: current directory)",
				Sources: cli.EnvVars("GROUNDRAG_PATH"),
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL",
				Value:   "wss://nats.flarex.io",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:    "nats-creds",
				Usage:   "NATS user credentials file",
				Sources: cli.EnvVars("NATS_CREDS"),
			},
			&cli.StringFlag{
				Name:  "edge-id",
				Usage: "Edge ID of a remote GroundRAG service; the local index is used when empty",
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func localService(cmd *cli.Command) (groundrag.Service, error) {
	path := cmd.String("path")
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}

		path = wd
	}

	if err := groundrag.LoadEnvFile(filepath.Join(path, ".env")); err != nil {
		return nil, err
	}

	cfg, err := groundrag.LoadConfig(filepath.Join(path, "config.yaml"))
	if err != nil {
		return nil, err
	}

	cfg = cfg.Resolve(path)

	factory := groundrag.NewIndexFactory(cfg, chromem.NewChromemVectorDB)
	return groundrag.NewLazyService(factory), nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// stdout carries the protocol, so logs go to stderr.
	logCfg := zap.NewDevelopmentConfig()
	logCfg.OutputPaths = []string{"stderr"}

	log, err := logCfg.Build()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	var svc groundrag.Service

	if edgeID := cmd.String("edge-id"); edgeID != "" {
		opts := []nats.Option{
			nats.Name("GroundRAG MCP Server - " + edgeID),
		}

		if creds := cmd.String("nats-creds"); creds != "" {
			opts = append(opts, nats.UserCredentials(creds))
		}

		nc, err := nats.Connect(cmd.String("nats"), opts...)
		if err != nil {
			return err
		}
		defer nc.Drain()

		endpoints := natsT.MakeEndpoints(nc, natsT.Topic(edgeID))
		svc = groundrag.ProxyMiddleware(endpoints)(svc)
	} else {
		local, err := localService(cmd)
		if err != nil {
			return err
		}

		svc = local
	}

	svc = groundrag.LoggingMiddleware(log)(svc)
	defer svc.Close()

	s := NewStdioMCPServer(os.Stdin, os.Stdout)
	for method, endpoint := range mcpE.MakeEndpoints(svc) {
		if err := s.AddEndpoint(method, endpoint); err != nil {
			return err
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- s.Listen(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	select {
	case <-quit:
		cancel()
		return nil

	case err := <-done:
		return err
	}
}
