package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/flarexio/groundrag"
	"github.com/flarexio/groundrag/persistence/chromem"

	mcpE "github.com/flarexio/groundrag/mcp"
	httpT "github.com/flarexio/groundrag/transport/http"
	natsT "github.com/flarexio/groundrag/transport/nats"
)

func main() {
	cmd := &cli.Command{
		Name:  "groundrag",
		Usage: "Grounded retrieval over a local PDF corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Usage:   "Working path holding config.yaml and .env (default: current directory)",
				Sources: cli.EnvVars("GROUNDRAG_PATH"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Serve the index over HTTP and NATS",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "http",
						Usage: "Enable HTTP transport",
						Value: false,
					},
					&cli.StringFlag{
						Name:  "http-addr",
						Usage: "HTTP server address",
						Value: ":8080",
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
						Usage: "Edge ID to serve over NATS; NATS is disabled when empty",
					},
				},
				Action: serve,
			},
			{
				Name:   "build",
				Usage:  "Index every corpus document that is not indexed yet",
				Action: build,
			},
			{
				Name:      "search",
				Usage:     "Print cited excerpts for a query",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "k",
						Usage: "Number of excerpts",
						Value: groundrag.DefaultK,
					},
				},
				Action: search,
			},
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func setup(cmd *cli.Command) (groundrag.Config, *zap.Logger, error) {
	path := cmd.String("path")
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return groundrag.Config{}, nil, err
		}

		path = wd
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return groundrag.Config{}, nil, err
	}

	zap.ReplaceGlobals(log)

	if err := groundrag.LoadEnvFile(filepath.Join(path, ".env")); err != nil {
		return groundrag.Config{}, nil, err
	}

	cfg, err := groundrag.LoadConfig(filepath.Join(path, "config.yaml"))
	if err != nil {
		return groundrag.Config{}, nil, err
	}

	cfg = cfg.Resolve(path)

	log.Info("config loaded",
		zap.String("corpus", cfg.Corpus.Dir),
		zap.String("index", cfg.Vector.Path),
	)

	return cfg, log, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	factory := groundrag.NewIndexFactory(cfg, chromem.NewChromemVectorDB)

	lazy := groundrag.NewLazyService(factory)

	var svc groundrag.Service
	svc = groundrag.LoggingMiddleware(log)(lazy)
	defer svc.Close()

	endpoints := groundrag.MakeEndpoints(svc)

	// Add NATS Transport
	if edgeID := cmd.String("edge-id"); edgeID != "" {
		opts := []nats.Option{
			nats.Name("GroundRAG Server - " + edgeID),
		}

		if creds := cmd.String("nats-creds"); creds != "" {
			opts = append(opts, nats.UserCredentials(creds))
		}

		nc, err := nats.Connect(cmd.String("nats"), opts...)
		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "groundrag",
			Version: mcpE.ServerVersion,
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		root := srv.AddGroup(natsT.Topic(edgeID))
		natsT.AddEndpoints(root, endpoints)
	}

	if cmd.Bool("http") {
		r := gin.Default()
		httpT.AddRouters(r, endpoints)
		httpT.AddStreamableRouters(r, mcpE.MakeEndpoints(svc))

		httpAddr := cmd.String("http-addr")
		go r.Run(httpAddr)
	}

	// Index in the background so transports answer status while building.
	go func() {
		if err := lazy.Init(ctx); err != nil {
			log.Error(err.Error(), zap.String("action", "initialize"))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}

func build(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	svc, err := groundrag.NewIndexService(cfg, chromem.NewChromemVectorDB)
	if err != nil {
		return err
	}

	svc = groundrag.LoggingMiddleware(log)(svc)
	defer svc.Close()

	report, err := svc.Build(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(&report)
}

func search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.Args().First()
	if query == "" {
		return groundrag.ErrInvalidQuery
	}

	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	factory := groundrag.NewIndexFactory(cfg, chromem.NewChromemVectorDB)

	svc := groundrag.NewLazyService(factory)
	defer svc.Close()

	fmt.Println(svc.Search(ctx, query, int(cmd.Int("k"))))
	return nil
}
