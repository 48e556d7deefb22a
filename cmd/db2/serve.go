package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/db2kit/internal/api"
	"github.com/samcharles93/db2kit/internal/logger"
	"github.com/samcharles93/db2kit/internal/tablestore"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		preload     bool
		concurrency int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve tables over a read-only HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.BoolFlag{
				Name:        "preload",
				Usage:       "load every table before accepting requests",
				Destination: &preload,
			},
			&cli.Int64Flag{
				Name:        "preload-concurrency",
				Usage:       "tables loaded in parallel by --preload",
				Value:       4,
				Destination: &concurrency,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, cfg, &addr, &preload, &concurrency)

			layouts, err := loadLayouts(layoutPaths)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			store := tablestore.New(tablestore.Config{
				Dir:     tablesDir,
				Layouts: layouts,
				Metrics: tablestore.NewMetrics(reg),
				Logger:  log,
			})
			if _, err := store.List(); err != nil {
				return err
			}
			if preload {
				if err := store.Preload(ctx, nil, int(concurrency)); err != nil {
					return err
				}
			}

			server := api.NewServer(store, reg, log)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "tables", tablesDir)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
