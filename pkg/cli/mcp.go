package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/service/mcp"
	"github.com/m-mizutani/timekeeper/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var (
		cfg  config
		addr string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Serve streamable HTTP on this address instead of stdio",
			Sources:     cli.EnvVars("TIMEKEEPER_MCP_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the local plan store as MCP tools",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			local, err := cfg.newLocal(ctx)
			if err != nil {
				return err
			}
			server := mcp.NewServer(local, Version)

			if addr == "" {
				logging.From(ctx).Info("starting mcp server on stdio", "version", Version)
				return server.Run(ctx)
			}

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				_ = httpServer.Close()
			}()

			logging.From(ctx).Info("starting mcp server on http", "addr", addr, "version", Version)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return goerr.Wrap(err, "mcp http server stopped", goerr.V("addr", addr))
			}
			return nil
		},
	}
}
