package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	apicall "github.com/JohnPlummer/jp-go-apicall"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "poll several paths concurrently behind one shared busy indicator",
		ArgsUsage: "PATH...",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: flagInterval, Value: 5 * time.Second, Usage: "poll interval per path"},
			&cli.StringSliceFlag{Name: flagHeader, Aliases: []string{"H"}, Usage: "request header Name=value (repeatable)"},
			&cli.StringFlag{Name: flagLabel, Value: "Refreshing...", Usage: "busy indicator label"},
			&cli.StringFlag{Name: flagStatus, Usage: "serve /healthz and /metrics on this address"},
		},
		Action: runWatch,
	}
}

func runWatch(cliCtx *cli.Context) error {
	paths := cliCtx.Args().Slice()
	if len(paths) == 0 {
		return cli.Exit("watch expects at least one PATH argument", 2)
	}

	header, err := parseHeaders(cliCtx.StringSlice(flagHeader))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	rt, err := newRuntime(cliCtx, newSpinnerIndicator(cliCtx.App.ErrWriter))
	if err != nil {
		return err
	}

	ctx := cliCtx.Context

	if addr := cliCtx.String(flagStatus); addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           newStatusRouter(rt.busy, rt.client, rt.breaker, rt.registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				rt.logger.Error("status server stopped", "addr", addr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		rt.logger.Info("status server listening", "addr", addr)
	}

	w := &watcher{
		client:   rt.client,
		busy:     rt.busy,
		header:   header,
		label:    cliCtx.String(flagLabel),
		interval: cliCtx.Duration(flagInterval),
		logger:   rt.logger,
	}
	w.run(ctx, paths)
	return nil
}

type watcher struct {
	client   *apicall.Client
	busy     *apicall.Coordinator
	logger   *slog.Logger
	header   map[string]string
	label    string
	interval time.Duration
}

// run polls every path on its own ticker until ctx is done. Polls of different paths
// overlap freely; the coordinator keeps the indicator up across all of them.
func (w *watcher) run(ctx context.Context, paths []string) {
	var wg sync.WaitGroup
	for _, path := range paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			w.loop(ctx, path)
		}(path)
	}
	wg.Wait()
}

func (w *watcher) loop(ctx context.Context, path string) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.poll(ctx, path)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *watcher) poll(ctx context.Context, path string) {
	err := w.busy.Run(w.label, func() error {
		res, err := w.client.Call(ctx, path, apicall.CallOptions{
			Method: http.MethodGet,
			Header: w.header,
		})
		if err != nil {
			return err
		}
		w.logger.Info("poll completed",
			"path", path,
			"status", res.Status,
			"attempts", res.Attempts)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		w.logger.Warn("poll failed", "path", path, "error", err)
	}
}
