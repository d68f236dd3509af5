package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/adreel/adreel/cmd/web/internal/web"
	"github.com/adreel/adreel/internal/blob"
	"github.com/adreel/adreel/internal/config"
	"github.com/adreel/adreel/internal/creative"
	"github.com/adreel/adreel/internal/db"
	"github.com/adreel/adreel/internal/scenejob"
	"github.com/adreel/adreel/internal/stitch"
	"github.com/adreel/adreel/internal/store"
	"github.com/adreel/adreel/internal/usage"

	aiclient "github.com/adreel/adreel/internal/ai"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	slog.Info("Starting ad pipeline service")

	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dbc, err := db.OpenWithRetry(ctx, *conf)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbc.Close()

	blobs, err := blob.NewS3Store(ctx, *conf)
	if err != nil {
		slog.Error("failed to initialize blob storage", "error", err)
		os.Exit(1)
	}

	counter := usage.NewCounter()

	gen, err := aiclient.NewGeminiClient(ctx, *conf, counter)
	if err != nil {
		slog.Error("failed to initialize generative client", "error", err)
		os.Exit(1)
	}

	pg := store.NewPostgresStore(dbc)
	records := store.NewFailover(pg, nil)

	svc := creative.NewService(records, records, pg, gen, blobs)
	jobs := scenejob.NewProcessor(records, records, gen, blobs)
	stitcher := stitch.NewStitcher(blobs, conf.StitchWorkDir)

	e := web.NewWebserver(svc, jobs, stitcher, counter)

	addr := ":" + strconv.Itoa(conf.WebServerPort)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	slog.Info("Listening", "addr", addr)
	serveErr := e.Start(addr)

	// Detached scene jobs keep writing after the listener stops; let them
	// reach a terminal state before the process exits.
	slog.Info("draining in-flight scene video jobs")
	jobs.Wait()

	if serveErr != nil {
		if errors.Is(serveErr, context.Canceled) {
			return
		}
		// Echo returns an error on Shutdown; treat it as normal if context is done.
		if ctx.Err() != nil {
			return
		}
		slog.Error("server failed", "error", serveErr)
		os.Exit(1)
	}
}
