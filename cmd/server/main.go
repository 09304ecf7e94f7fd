package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hexroom/hexroom/internal/archive"
	"github.com/hexroom/hexroom/internal/config"
	"github.com/hexroom/hexroom/internal/httpapi"
	"github.com/hexroom/hexroom/internal/hub"
	"github.com/hexroom/hexroom/internal/room"
)

func main() {
	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink room.Sink
	if cfg.DatabaseURL != "" {
		store, err := archive.Open(cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal("opening archive", zap.Error(err))
		}
		defer store.Close()
		sink = store
		log.Info("chat archive enabled")
	}

	h := hub.NewHub(ctx, hub.Config{
		GridRadius: cfg.GridRadius,
		Logger:     log,
		Sink:       sink,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h, log, cfg.ServiceName, cfg.Port()),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.Inbox() <- hub.ShutdownHub{}
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
