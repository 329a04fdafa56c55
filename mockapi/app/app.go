package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/library-portal/mockapi"
	"github.com/Astemirdum/library-portal/mockapi/config"
	"github.com/Astemirdum/library-portal/mockapi/internal/server"
	"github.com/Astemirdum/library-portal/pkg/kafka"
	"github.com/Astemirdum/library-portal/pkg/kvstore"
	"github.com/Astemirdum/library-portal/pkg/logger"
)

func Run(cfg config.Config) error {
	log := logger.NewLogger(cfg.Log, "mockapi")
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := kvstore.Open(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("db init %v", err)
	}
	defer store.Close()

	pub, err := newPublisher(cfg.Kafka, log)
	if err != nil {
		return fmt.Errorf("kafka.NewProducer %v", err)
	}
	defer func() {
		if err := pub.Close(); err != nil {
			log.Warn("publisher close", zap.Error(err))
		}
	}()

	backend, err := mockapi.New(ctx, store, pub, cfg.Auth, log, mockapi.WithSeed(cfg.Circulation.Seed))
	if err != nil {
		return fmt.Errorf("backend %v", err)
	}

	srv := server.NewServer(cfg.Server, backend.Handler())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run()
	})
	g.Go(func() error {
		sweep(gctx, backend, cfg.Circulation.SweepInterval, log)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Debug("Graceful shutdown", zap.Error(context.Cause(gctx)))

		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		if err := srv.Stop(closeCtx); err != nil {
			log.Error("srv.Stop", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server run", zap.Error(err))
		return err
	}
	log.Info("Graceful shutdown finished")
	return nil
}

func newPublisher(cfg kafka.Config, log *zap.Logger) (kafka.Publisher, error) {
	if !cfg.Enabled() {
		log.Info("no kafka brokers configured, events are logged")
		return kafka.NewLogPublisher(log), nil
	}
	producer, err := kafka.NewProducer(cfg)
	if err != nil {
		return nil, err
	}
	return kafka.NewPublisher(producer, cfg.Topic, log), nil
}

// sweep persists overdue state once on start and then every interval until ctx is done.
func sweep(ctx context.Context, backend *mockapi.Backend, interval time.Duration, log *zap.Logger) {
	log = log.Named("sweeper")
	run := func() {
		res, err := backend.Sweep(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("sweep", zap.Error(err))
			}
			return
		}
		if res != (mockapi.SweepResult{}) {
			log.Info("sweep",
				zap.Int("overdue", res.Overdue),
				zap.Int("fines", res.FinesCreated),
				zap.Int("expired", res.Expired))
		}
	}
	run()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
