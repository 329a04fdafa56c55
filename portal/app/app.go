package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Astemirdum/library-portal/pkg/kvstore"
	"github.com/Astemirdum/library-portal/pkg/logger"
	"github.com/Astemirdum/library-portal/portal/cli"
	"github.com/Astemirdum/library-portal/portal/config"
	"github.com/Astemirdum/library-portal/portal/internal/api"
	"github.com/Astemirdum/library-portal/portal/internal/catalog"
	"github.com/Astemirdum/library-portal/portal/internal/circulation"
	"github.com/Astemirdum/library-portal/portal/internal/session"
)

func Run(cfg config.Config, args []string) error {
	log := logger.NewLogger(cfg.Log(), "portal")
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		log.Error("data dir", zap.Error(err))
		return fmt.Errorf("data dir %v", err)
	}
	store, err := kvstore.Open(ctx, cfg.Store(), log)
	if err != nil {
		log.Error("store init", zap.Error(err))
		return fmt.Errorf("store init %v", err)
	}
	defer store.Close()

	var sessions *session.Manager
	tokens := api.TokenFunc(func(ctx context.Context) string {
		return sessions.Token(ctx)
	})
	client := api.New(cfg.API, api.NewBreaker(cfg.Breaker), tokens, log)
	sessions = session.NewManager(store, client, log)

	if _, err := sessions.MigrateLegacy(ctx, session.NewNetscapeJar(cfg.LegacyCookies())); err != nil {
		log.Warn("legacy session", zap.Error(err))
	}

	cache := catalog.NewCache(client, log)
	circ := circulation.NewService(client, cache, log)
	return cli.NewApp(sessions, cache, circ, log).Execute(ctx, args)
}
