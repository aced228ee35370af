package app

import (
	"time"

	"github.com/nar3s/flickpick/internal/config"
	http_catalog "github.com/nar3s/flickpick/internal/delivery/http/catalog"
	http_init "github.com/nar3s/flickpick/internal/delivery/http/init"
	ws_session "github.com/nar3s/flickpick/internal/delivery/ws/session"
	infra_pg_init "github.com/nar3s/flickpick/internal/infra/postgres/init"
	infra_postgres_matchlog "github.com/nar3s/flickpick/internal/infra/postgres/matchlog"
	infra_redis_catalogcache "github.com/nar3s/flickpick/internal/infra/redis/catalogcache"
	infra_redis_init "github.com/nar3s/flickpick/internal/infra/redis/init"
	infra_tmdb "github.com/nar3s/flickpick/internal/infra/tmdb"
	storage_room "github.com/nar3s/flickpick/internal/storage/room"
	usecase_feed "github.com/nar3s/flickpick/internal/usecase/feed"
	usecase_filters "github.com/nar3s/flickpick/internal/usecase/filters"
	usecase_room "github.com/nar3s/flickpick/internal/usecase/room"
	usecase_swipe "github.com/nar3s/flickpick/internal/usecase/swipe"
)

func Go(cfg *config.Config) {
	const catalogCacheTTL = time.Hour

	gateway := infra_tmdb.New(cfg.TMDB)
	storage := storage_room.New(cfg.Rooms.EvictionGrace)

	feedUC := usecase_feed.New(storage, gateway)
	roomUC := usecase_room.New(storage, feedUC)
	filtersUC := usecase_filters.New(storage, feedUC)

	swipeOpts := []usecase_swipe.UsecaseOption{}
	catalogOpts := []http_catalog.ControllerOption{}

	if cfg.Postgres.Host != "" {
		pgConn := infra_pg_init.MustEstablishConn(cfg.Postgres)
		matchlog := infra_postgres_matchlog.New(pgConn)
		swipeOpts = append(swipeOpts, usecase_swipe.WithMatchRecorder(matchlog))
		catalogOpts = append(catalogOpts, http_catalog.WithMatchReader(matchlog))
	}

	if cfg.Redis.Host != "" {
		redisConn := infra_redis_init.MustEstablishConn(cfg.Redis)
		cache := infra_redis_catalogcache.New(redisConn, catalogCacheTTL)
		catalogOpts = append(catalogOpts, http_catalog.WithCache(cache))
	}

	swipeUC := usecase_swipe.New(storage, swipeOpts...)

	hub := ws_session.NewHub()
	sessionController := ws_session.New(hub, roomUC, swipeUC, filtersUC, feedUC)
	catalogController := http_catalog.New(gateway, roomUC, catalogOpts...)

	controllerPool := http_init.NewControllerPool()
	controllerPool.Add(sessionController)
	controllerPool.Add(catalogController)

	controllerPool.Register()
	controllerPool.Engine().GET("/health", catalogController.Health)
	controllerPool.RunAll(cfg.HTTP.Port)
}
