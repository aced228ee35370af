package http_catalog

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	http_common "github.com/nar3s/flickpick/internal/delivery/http/common"
	infra_postgres_matchlog "github.com/nar3s/flickpick/internal/infra/postgres/matchlog"
	"github.com/nar3s/flickpick/internal/model"
)

// CatalogProvider is the upstream lookup side of the feed gateway.
type CatalogProvider interface {
	Genres(ctx context.Context) ([]model.Genre, error)
	Languages(ctx context.Context) []model.Language
}

// ListCache is an optional TTL cache in front of the provider.
type ListCache interface {
	Get(key string, out any) bool
	Set(key string, value any) error
}

// RoomCounter feeds the liveness probe.
type RoomCounter interface {
	ActiveRooms() int
}

// MatchReader serves archived matches; nil when the archive is disabled.
type MatchReader interface {
	List(ctx context.Context, code model.RoomCode) ([]infra_postgres_matchlog.ArchivedMatch, error)
}

type Controller struct {
	provider CatalogProvider
	cache    ListCache
	rooms    RoomCounter
	archive  MatchReader

	startedAt time.Time
	logger    *slog.Logger
}

type ControllerOption func(*Controller)

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithCache(cache ListCache) ControllerOption {
	return func(c *Controller) {
		c.cache = cache
	}
}

func WithMatchReader(archive MatchReader) ControllerOption {
	return func(c *Controller) {
		c.archive = archive
	}
}

func New(provider CatalogProvider, rooms RoomCounter, opts ...ControllerOption) *Controller {
	c := &Controller{
		provider:  provider,
		rooms:     rooms,
		startedAt: time.Now(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	catalog := router.Group("/catalog")
	{
		catalog.GET("/genres", c.genres)
		catalog.GET("/languages", c.languages)
	}
	router.GET("/rooms/:room_id/matches", c.matches)
}

const (
	cacheKeyGenres    = "catalog:genres"
	cacheKeyLanguages = "catalog:languages"
)

func (c *Controller) genres(ctx *gin.Context) {
	var genres []model.Genre
	if c.cache != nil && c.cache.Get(cacheKeyGenres, &genres) {
		ctx.JSON(http.StatusOK, genres)
		return
	}

	genres, err := c.provider.Genres(ctx)
	if err != nil {
		c.logger.Error("genre lookup failed", slog.String("error", err.Error()))
		ctx.JSON(http.StatusOK, []model.Genre{})
		return
	}

	if c.cache != nil {
		if err := c.cache.Set(cacheKeyGenres, genres); err != nil {
			c.logger.Error("genre cache write failed", slog.String("error", err.Error()))
		}
	}

	ctx.JSON(http.StatusOK, genres)
}

func (c *Controller) languages(ctx *gin.Context) {
	var languages []model.Language
	if c.cache != nil && c.cache.Get(cacheKeyLanguages, &languages) {
		ctx.JSON(http.StatusOK, languages)
		return
	}

	languages = c.provider.Languages(ctx)

	if c.cache != nil {
		if err := c.cache.Set(cacheKeyLanguages, languages); err != nil {
			c.logger.Error("language cache write failed", slog.String("error", err.Error()))
		}
	}

	ctx.JSON(http.StatusOK, languages)
}

func (c *Controller) matches(ctx *gin.Context) {
	if c.archive == nil {
		ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
			Message: "match archive disabled",
		})
		return
	}

	code := ctx.Param("room_id")
	matches, err := c.archive.List(ctx, code)
	if err != nil {
		c.logger.Error("match archive read failed", slog.String("room", code), slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
			Message: "internal error",
		})
		return
	}

	ctx.JSON(http.StatusOK, matches)
}

// Health is registered at the engine root, outside the API prefix.
func (c *Controller) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"rooms":  c.rooms.ActiveRooms(),
		"uptime": time.Since(c.startedAt).Seconds(),
	})
}
