package scheduler

import (
	"context"
	"errors"

	"github.com/scalapatisserie/muffin-site/internal/domain"
	"github.com/scalapatisserie/muffin-site/internal/index"
	"github.com/scalapatisserie/muffin-site/internal/logger"
	redisstore "github.com/scalapatisserie/muffin-site/internal/store/redis"
)

// BuildLoader reads the current build back from the cache.
type BuildLoader interface {
	Current(ctx context.Context) (domain.BuildInfo, []*domain.Page, error)
}

// RedisSyncer warms the memory index from Redis on startup, so the site is
// served before the first local build completes.
type RedisSyncer struct {
	store  BuildLoader
	index  *index.PageIndex
	logger logger.Logger
}

// NewRedisSyncer creates a new Redis syncer
func NewRedisSyncer(
	store BuildLoader,
	idx *index.PageIndex,
	log logger.Logger,
) *RedisSyncer {
	return &RedisSyncer{
		store:  store,
		index:  idx,
		logger: log,
	}
}

// Sync loads the current build from Redis into the memory index
func (rs *RedisSyncer) Sync(ctx context.Context) error {
	rs.logger.Info("syncing current build from redis to memory")

	info, pages, err := rs.store.Current(ctx)
	if err != nil {
		if errors.Is(err, redisstore.ErrNoBuild) {
			rs.logger.Info("no build found in redis")
			return nil
		}
		return err
	}

	rs.index.Swap(info, pages)

	rs.logger.Info("synced build from redis",
		logger.String("build_id", info.ID),
		logger.Int("pages", len(pages)))

	return nil
}
