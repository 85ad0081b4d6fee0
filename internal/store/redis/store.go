package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scalapatisserie/muffin-site/internal/domain"
)

// ErrNoBuild is returned when the cache holds no current build.
var ErrNoBuild = errors.New("no build in cache")

// pagesPerBatch bounds the size of a single HSET.
const pagesPerBatch = 200

// Store caches site builds in Redis. It is never the source of truth:
// a cold or flushed cache only costs a rebuild.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// BuildRef identifies a cached build.
type BuildRef struct {
	ID         string
	FinishedAt time.Time
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveBuild stores the manifest and every page of a build, then makes it the
// current build. Everything is sent in one transaction.
func (s *Store) SaveBuild(ctx context.Context, info domain.BuildInfo, pages []*domain.Page) error {
	infoData, err := encodeInfo(info)
	if err != nil {
		return err
	}

	fields := make([]any, 0, 2*len(pages))
	for _, p := range pages {
		data, err := encodePage(p)
		if err != nil {
			return err
		}
		fields = append(fields, p.Route, data)
	}

	pagesKey := BuildPagesKey(info.ID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, pagesKey)
		for start := 0; start < len(fields); start += 2 * pagesPerBatch {
			end := min(start+2*pagesPerBatch, len(fields))
			pipe.HSet(ctx, pagesKey, fields[start:end]...)
		}
		pipe.Set(ctx, BuildInfoKey(info.ID), infoData, 0)
		pipe.ZAdd(ctx, KeyBuilds, redis.Z{Score: float64(info.FinishedAt.Unix()), Member: info.ID})
		pipe.Set(ctx, KeyCurrentBuild, info.ID, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save build %s: %w", info.ID, err)
	}
	return nil
}

// CurrentID returns the ID of the current build
func (s *Store) CurrentID(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, KeyCurrentBuild).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoBuild
		}
		return "", fmt.Errorf("failed to get current build: %w", err)
	}
	return id, nil
}

// Current retrieves the manifest and the pages of the current build
func (s *Store) Current(ctx context.Context) (domain.BuildInfo, []*domain.Page, error) {
	id, err := s.CurrentID(ctx)
	if err != nil {
		return domain.BuildInfo{}, nil, err
	}
	return s.GetBuild(ctx, id)
}

// GetBuild retrieves a build by ID
func (s *Store) GetBuild(ctx context.Context, id string) (domain.BuildInfo, []*domain.Page, error) {
	data, err := s.client.Get(ctx, BuildInfoKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.BuildInfo{}, nil, fmt.Errorf("build %s: %w", id, ErrNoBuild)
		}
		return domain.BuildInfo{}, nil, fmt.Errorf("failed to get build %s: %w", id, err)
	}
	info, err := decodeInfo(data)
	if err != nil {
		return domain.BuildInfo{}, nil, err
	}

	raw, err := s.client.HGetAll(ctx, BuildPagesKey(id)).Result()
	if err != nil {
		return domain.BuildInfo{}, nil, fmt.Errorf("failed to get pages of build %s: %w", id, err)
	}
	pages := make([]*domain.Page, 0, len(raw))
	for _, v := range raw {
		p, err := decodePage([]byte(v))
		if err != nil {
			return domain.BuildInfo{}, nil, err
		}
		pages = append(pages, p)
	}
	if len(pages) != info.Pages {
		return domain.BuildInfo{}, nil, fmt.Errorf("build %s is incomplete: %d of %d pages", id, len(pages), info.Pages)
	}
	return info, pages, nil
}

// ListBuilds returns every cached build, oldest first
func (s *Store) ListBuilds(ctx context.Context) ([]BuildRef, error) {
	zs, err := s.client.ZRangeWithScores(ctx, KeyBuilds, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	refs := make([]BuildRef, 0, len(zs))
	for _, z := range zs {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		refs = append(refs, BuildRef{ID: id, FinishedAt: time.Unix(int64(z.Score), 0)})
	}
	return refs, nil
}

// DeleteBuild removes a build from the cache
func (s *Store) DeleteBuild(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, BuildInfoKey(id), BuildPagesKey(id))
		pipe.ZRem(ctx, KeyBuilds, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete build %s: %w", id, err)
	}
	return nil
}
