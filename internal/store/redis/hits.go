package redis

import (
	"context"
	"fmt"
)

// IncrementHits increments the served count of a route
func (s *Store) IncrementHits(ctx context.Context, route string) error {
	if err := s.client.HIncrBy(ctx, KeyHits, route, 1).Err(); err != nil {
		return fmt.Errorf("failed to increment hits: %w", err)
	}
	return nil
}
