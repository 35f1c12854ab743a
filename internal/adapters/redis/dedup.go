package redisad

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"review_sentiment/internal/adapters/observability"
	"review_sentiment/internal/dedup"
	"review_sentiment/internal/domain"
)

const dedupPrefix = "dedup:"

// DedupIndex keeps one Redis set of fingerprints per place.
type DedupIndex struct{ c *redis.Client }

func NewDedupIndex(c *redis.Client) *DedupIndex { return &DedupIndex{c: c} }

func (d *DedupIndex) FilterNew(ctx context.Context, reviews []domain.ReviewRecord, placeID string) ([]domain.ReviewRecord, error) {
	if len(reviews) == 0 {
		return nil, nil
	}
	key := dedupPrefix + placeID

	// SADD replies 1 only for the first insert, so in-batch duplicates drop too.
	cmds := make([]*redis.IntCmd, len(reviews))
	_, err := d.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for i, r := range reviews {
			cmds[i] = p.SAdd(ctx, key, dedup.Fingerprint(r))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dedup sadd %s: %w", placeID, err)
	}

	var fresh []domain.ReviewRecord
	for i, cmd := range cmds {
		if cmd.Val() == 1 {
			fresh = append(fresh, reviews[i])
		}
	}
	observability.ObserveDedup("redis", len(fresh), len(reviews)-len(fresh))
	return fresh, nil
}

func (d *DedupIndex) Reset(ctx context.Context, placeID string) error {
	return d.c.Del(ctx, dedupPrefix+placeID).Err()
}

func (d *DedupIndex) ResetAll(ctx context.Context) error {
	iter := d.c.Scan(ctx, 0, dedupPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("dedup scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return d.c.Del(ctx, keys...).Err()
}

func (d *DedupIndex) Count(ctx context.Context, placeID string) (int, error) {
	n, err := d.c.SCard(ctx, dedupPrefix+placeID).Result()
	return int(n), err
}
