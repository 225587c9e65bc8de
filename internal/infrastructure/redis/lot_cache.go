package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"auction-bidgate/internal/domain"

	"github.com/go-redis/redis/v8"
)

const lotSnapshotKey = "lots:snapshot"

type RedisLotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLotCache keeps snapshots for ttl; zero keeps them until replaced.
func NewRedisLotCache(client *redis.Client, ttl time.Duration) *RedisLotCache {
	return &RedisLotCache{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisLotCache) GetSnapshot(ctx context.Context) (*domain.LotSnapshot, error) {
	raw, err := r.client.Get(ctx, lotSnapshotKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var snapshot domain.LotSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *RedisLotCache) SaveSnapshot(ctx context.Context, snapshot *domain.LotSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, lotSnapshotKey, string(data), r.ttl).Err()
}

// UpdateCurrentBid raises one cached lot's current bid. Lower amounts are
// ignored so a stale write cannot move the price backwards.
func (r *RedisLotCache) UpdateCurrentBid(ctx context.Context, lotID int, currentBid float64) error {
	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, lotSnapshotKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return err
		}

		var snapshot domain.LotSnapshot
		if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
			return err
		}
		if !applyCurrentBid(&snapshot, lotID, currentBid) {
			return nil
		}

		data, err := json.Marshal(&snapshot)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, lotSnapshotKey, string(data), redis.SetArgs{KeepTTL: true})
			return nil
		})
		return err
	}, lotSnapshotKey)
}

func applyCurrentBid(snapshot *domain.LotSnapshot, lotID int, currentBid float64) bool {
	for i := range snapshot.Lots {
		lot := &snapshot.Lots[i]
		if lot.ID != lotID {
			continue
		}
		if currentBid <= lot.CurrentBid {
			return false
		}
		lot.CurrentBid = currentBid
		lot.TotalBids++
		return true
	}
	return false
}
