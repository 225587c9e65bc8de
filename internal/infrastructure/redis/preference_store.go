package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"auction-bidgate/internal/domain"

	"github.com/go-redis/redis/v8"
)

// RedisPreferenceStore keeps favorites as a set and filter/profile as hash fields.
type RedisPreferenceStore struct {
	client *redis.Client
}

func NewRedisPreferenceStore(client *redis.Client) *RedisPreferenceStore {
	return &RedisPreferenceStore{client: client}
}

func favoritesKey(telegramID int64) string {
	return fmt.Sprintf("prefs:%d:favorites", telegramID)
}

func prefsKey(telegramID int64) string {
	return fmt.Sprintf("prefs:%d", telegramID)
}

func (r *RedisPreferenceStore) GetPreferences(ctx context.Context, telegramID int64) (*domain.Preferences, error) {
	members, err := r.client.SMembers(ctx, favoritesKey(telegramID)).Result()
	if err != nil {
		return nil, err
	}

	prefs := &domain.Preferences{Favorites: make([]int, 0, len(members))}
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		prefs.Favorites = append(prefs.Favorites, id)
	}
	sort.Ints(prefs.Favorites)

	fields, err := r.client.HMGet(ctx, prefsKey(telegramID), "filter", "profile").Result()
	if err != nil {
		return nil, err
	}
	if raw, ok := fields[0].(string); ok {
		if err := json.Unmarshal([]byte(raw), &prefs.Filter); err != nil {
			return nil, err
		}
	}
	if raw, ok := fields[1].(string); ok {
		if err := json.Unmarshal([]byte(raw), &prefs.Profile); err != nil {
			return nil, err
		}
	}

	return prefs, nil
}

func (r *RedisPreferenceStore) AddFavorite(ctx context.Context, telegramID int64, lotID int) error {
	return r.client.SAdd(ctx, favoritesKey(telegramID), lotID).Err()
}

func (r *RedisPreferenceStore) RemoveFavorite(ctx context.Context, telegramID int64, lotID int) error {
	return r.client.SRem(ctx, favoritesKey(telegramID), lotID).Err()
}

func (r *RedisPreferenceStore) SetFilter(ctx context.Context, telegramID int64, filter domain.FilterState) error {
	return r.setJSONField(ctx, telegramID, "filter", filter)
}

func (r *RedisPreferenceStore) SaveProfileDraft(ctx context.Context, telegramID int64, draft domain.ProfileDraft) error {
	return r.setJSONField(ctx, telegramID, "profile", draft)
}

func (r *RedisPreferenceStore) setJSONField(ctx context.Context, telegramID int64, field string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, prefsKey(telegramID), field, string(data)).Err()
}
