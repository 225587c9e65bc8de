package services

import (
	"context"
	"encoding/json"
	"errors"

	"auction-bidgate/internal/domain"

	"github.com/go-redis/redis/v8"
)

const incrementRulesKey = "bid_increment_rules"

type BiddingRuleDaoImpl struct {
	client *redis.Client
}

func NewBiddingRuleDao(client *redis.Client) *BiddingRuleDaoImpl {
	return &BiddingRuleDaoImpl{
		client: client,
	}
}

// LoadRules reads the increment table from Redis, seeding the default table
// when none has been stored yet.
func (v *BiddingRuleDaoImpl) LoadRules(ctx context.Context) ([]domain.IncrementRule, error) {
	data, err := v.client.Get(ctx, incrementRulesKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return DefaultIncrementRules, v.saveRules(ctx, DefaultIncrementRules)
		}
		return nil, err
	}

	return decodeRules([]byte(data))
}

func (v *BiddingRuleDaoImpl) saveRules(ctx context.Context, rules []domain.IncrementRule) error {
	data, err := encodeRules(rules)
	if err != nil {
		return err
	}

	return v.client.Set(ctx, incrementRulesKey, string(data), 0).Err()
}

func encodeRules(rules []domain.IncrementRule) ([]byte, error) {
	return json.Marshal(rules)
}

// decodeRules accepts bounds and increments as JSON numbers or strings.
func decodeRules(data []byte) ([]domain.IncrementRule, error) {
	var rules []domain.IncrementRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// LoadIncrementSchedule builds a schedule from the store, falling back to the
// default table when the stored one is unreadable or invalid.
func LoadIncrementSchedule(ctx context.Context, store domain.IncrementRuleStore) (*IncrementSchedule, error) {
	rules, err := store.LoadRules(ctx)
	if err != nil {
		return DefaultIncrementSchedule(), err
	}
	schedule, err := NewIncrementSchedule(rules)
	if err != nil {
		return DefaultIncrementSchedule(), err
	}
	return schedule, nil
}
