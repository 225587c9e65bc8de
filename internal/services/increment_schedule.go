package services

import (
	"errors"
	"fmt"

	"auction-bidgate/internal/domain"

	"github.com/shopspring/decimal"
)

// fallbackIncrement matches the largest tier of the default table.
var fallbackIncrement = decimal.NewFromInt(5000)

func upTo(bound int64) *decimal.Decimal {
	d := decimal.NewFromInt(bound)
	return &d
}

// DefaultIncrementRules is the dirham table used when none is stored.
var DefaultIncrementRules = []domain.IncrementRule{
	{UpperBound: upTo(5000), Increment: decimal.NewFromInt(100)},
	{UpperBound: upTo(10000), Increment: decimal.NewFromInt(250)},
	{UpperBound: upTo(25000), Increment: decimal.NewFromInt(500)},
	{UpperBound: upTo(50000), Increment: decimal.NewFromInt(1000)},
	{UpperBound: upTo(100000), Increment: decimal.NewFromInt(2500)},
	{UpperBound: nil, Increment: decimal.NewFromInt(5000)},
}

// IncrementSchedule maps a current bid to the minimum step the next bid must add.
// It is immutable once built and safe for concurrent use.
type IncrementSchedule struct {
	rules []domain.IncrementRule
}

// NewIncrementSchedule checks that bounds strictly increase, increments are
// positive and only the last rule is open-ended.
func NewIncrementSchedule(rules []domain.IncrementRule) (*IncrementSchedule, error) {
	if len(rules) == 0 {
		return nil, errors.New("increment schedule needs at least one rule")
	}

	var prev *decimal.Decimal
	for i, rule := range rules {
		if !rule.Increment.IsPositive() {
			return nil, fmt.Errorf("rule %d: increment must be positive", i)
		}
		if rule.UpperBound == nil {
			if i != len(rules)-1 {
				return nil, fmt.Errorf("rule %d: only the last rule may be unbounded", i)
			}
			continue
		}
		if prev != nil && !rule.UpperBound.GreaterThan(*prev) {
			return nil, fmt.Errorf("rule %d: bound %s does not exceed previous bound %s", i, rule.UpperBound, prev)
		}
		prev = rule.UpperBound
	}
	if rules[len(rules)-1].UpperBound != nil {
		return nil, errors.New("last increment rule must be unbounded")
	}

	copied := make([]domain.IncrementRule, len(rules))
	copy(copied, rules)
	return &IncrementSchedule{rules: copied}, nil
}

// DefaultIncrementSchedule returns the schedule built from DefaultIncrementRules.
func DefaultIncrementSchedule() *IncrementSchedule {
	schedule, err := NewIncrementSchedule(DefaultIncrementRules)
	if err != nil {
		panic(err)
	}
	return schedule
}

func (s *IncrementSchedule) IncrementFor(currentBid decimal.Decimal) decimal.Decimal {
	for _, rule := range s.rules {
		if rule.Covers(currentBid) {
			return rule.Increment
		}
	}
	return fallbackIncrement
}

// Rules returns a copy of the table.
func (s *IncrementSchedule) Rules() []domain.IncrementRule {
	out := make([]domain.IncrementRule, len(s.rules))
	copy(out, s.rules)
	return out
}

// MinimumBid is the listing's explicit minimum when it has one, otherwise the
// current bid plus one increment.
func (s *IncrementSchedule) MinimumBid(lot *domain.Lot) decimal.Decimal {
	if lot.MinBid > 0 {
		return decimal.NewFromFloat(lot.MinBid)
	}
	current := decimal.NewFromFloat(lot.CurrentBid)
	return current.Add(s.IncrementFor(current))
}

// QuickBids are the one-tap amounts offered next to the free-form input.
func (s *IncrementSchedule) QuickBids(lot *domain.Lot) []decimal.Decimal {
	minimum := s.MinimumBid(lot)
	step := s.IncrementFor(decimal.NewFromFloat(lot.CurrentBid))
	return []decimal.Decimal{minimum, minimum.Add(step), minimum.Add(step.Mul(decimal.NewFromInt(2)))}
}
