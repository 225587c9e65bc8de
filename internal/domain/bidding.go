package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// IncrementRule applies to current bids strictly below UpperBound. A nil
// UpperBound is the open-ended top tier.
type IncrementRule struct {
	UpperBound *decimal.Decimal `json:"max,omitempty"`
	Increment  decimal.Decimal  `json:"increment"`
}

func (r IncrementRule) Covers(currentBid decimal.Decimal) bool {
	return r.UpperBound == nil || currentBid.LessThan(*r.UpperBound)
}

type ReasonCode int

const (
	ReasonNone ReasonCode = iota
	// ReasonNotANumber is reserved; unparsable input is reported as ReasonNonPositive.
	ReasonNotANumber
	ReasonNonPositive
	ReasonBelowMinimum
	ReasonAboveCeiling
)

func (r ReasonCode) String() string {
	switch r {
	case ReasonNone:
		return "NONE"
	case ReasonNotANumber:
		return "NOT_A_NUMBER"
	case ReasonNonPositive:
		return "NON_POSITIVE"
	case ReasonBelowMinimum:
		return "BELOW_MINIMUM"
	case ReasonAboveCeiling:
		return "ABOVE_CEILING"
	default:
		return "UNKNOWN"
	}
}

func (r ReasonCode) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *ReasonCode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, c := range []ReasonCode{ReasonNone, ReasonNotANumber, ReasonNonPositive, ReasonBelowMinimum, ReasonAboveCeiling} {
		if c.String() == s {
			*r = c
			return nil
		}
	}
	return fmt.Errorf("unknown reason code %q", s)
}

type ValidationOutcome struct {
	Accepted        bool            `json:"accepted"`
	Reason          ReasonCode      `json:"reason"`
	MinimumRequired decimal.Decimal `json:"minimum_required"`
}

// Gated actions throttled before they reach the remote service.
const (
	ActionPlaceBid    = "place_bid"
	ActionSaveProfile = "save_profile"
	ActionRegister    = "register"
)

type RateLimit struct {
	MaxAttempts int
	Window      time.Duration
}

var DefaultRateLimits = map[string]RateLimit{
	ActionPlaceBid:    {MaxAttempts: 10, Window: 60 * time.Second},
	ActionSaveProfile: {MaxAttempts: 5, Window: 300 * time.Second},
	ActionRegister:    {MaxAttempts: 2, Window: 300 * time.Second},
}

// RateWindow counts attempts for one (action, identity) pair.
type RateWindow struct {
	Count   int
	ResetAt time.Time
}
