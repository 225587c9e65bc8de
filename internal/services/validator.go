package services

import (
	"strings"

	"auction-bidgate/internal/domain"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MaxBidAmount guards against fat-finger and overflow amounts.
const MaxBidAmount = 9_999_999

var (
	bidCeiling      = decimal.NewFromInt(MaxBidAmount)
	currencyPrinter = message.NewPrinter(language.English)
	amountDecor     = strings.NewReplacer("AED", "", ",", "", " ", "", "\u00a0", "")
)

// BidValidator is the client-side pre-check run before a bid leaves the gateway.
type BidValidator struct{}

func NewBidValidator() *BidValidator {
	return &BidValidator{}
}

// Validate decides acceptability of proposed against a precomputed minimum.
// An invalid proposed amount stands for input that is not a number. The first
// failing rule wins.
func (v *BidValidator) Validate(proposed decimal.NullDecimal, minimum decimal.Decimal) domain.ValidationOutcome {
	if !proposed.Valid || !proposed.Decimal.IsPositive() {
		return domain.ValidationOutcome{Reason: domain.ReasonNonPositive}
	}
	if proposed.Decimal.LessThan(minimum) {
		return domain.ValidationOutcome{Reason: domain.ReasonBelowMinimum, MinimumRequired: minimum}
	}
	if proposed.Decimal.GreaterThan(bidCeiling) {
		return domain.ValidationOutcome{Reason: domain.ReasonAboveCeiling}
	}
	return domain.ValidationOutcome{Accepted: true, Reason: domain.ReasonNone}
}

// ParseAmount reads typed input such as "AED 4,900". Currency text, spaces and
// thousands separators are dropped; the sign and decimal point are kept. The
// result is invalid when what remains is not a number.
func ParseAmount(raw string) decimal.NullDecimal {
	cleaned := amountDecor.Replace(strings.ToUpper(raw))
	if cleaned == "" {
		return decimal.NullDecimal{}
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: amount, Valid: true}
}

// FormatCurrency renders whole dirhams with thousands separators, e.g. "AED 4,900".
func FormatCurrency(amount decimal.Decimal) string {
	return currencyPrinter.Sprintf("AED %d", amount.Round(0).IntPart())
}

// OutcomeMessage is the user-facing text for a validation outcome.
func OutcomeMessage(outcome domain.ValidationOutcome) string {
	switch outcome.Reason {
	case domain.ReasonNone:
		return "bid accepted"
	case domain.ReasonBelowMinimum:
		return "the minimum bid is " + FormatCurrency(outcome.MinimumRequired)
	case domain.ReasonAboveCeiling:
		return "amount too high"
	default:
		return "invalid amount"
	}
}
