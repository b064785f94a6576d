package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/roomsync/internal/models"
)

var (
	ErrEmptyGroup       = errors.New("no members in group to split with")
	ErrInvalidSplitList = errors.New("custom splits must be a list of user_id and amount")
	ErrSplitMismatch    = errors.New("split amounts must equal total amount")
	ErrInvalidPolicy    = errors.New("invalid split_type")
)

// Share is one requested entry of a custom split.
type Share struct {
	UserID string
	Amount decimal.Decimal
}

// Allocate computes the per-member obligations for a new expense.
//
// For SplitEqual every member gets round(total/len(members), 2). The rounding
// remainder is not redistributed, so the splits may sum to less or more than
// the total by up to len(members)-1 cents.
//
// For SplitCustom the shares are taken verbatim and must sum, rounded to cents,
// to the rounded total.
//
// Allocate only computes. The caller persists the expense and the returned
// splits as one unit.
func Allocate(total decimal.Decimal, policy models.SplitType, members []string, custom []Share) ([]models.Split, error) {
	switch policy {
	case models.SplitEqual:
		return allocateEqual(total, members)
	case models.SplitCustom:
		return allocateCustom(total, custom)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPolicy, policy)
	}
}

func allocateEqual(total decimal.Decimal, members []string) ([]models.Split, error) {
	if len(members) == 0 {
		return nil, ErrEmptyGroup
	}

	share := total.DivRound(decimal.NewFromInt(int64(len(members))), CentPlaces)

	splits := make([]models.Split, len(members))
	for i, m := range members {
		splits[i] = models.Split{UserID: m, Amount: share}
	}
	return splits, nil
}

func allocateCustom(total decimal.Decimal, custom []Share) ([]models.Split, error) {
	if len(custom) == 0 {
		return nil, ErrInvalidSplitList
	}

	seen := make(map[string]bool, len(custom))
	splits := make([]models.Split, len(custom))
	sum := decimal.Zero
	for i, s := range custom {
		if s.UserID == "" {
			return nil, fmt.Errorf("%w: entry %d has no user_id", ErrInvalidSplitList, i)
		}
		if s.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: entry %d has a negative amount", ErrInvalidSplitList, i)
		}
		if seen[s.UserID] {
			return nil, fmt.Errorf("%w: user %s appears more than once", ErrInvalidSplitList, s.UserID)
		}
		seen[s.UserID] = true

		sum = sum.Add(s.Amount)
		splits[i] = models.Split{UserID: s.UserID, Amount: s.Amount}
	}

	if !Round(sum).Equal(Round(total)) {
		return nil, fmt.Errorf("%w: splits sum to %s, total is %s", ErrSplitMismatch, Round(sum).StringFixed(CentPlaces), Round(total).StringFixed(CentPlaces))
	}
	return splits, nil
}
