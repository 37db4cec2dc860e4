package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/model"
)

// ErrInvalidPayout is returned when a catalog item's payout cannot be applied.
var ErrInvalidPayout = errors.New("invalid payout")

// NormalizePrivilege derives a privilege tier from an item's display name:
// the first whitespace-delimited word, lower-cased. "VIP Bronze" gives "vip".
//
// Shop item names are the only source of tier assignment, so existing
// catalog entries depend on this exact derivation.
func NormalizePrivilege(name string) (string, error) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: privilege item has an empty name", ErrInvalidPayout)
	}
	return strings.ToLower(fields[0]), nil
}

// PlanReward translates a won item into the state change for its winner.
func PlanReward(item model.CatalogItem) (model.Reward, error) {
	if !item.PayoutKind.Valid() {
		return model.Reward{}, fmt.Errorf("%w: item %d has unknown type %q", ErrInvalidPayout, item.ID, item.PayoutKind)
	}

	switch item.PayoutKind {
	case model.PayoutBalance:
		amount, err := strconv.ParseInt(strings.TrimSpace(item.PayoutValue), 10, 64)
		if err != nil || amount < 0 {
			return model.Reward{}, fmt.Errorf("%w: item %d has balance value %q", ErrInvalidPayout, item.ID, item.PayoutValue)
		}
		return model.Reward{Kind: model.PayoutBalance, Amount: amount}, nil

	case model.PayoutPrivilege:
		tier, err := NormalizePrivilege(item.Name)
		if err != nil {
			return model.Reward{}, fmt.Errorf("item %d: %w", item.ID, err)
		}
		return model.Reward{Kind: model.PayoutPrivilege, Privilege: tier}, nil

	default: // PayoutNone
		return model.Reward{Kind: model.PayoutNone}, nil
	}
}
