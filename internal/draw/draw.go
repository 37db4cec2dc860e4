// Package draw implements weighted random selection over the case catalog.
package draw

import (
	"errors"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/model"
)

// Errors returned by Draw. Both indicate a misconfigured catalog.
var (
	ErrEmptyCatalog   = errors.New("case catalog is empty")
	ErrInvalidWeights = errors.New("case catalog weights are invalid")
)

// Random is a source of uniform floats in [0, 1).
// *rand.Rand from math/rand/v2 satisfies it.
type Random interface {
	Float64() float64
}

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }

// Default is the process-wide random source used in production.
var Default Random = globalRandom{}

// Order sorts items ascending by weight, keeping catalog order for ties.
// The returned slice is a copy.
func Order(items []model.CatalogItem) []model.CatalogItem {
	out := make([]model.CatalogItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight < out[j].Weight
	})
	return out
}

// Draw picks one item with probability weight/total.
// Items are walked in ascending weight order and the first item whose
// running sum exceeds r wins, so zero-weight items are never selected.
func Draw(items []model.CatalogItem, rng Random) (model.CatalogItem, error) {
	if len(items) == 0 {
		return model.CatalogItem{}, ErrEmptyCatalog
	}

	var total float64
	for _, it := range items {
		if it.Weight < 0 || math.IsNaN(it.Weight) || math.IsInf(it.Weight, 0) {
			return model.CatalogItem{}, ErrInvalidWeights
		}
		total += it.Weight
	}
	if total <= 0 || math.IsInf(total, 0) {
		return model.CatalogItem{}, ErrInvalidWeights
	}

	if rng == nil {
		rng = Default
	}
	return pick(Order(items), rng.Float64()*total), nil
}

// pick walks ordered items accumulating weights. If rounding leaves r at
// or past the final sum, the last item wins.
func pick(ordered []model.CatalogItem, r float64) model.CatalogItem {
	var cumulative float64
	for _, it := range ordered {
		cumulative += it.Weight
		if r < cumulative {
			return it
		}
	}
	return ordered[len(ordered)-1]
}
