package agents

import "eve-dispatch/internal/domain"

// variantKind names the four shapes a courier's offer can take.
type variantKind string

const (
	variantASAP       variantKind = "asap"
	variantJIT        variantKind = "jit"
	variantConflict   variantKind = "conflict"
	variantReschedule variantKind = "reschedule"
)

// shiftLink is one cascaded time shift inside a reschedule variant's chain:
// order keeps its original duration and cost, but moves to [NewStart, NewEnd].
type shiftLink struct {
	Order          *domain.Order
	NewStart       float64
	NewEnd         float64
	OriginalCost   float64
	OriginalParams map[string]any
}

// Variant is a concrete offer from one courier to one order: a committable
// price/window plus whatever bookkeeping its kind needs to commit atomically.
type Variant struct {
	Courier *domain.Courier
	Order   *domain.Order
	Kind    variantKind

	TimeFrom float64
	TimeTo   float64
	Price    float64

	// ConflictOrder is set for variantConflict: the cheaper order this
	// variant would evict.
	ConflictOrder *domain.Order

	// ShiftChain is set for variantReschedule: every downstream order that
	// must shift forward, in the order it must be reinserted.
	ShiftChain []shiftLink

	StartEfficiency  float64
	FinishEfficiency float64
	PriceEfficiency  float64
	TotalEfficiency  float64
}

// decreasingKPI returns 1 at lo, 0 at hi, -1 outside [lo,hi], and 1 when the
// range collapses to a point.
func decreasingKPI(value, lo, hi float64) float64 {
	if hi == lo {
		return 1
	}
	if value > hi || value < lo {
		return -1
	}
	return 1 - (value-lo)/(hi-lo)
}

// increasingKPI returns 0 at lo, 1 at hi, -1 outside [lo,hi], and 1 when the
// range collapses to a point.
func increasingKPI(value, lo, hi float64) float64 {
	if hi == lo {
		return 1
	}
	if value > hi || value < lo {
		return -1
	}
	return (value - lo) / (hi - lo)
}

// Weights holds the multi-criteria variant-scoring coefficients from
// config.Config, passed down rather than imported directly so this package
// stays free of a config dependency.
type Weights struct {
	Finish float64
	Start  float64
	Price  float64
}

// DefaultWeights matches the worked scenarios in spec.md's variant-scoring
// section, and is what a Context without an explicit Weights value falls
// back to.
var DefaultWeights = Weights{Finish: 0.3, Start: 0.2, Price: 0.5}

// scoreVariants fills in each variant's efficiency fields, normalized
// against the min/max of the whole candidate set.
func scoreVariants(variants []Variant, w Weights) {
	if len(variants) == 0 {
		return
	}
	minStart, maxStart := variants[0].TimeFrom, variants[0].TimeFrom
	minFinish, maxFinish := variants[0].TimeTo, variants[0].TimeTo
	minPrice, maxPrice := variants[0].Price, variants[0].Price
	for _, v := range variants[1:] {
		minStart, maxStart = min(minStart, v.TimeFrom), max(maxStart, v.TimeFrom)
		minFinish, maxFinish = min(minFinish, v.TimeTo), max(maxFinish, v.TimeTo)
		minPrice, maxPrice = min(minPrice, v.Price), max(maxPrice, v.Price)
	}
	for i := range variants {
		v := &variants[i]
		v.StartEfficiency = decreasingKPI(v.TimeFrom, minStart, maxStart)
		v.FinishEfficiency = increasingKPI(v.TimeTo, minFinish, maxFinish)
		v.PriceEfficiency = decreasingKPI(v.Price, minPrice, maxPrice)
		v.TotalEfficiency = w.Finish*v.FinishEfficiency + w.Start*v.StartEfficiency + w.Price*v.PriceEfficiency
	}
}

// best returns the index of the highest-scoring variant, ties broken by
// insertion order (the first maximum found).
func best(variants []Variant) int {
	bestIdx := 0
	for i := 1; i < len(variants); i++ {
		if variants[i].TotalEfficiency > variants[bestIdx].TotalEfficiency {
			bestIdx = i
		}
	}
	return bestIdx
}
