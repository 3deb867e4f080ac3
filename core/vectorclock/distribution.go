package vectorclock

import "tokenmesh/core/types"

// idealMinimumCount is the baseline allocation for the smallest
// denomination when the user's total value permits it (spec §4.3).
const idealMinimumCount = 5

// idealDecayFactor shrinks the target count for each successively larger
// denomination. Taken from spec §9's narrative documentation: "source does
// not provide a closed-form formula," so this constant and the minimum
// above are an explicit, documented Open Question decision (see DESIGN.md).
const idealDecayFactor = 0.8

// ComputeIdealDistribution computes the target per-denomination token count
// for a user holding total value v (in whole units, not centiunits — the
// ideal distribution is a token *count* target, not a value target beyond
// the cap below). Denominations are walked smallest-to-largest; each next
// denomination's target is floor(previous*0.8), minimum 1, and allocation
// stops capping so the cumulative value never exceeds v.
func ComputeIdealDistribution(totalValue uint64) map[types.Denomination]int {
	ideal := make(map[types.Denomination]int, len(types.Denominations))
	if totalValue == 0 {
		for _, d := range types.Denominations {
			ideal[d] = 0
		}
		return ideal
	}

	var cumulative uint64
	prevCount := idealMinimumCount
	for i, d := range types.Denominations {
		count := idealMinimumCount
		if i > 0 {
			count = int(float64(prevCount) * idealDecayFactor)
			if count < 1 {
				count = 1
			}
		}
		denomValue := uint64(d) * uint64(count)
		if cumulative+denomValue > totalValue {
			remaining := totalValue - cumulative
			count = int(remaining / uint64(d))
			denomValue = uint64(d) * uint64(count)
		}
		ideal[d] = count
		cumulative += denomValue
		prevCount = count
		if cumulative >= totalValue {
			for _, rest := range types.Denominations[i+1:] {
				ideal[rest] = 0
			}
			break
		}
	}
	return ideal
}
