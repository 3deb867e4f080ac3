// Package vectorclock implements the Denomination Vector Clock: a per-user
// map from denomination to a coarse {Lack, SlightlyWanting, Good, Abundance}
// status code, the ideal-distribution computation it is measured against,
// and the selection optimizer the transaction state machine calls to decide
// which tokens move in a given exchange (spec §4.3).
package vectorclock

import "tokenmesh/core/types"

// Status is the 2-bit status code attached to each denomination.
type Status uint8

const (
	StatusLack Status = iota
	StatusSlightlyWanting
	StatusGood
	StatusAbundance
)

func (s Status) String() string {
	switch s {
	case StatusLack:
		return "LACK"
	case StatusSlightlyWanting:
		return "SLIGHTLY_WANTING"
	case StatusGood:
		return "GOOD"
	case StatusAbundance:
		return "ABUNDANCE"
	default:
		return "UNKNOWN"
	}
}

// Clock is a user's denomination vector clock.
type Clock struct {
	UserID          string                           `json:"userId"`
	TimestampMs     int64                             `json:"timestampMs"`
	StatusCodes     map[types.Denomination]Status     `json:"statusCodes"`
	IdealDistribution map[types.Denomination]int      `json:"idealDistribution"`
}

// StatusFor reports the status of denomination d, defaulting to Lack for a
// denomination the clock has no entry for (an empty portfolio lacks
// everything).
func (c *Clock) StatusFor(d types.Denomination) Status {
	if c == nil || c.StatusCodes == nil {
		return StatusLack
	}
	if s, ok := c.StatusCodes[d]; ok {
		return s
	}
	return StatusLack
}

// statusFromCounts maps an actual/ideal count pair to a status code per the
// thresholds in spec §4.3.
func statusFromCounts(actual, ideal int) Status {
	if ideal <= 0 {
		if actual <= 0 {
			return StatusLack
		}
		return StatusAbundance
	}
	switch {
	case float64(actual) <= 0.25*float64(ideal):
		return StatusLack
	case float64(actual) <= 0.75*float64(ideal):
		return StatusSlightlyWanting
	case float64(actual) <= 1.5*float64(ideal):
		return StatusGood
	default:
		return StatusAbundance
	}
}

// Build computes a fresh vector clock for userId from a portfolio's actual
// per-denomination counts. The ideal distribution is derived from the
// portfolio's total value (spec §4.3).
func Build(userID string, counts map[types.Denomination]int, nowMs int64) *Clock {
	var total uint64
	for d, n := range counts {
		if n > 0 {
			total += uint64(d) * uint64(n)
		}
	}
	ideal := ComputeIdealDistribution(total)

	statuses := make(map[types.Denomination]Status, len(types.Denominations))
	for _, d := range types.Denominations {
		statuses[d] = statusFromCounts(counts[d], ideal[d])
	}

	return &Clock{
		UserID:            userID,
		TimestampMs:       nowMs,
		StatusCodes:       statuses,
		IdealDistribution: ideal,
	}
}

// Merge combines two clocks: status(d) = max(a.status(d), b.status(d)),
// timestamp = max(a.timestamp, b.timestamp). Per spec §9 the wire
// representation is the statusCodes map alone, so Merge only needs that map
// (IdealDistribution is reconstructible locally and is left nil on the
// merged clock).
func Merge(a, b *Clock) *Clock {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	merged := &Clock{
		UserID:      a.UserID,
		StatusCodes: make(map[types.Denomination]Status, len(types.Denominations)),
	}
	merged.TimestampMs = a.TimestampMs
	if b.TimestampMs > merged.TimestampMs {
		merged.TimestampMs = b.TimestampMs
	}
	for _, d := range types.Denominations {
		sa, sb := a.StatusFor(d), b.StatusFor(d)
		if sb > sa {
			merged.StatusCodes[d] = sb
		} else {
			merged.StatusCodes[d] = sa
		}
	}
	return merged
}
