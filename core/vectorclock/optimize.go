package vectorclock

import (
	"sort"

	coreerrors "tokenmesh/core/errors"
	"tokenmesh/core/types"
)

// Selection is the result of Optimize: the tokens chosen to move, plus the
// fraction of the payment target (if any) that must be absorbed by the
// sender's WisselToken buffer rather than satisfied by whole-denomination
// tokens.
type Selection struct {
	Tokens           []*types.Token
	BufferConsumed   types.Amount
}

// preferenceScore implements spec §4.3 step 1: denominations the sender
// holds in abundance and the receiver lacks are preferred for sending.
func preferenceScore(d types.Denomination, sender, receiver *Clock) int {
	return 2*int(sender.StatusFor(d)) - 2*int(receiver.StatusFor(d))
}

// Optimize selects a subset of available (ACTIVE, REGULAR) tokens whose
// value exactly covers target's whole-unit portion, preferring
// denominations by the combined sender/receiver preference score and
// breaking ties on denomination value, then lexicographic token id. Any
// sub-unit fractional remainder in target is absorbed by wissel's buffer,
// subject to the minimum-balance rule enforced by wisselSpendable.
func Optimize(available []*types.Token, target types.Amount, sender, receiver *Clock, wissel *types.WisselToken, wisselSpendable bool) (*Selection, error) {
	byDenom := make(map[types.Denomination][]*types.Token)
	for _, tok := range available {
		if tok == nil || tok.Type != types.TokenRegular || tok.State != types.StateActive {
			continue
		}
		byDenom[tok.Denomination] = append(byDenom[tok.Denomination], tok)
	}
	for d := range byDenom {
		sort.Slice(byDenom[d], func(i, j int) bool {
			return byDenom[d][i].ID < byDenom[d][j].ID
		})
	}

	preference := denominationsPresent(byDenom)
	sort.Slice(preference, func(i, j int) bool {
		di, dj := preference[i], preference[j]
		si, sj := preferenceScore(di, sender, receiver), preferenceScore(dj, sender, receiver)
		if si != sj {
			return si > sj
		}
		if di != dj {
			return di > dj
		}
		return false
	})

	used := make(map[types.TokenID]bool)
	var selected []*types.Token
	remaining := uint64(target.WholeUnitValue())

	take := func(d types.Denomination, want int) int {
		list := byDenom[d]
		taken := 0
		for _, tok := range list {
			if taken >= want {
				break
			}
			if used[tok.ID] {
				continue
			}
			used[tok.ID] = true
			selected = append(selected, tok)
			taken++
		}
		return taken
	}

	for _, d := range preference {
		if remaining == 0 {
			break
		}
		value := uint64(d) * 100
		want := int(remaining / value)
		if want <= 0 {
			continue
		}
		got := take(d, want)
		remaining -= uint64(got) * value
	}

	if remaining != 0 {
		// Finishing pass: canonical largest-to-smallest greedy over tokens
		// not yet selected. This recovers exactness when the
		// preference-ordered pass above left an unfillable gap because its
		// order wasn't monotonic in denomination value.
		finishing := append([]types.Denomination(nil), types.Denominations...)
		sort.Sort(sort.Reverse(denomSlice(finishing)))
		for _, d := range finishing {
			if remaining == 0 {
				break
			}
			value := uint64(d) * 100
			want := int(remaining / value)
			if want <= 0 {
				continue
			}
			got := take(d, want)
			remaining -= uint64(got) * value
		}
	}

	if remaining != 0 {
		return nil, coreerrors.Newf(coreerrors.CodeInsufficientTokens, "vectorclock: no exact combination of available tokens sums to %d whole units", target.Units())
	}

	fraction := types.Amount(target.Fraction())
	if fraction > 0 {
		if wissel == nil || !wisselSpendable {
			return nil, coreerrors.Newf(coreerrors.CodeInsufficientTokens, "vectorclock: %d sub-unit remainder requires a spendable WisselToken", fraction)
		}
		if fraction > 99 {
			return nil, coreerrors.Newf(coreerrors.CodeInsufficientTokens, "vectorclock: remainder %d exceeds the 0.99 buffer bound", fraction)
		}
	}

	return &Selection{Tokens: selected, BufferConsumed: fraction}, nil
}

func denominationsPresent(byDenom map[types.Denomination][]*types.Token) []types.Denomination {
	out := make([]types.Denomination, 0, len(byDenom))
	for d, toks := range byDenom {
		if len(toks) > 0 {
			out = append(out, d)
		}
	}
	return out
}

type denomSlice []types.Denomination

func (s denomSlice) Len() int           { return len(s) }
func (s denomSlice) Less(i, j int) bool { return s[i] < s[j] }
func (s denomSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
