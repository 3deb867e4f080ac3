package types

// Amount is a value expressed in hundredths of the base unit ("centiunits").
// Denominations are whole-unit face values (1, 2, 5, ...); representing
// amounts in centiunits lets a payment target carry a sub-unit fractional
// component (e.g. 27.45) that no combination of whole-denomination tokens
// can satisfy exactly — that remainder is exactly what the WisselToken's
// AfrondingsBuffer (§4.3) exists to absorb, bounded at 0.99.
type Amount uint64

// AmountFromUnits converts a whole-unit integer (e.g. a token's
// denomination) into centiunits.
func AmountFromUnits(units uint64) Amount {
	return Amount(units * 100)
}

// Units returns the whole-unit portion of the amount, truncating any
// fractional remainder.
func (a Amount) Units() uint64 {
	return uint64(a) / 100
}

// Fraction returns the sub-unit remainder, 0..99.
func (a Amount) Fraction() uint8 {
	return uint8(uint64(a) % 100)
}

// WholeUnitValue returns the amount rounded down to a whole-unit centiunit
// value, discarding the fraction.
func (a Amount) WholeUnitValue() Amount {
	return Amount(a.Units() * 100)
}
