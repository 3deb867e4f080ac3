package types

import "fmt"

// Denomination is a fixed face value a token may carry. The exchange only
// recognizes a closed set of denominations; any other value is rejected at
// token construction time.
type Denomination uint32

const (
	Denom1   Denomination = 1
	Denom2   Denomination = 2
	Denom5   Denomination = 5
	Denom10  Denomination = 10
	Denom20  Denomination = 20
	Denom50  Denomination = 50
	Denom100 Denomination = 100
	Denom200 Denomination = 200
	Denom500 Denomination = 500
)

// Denominations lists every valid denomination in ascending order. The
// ordering is significant: the vector clock's ideal-distribution computation
// walks this slice smallest-to-largest.
var Denominations = []Denomination{
	Denom1, Denom2, Denom5, Denom10, Denom20, Denom50, Denom100, Denom200, Denom500,
}

// Valid reports whether d belongs to the fixed denomination set.
func (d Denomination) Valid() bool {
	for _, v := range Denominations {
		if v == d {
			return true
		}
	}
	return false
}

func (d Denomination) String() string {
	return fmt.Sprintf("%d", uint32(d))
}
