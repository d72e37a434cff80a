package domain

import "fmt"

// Centavos is a BRL amount in hundredths. All money math in this service is
// integer math on centavos, so truncation is integer division and sums are
// exact to the cent.
type Centavos int64

// String renders the amount with two decimals, e.g. "100.00".
func (c Centavos) String() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON renders the amount as a JSON number with exactly two decimals.
func (c Centavos) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}
