// Package wallet implements the diamond to BRL conversion and withdrawal
// fee math. All amounts are integer centavos; there is no floating point
// anywhere in the money path.
package wallet

import (
	"sort"

	"github.com/berrylive/live-service/internal/domain"
)

// FeePercent is the platform's cut of every withdrawal, applied to the
// gross BRL amount before payout.
const FeePercent = 20

// Tier maps a diamond quantity to its bulk BRL price. Larger tiers carry
// a better unit rate until the premium top tier inverts it.
type Tier struct {
	Diamonds int64           `json:"diamonds" mapstructure:"diamonds"`
	Price    domain.Centavos `json:"price" mapstructure:"price"`
}

// Quote is the result of a withdrawal calculation. Net + Fee always equals
// Gross exactly.
type Quote struct {
	Diamonds int64           `json:"diamonds"`
	Gross    domain.Centavos `json:"gross_brl"`
	Fee      domain.Centavos `json:"fee_brl"`
	Net      domain.Centavos `json:"net_brl"`
}

// Calculator converts diamond amounts into payout quotes against a fixed
// tier table.
type Calculator struct {
	tiers []Tier
}

// DefaultTiers is the production conversion table, in centavos.
func DefaultTiers() []Tier {
	return []Tier{
		{Diamonds: 500, Price: 450},
		{Diamonds: 1000, Price: 950},
		{Diamonds: 5000, Price: 4800},
		{Diamonds: 10000, Price: 10000},
		{Diamonds: 50000, Price: 52500},
	}
}

// NewCalculator builds a calculator over the given tiers. The table is
// sorted and copied; an empty table falls back to DefaultTiers.
func NewCalculator(tiers []Tier) *Calculator {
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	sorted := append([]Tier(nil), tiers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Diamonds < sorted[j].Diamonds })
	return &Calculator{tiers: sorted}
}

// Tiers returns the conversion table in ascending order.
func (c *Calculator) Tiers() []Tier {
	return append([]Tier(nil), c.tiers...)
}

// Calculate quotes a withdrawal of the given diamond amount. The unit rate
// comes from the largest tier not exceeding the amount; amounts below the
// smallest tier still use the smallest tier's rate. Sub-centavo remainders
// truncate toward zero in the platform's favor, and the fee is carved out
// of the truncated gross so the identity net + fee == gross holds by
// construction.
func (c *Calculator) Calculate(diamonds int64) (Quote, error) {
	if diamonds <= 0 {
		return Quote{}, domain.ErrValidation
	}

	tier := c.tiers[0]
	for _, t := range c.tiers {
		if t.Diamonds > diamonds {
			break
		}
		tier = t
	}

	gross := domain.Centavos(diamonds * int64(tier.Price) / tier.Diamonds)
	fee := gross * FeePercent / 100
	net := gross - fee

	return Quote{Diamonds: diamonds, Gross: gross, Fee: fee, Net: net}, nil
}
