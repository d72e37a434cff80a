package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berrylive/live-service/internal/domain"
)

func TestCalculateTierRates(t *testing.T) {
	calc := NewCalculator(nil)

	tests := []struct {
		name     string
		diamonds int64
		gross    domain.Centavos
		fee      domain.Centavos
		net      domain.Centavos
	}{
		{name: "exact smallest tier", diamonds: 500, gross: 450, fee: 90, net: 360},
		{name: "exact mid tier", diamonds: 1000, gross: 950, fee: 190, net: 760},
		{name: "exact 5000 tier", diamonds: 5000, gross: 4800, fee: 960, net: 3840},
		{name: "parity tier", diamonds: 10000, gross: 10000, fee: 2000, net: 8000},
		{name: "premium top tier", diamonds: 50000, gross: 52500, fee: 10500, net: 42000},
		{name: "below smallest tier uses its rate", diamonds: 100, gross: 90, fee: 18, net: 72},
		{name: "between tiers keeps lower rate", diamonds: 999, gross: 899, fee: 179, net: 720},
		{name: "above top tier keeps top rate", diamonds: 100000, gross: 105000, fee: 21000, net: 84000},
		{name: "single diamond truncates", diamonds: 1, gross: 0, fee: 0, net: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := calc.Calculate(tt.diamonds)
			require.NoError(t, err)
			assert.Equal(t, tt.gross, quote.Gross)
			assert.Equal(t, tt.fee, quote.Fee)
			assert.Equal(t, tt.net, quote.Net)
			assert.Equal(t, quote.Gross, quote.Net+quote.Fee)
		})
	}
}

func TestCalculateRejectsNonPositive(t *testing.T) {
	calc := NewCalculator(nil)

	for _, diamonds := range []int64{0, -1, -500} {
		_, err := calc.Calculate(diamonds)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
}

func TestCalculateConservation(t *testing.T) {
	calc := NewCalculator(nil)

	// The net + fee == gross identity must hold at every amount, including
	// ones whose gross does not divide evenly by the fee percentage.
	for diamonds := int64(1); diamonds <= 20000; diamonds += 7 {
		quote, err := calc.Calculate(diamonds)
		require.NoError(t, err)
		assert.Equal(t, quote.Gross, quote.Net+quote.Fee, "diamonds=%d", diamonds)
		assert.GreaterOrEqual(t, int64(quote.Net), int64(0))
	}
}

func TestCalculateCustomTiersSorted(t *testing.T) {
	calc := NewCalculator([]Tier{
		{Diamonds: 1000, Price: 900},
		{Diamonds: 100, Price: 100},
	})

	quote, err := calc.Calculate(100)
	require.NoError(t, err)
	assert.Equal(t, domain.Centavos(100), quote.Gross)

	quote, err = calc.Calculate(1000)
	require.NoError(t, err)
	assert.Equal(t, domain.Centavos(900), quote.Gross)
}
