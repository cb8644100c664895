package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPrediction(t *testing.T) {
	offer := TicketOffer{Name: "General", Price: 300, Quantity: 1000}

	t.Run("fraction convention", func(t *testing.T) {
		rec := FormatPrediction(0.42, offer, OutputFraction, nil)

		assert.Equal(t, 42.00, rec.SoldOutPct)
		assert.Equal(t, 420.0, rec.TicketsSold)
		assert.Equal(t, 126000.0, rec.Revenue)
		assert.Nil(t, rec.Actual)
	})

	t.Run("percent convention", func(t *testing.T) {
		rec := FormatPrediction(42.0, offer, OutputPercent, nil)

		assert.Equal(t, 42.00, rec.SoldOutPct)
		assert.Equal(t, 420.0, rec.TicketsSold)
		assert.Equal(t, 126000.0, rec.Revenue)
	})

	t.Run("percentage rounds to two decimals", func(t *testing.T) {
		rec := FormatPrediction(0.33333, offer, OutputFraction, nil)
		assert.Equal(t, 33.33, rec.SoldOutPct)
	})

	t.Run("tickets and revenue round to whole units", func(t *testing.T) {
		rec := FormatPrediction(0.12345, TicketOffer{Name: "VIP", Price: 333, Quantity: 777}, OutputFraction, nil)

		// 0.12345 * 777 = 95.92, revenue from the unrounded count.
		assert.Equal(t, 96.0, rec.TicketsSold)
		assert.Equal(t, 31942.0, rec.Revenue)
	})

	t.Run("actuals are echoed, never estimated", func(t *testing.T) {
		rec := FormatPrediction(0.42, offer, OutputFraction, &ActualSales{TicketsSold: 500})

		require.NotNil(t, rec.Actual)
		assert.Equal(t, 50.00, rec.Actual.SoldOutPct)
		assert.Equal(t, 500.0, rec.Actual.TicketsSold)
		assert.Equal(t, 150000.0, rec.Actual.Revenue)

		// Prediction side is untouched by the actuals.
		assert.Equal(t, 42.00, rec.SoldOutPct)
	})

	t.Run("zero quantity leaves actual percentage at zero", func(t *testing.T) {
		rec := FormatPrediction(0.5, TicketOffer{Name: "General", Price: 100}, OutputFraction, &ActualSales{TicketsSold: 0})
		require.NotNil(t, rec.Actual)
		assert.Equal(t, 0.0, rec.Actual.SoldOutPct)
	})
}

func TestOutputConvention(t *testing.T) {
	assert.True(t, OutputFraction.Valid())
	assert.True(t, OutputPercent.Valid())
	assert.False(t, OutputConvention("ratio").Valid())
}
