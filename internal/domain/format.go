package domain

import "math"

// FormatPrediction turns a raw model output for one offer into display
// quantities. conv declares the unit of raw (see OutputConvention). The
// percentage is rounded to two decimals, ticket counts and revenue to whole
// units; revenue is derived from the unrounded ticket count.
//
// When actual is non-nil the same quantities are computed from the observed
// sales and attached for side-by-side backtest display. Actuals are echoed,
// never estimated.
func FormatPrediction(raw float64, offer TicketOffer, conv OutputConvention, actual *ActualSales) PredictionRecord {
	fraction := raw
	if conv == OutputPercent {
		fraction = raw / 100
	}

	tickets := fraction * offer.Quantity
	rec := PredictionRecord{
		TicketType:  offer.Name,
		SoldOutPct:  round2(fraction * 100),
		TicketsSold: math.Round(tickets),
		Revenue:     math.Round(tickets * offer.Price),
	}

	if actual != nil {
		stats := ActualStats{
			TicketsSold: actual.TicketsSold,
			Revenue:     math.Round(actual.TicketsSold * offer.Price),
		}
		if offer.Quantity > 0 {
			stats.SoldOutPct = round2(actual.TicketsSold / offer.Quantity * 100)
		}
		rec.Actual = &stats
	}

	return rec
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
