package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundingBoxArea(t *testing.T) {
	t.Run("city-scale box has positive area", func(t *testing.T) {
		area := BoundingBoxArea(Geo{Lat: 20.0, Lon: -99.0}, Geo{Lat: 19.9, Lon: -99.1})
		require.NotNil(t, area)
		assert.Greater(t, *area, 0.0)

		// Roughly 10.4 km x 11.1 km at this latitude.
		assert.InEpsilon(t, 1.16e8, *area, 0.05)
	})

	t.Run("degenerate box has zero area", func(t *testing.T) {
		p := Geo{Lat: 19.43, Lon: -99.13}
		area := BoundingBoxArea(p, p)
		require.NotNil(t, area)
		assert.Equal(t, 0.0, *area)
	})

	t.Run("area is non-negative regardless of corner order", func(t *testing.T) {
		cases := []struct {
			name   string
			ne, sw Geo
		}{
			{"normal", Geo{25.69, -100.32}, Geo{25.58, -100.45}},
			{"swapped corners", Geo{19.9, -99.1}, Geo{20.0, -99.0}},
			{"crossing the equator", Geo{0.1, 10.0}, Geo{-0.1, 9.8}},
			{"same latitude", Geo{20.0, -99.0}, Geo{20.0, -99.2}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				area := BoundingBoxArea(tc.ne, tc.sw)
				require.NotNil(t, area)
				assert.GreaterOrEqual(t, *area, 0.0)
			})
		}
	})

	t.Run("any NaN component yields nil, never zero", func(t *testing.T) {
		nan := math.NaN()
		cases := []struct {
			name   string
			ne, sw Geo
		}{
			{"ne lat", Geo{nan, -99.0}, Geo{19.9, -99.1}},
			{"ne lon", Geo{20.0, nan}, Geo{19.9, -99.1}},
			{"sw lat", Geo{20.0, -99.0}, Geo{nan, -99.1}},
			{"sw lon", Geo{20.0, -99.0}, Geo{19.9, nan}},
			{"all", Geo{nan, nan}, Geo{nan, nan}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				assert.Nil(t, BoundingBoxArea(tc.ne, tc.sw))
			})
		}
	})
}
