package domain

import "math"

// earthRadiusMeters is the IUGG mean Earth radius.
const earthRadiusMeters = 6371008.8

// BoundingBoxArea computes the ground area in square meters of the
// rectangle spanned by two bounding-box corners. Width and height are
// measured as great-circle distances along the rectangle edges touching the
// northeast corner, then multiplied as if the box were flat. The
// approximation is fine at city scale, where venue boxes live.
//
// Returns nil if any coordinate component is NaN: a venue with unknown
// geometry must surface as a null feature, because a zero area would read
// as a real (tiny) venue and bias the model.
func BoundingBoxArea(ne, sw Geo) *float64 {
	if math.IsNaN(ne.Lat) || math.IsNaN(ne.Lon) || math.IsNaN(sw.Lat) || math.IsNaN(sw.Lon) {
		return nil
	}

	width := haversineMeters(ne, Geo{Lat: ne.Lat, Lon: sw.Lon})
	height := haversineMeters(ne, Geo{Lat: sw.Lat, Lon: ne.Lon})

	area := width * height
	return &area
}

// haversineMeters returns the great-circle distance between two coordinates.
func haversineMeters(a, b Geo) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}
