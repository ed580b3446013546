package geo

import "math"

const (
	earthRadiusMeters = 6371000.0
	metersPerDegree   = earthRadiusMeters * math.Pi / 180
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Valid reports whether the point lies within WGS84 bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// BoundingBox is a coarse lat/lng rectangle used as a store prefilter.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Contains reports whether p falls inside the box.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	return earthRadiusMeters * centralAngle(a, b)
}

func centralAngle(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can push h a hair past 1 for antipodal points.
	h = math.Min(1, math.Max(0, h))

	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// BoundingBoxAround converts a radius in meters into an approximate degree
// rectangle centred on p. The box always contains the true circle.
func BoundingBoxAround(p Point, radiusMeters float64) BoundingBox {
	latDelta := radiusMeters / metersPerDegree
	cosLat := math.Cos(p.Lat * math.Pi / 180)
	lngDelta := 180.0
	if cosLat > 1e-6 {
		lngDelta = math.Min(180, radiusMeters/(metersPerDegree*cosLat))
	}
	return BoundingBox{
		MinLat: math.Max(-90, p.Lat-latDelta),
		MaxLat: math.Min(90, p.Lat+latDelta),
		MinLng: p.Lng - lngDelta,
		MaxLng: p.Lng + lngDelta,
	}
}

// Offset returns the point reached by moving north and east by the given
// number of meters. Accurate for short distances only.
func Offset(p Point, northMeters, eastMeters float64) Point {
	dLat := northMeters / earthRadiusMeters * 180 / math.Pi
	dLng := eastMeters / (earthRadiusMeters * math.Cos(p.Lat*math.Pi/180)) * 180 / math.Pi
	return Point{Lat: p.Lat + dLat, Lng: p.Lng + dLng}
}
