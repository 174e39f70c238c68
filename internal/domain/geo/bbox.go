package geo

import "github.com/golang/geo/s2"

// BoundingBox is a latitude/longitude rectangle used to prefilter candidate trips.
type BoundingBox struct {
	rect s2.Rect
}

// BoundingBoxAround returns the rectangle spanning ±spanDegrees around center on both axes.
// Latitudes are clamped at the poles.
func BoundingBoxAround(center Point, spanDegrees float64) BoundingBox {
	rect := s2.RectFromCenterSize(
		s2.LatLngFromDegrees(center.Lat, center.Lng),
		s2.LatLngFromDegrees(2*spanDegrees, 2*spanDegrees),
	)
	return BoundingBox{rect: rect}
}

// MinLat returns the southern edge in degrees.
func (b BoundingBox) MinLat() float64 { return b.rect.Lo().Lat.Degrees() }

// MaxLat returns the northern edge in degrees.
func (b BoundingBox) MaxLat() float64 { return b.rect.Hi().Lat.Degrees() }

// MinLng returns the western edge in degrees.
func (b BoundingBox) MinLng() float64 { return b.rect.Lo().Lng.Degrees() }

// MaxLng returns the eastern edge in degrees.
func (b BoundingBox) MaxLng() float64 { return b.rect.Hi().Lng.Degrees() }

// LngRanges returns the longitude intervals covered by the box as [min, max] pairs. A box
// crossing the antimeridian has MinLng > MaxLng and is split into two intervals.
func (b BoundingBox) LngRanges() [][2]float64 {
	if b.rect.Lng.IsInverted() {
		return [][2]float64{{b.MinLng(), 180}, {-180, b.MaxLng()}}
	}
	return [][2]float64{{b.MinLng(), b.MaxLng()}}
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p Point) bool {
	return b.rect.ContainsLatLng(s2.LatLngFromDegrees(p.Lat, p.Lng))
}
