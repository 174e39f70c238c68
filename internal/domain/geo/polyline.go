package geo

import (
	"fmt"

	"github.com/twpayne/go-polyline"
)

// DecodeError is returned when a route geometry string cannot be decoded.
type DecodeError struct {
	Geometry string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode geometry (%d chars): %v", len(e.Geometry), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode converts an encoded polyline (precision 1e5) into a Route.
// An empty geometry decodes to an empty Route.
func Decode(geometry string) (Route, error) {
	if geometry == "" {
		return Route{}, nil
	}

	coords, _, err := polyline.DecodeCoords([]byte(geometry))
	if err != nil {
		return nil, &DecodeError{Geometry: geometry, Err: err}
	}

	route := make(Route, len(coords))
	for i, coord := range coords {
		route[i] = Point{Lat: coord[0], Lng: coord[1]}
		if !route[i].IsValid() {
			return nil, &DecodeError{
				Geometry: geometry,
				Err:      fmt.Errorf("coordinate %d out of range: (%f, %f)", i, coord[0], coord[1]),
			}
		}
	}

	return route, nil
}

// Encode converts a Route into an encoded polyline string.
func Encode(route Route) string {
	if len(route) == 0 {
		return ""
	}

	coords := make([][]float64, len(route))
	for i, p := range route {
		coords[i] = []float64{p.Lat, p.Lng}
	}
	return string(polyline.EncodeCoords(coords))
}
