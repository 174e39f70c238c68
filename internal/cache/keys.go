package cache

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/geo"
)

// KeyAllMatches matches every cached match list of the current format.
const KeyAllMatches = "matches:*:v2"

// KeyMatches is the ranked match list of a trip.
func KeyMatches(tripID uuid.UUID) string {
	return fmt.Sprintf("matches:%s:v2", tripID)
}

// KeyRoute is the routing provider response between two points.
func KeyRoute(pickup, drop geo.Point) string {
	return fmt.Sprintf("rt:%s,%s-%s,%s",
		formatCoord(pickup.Lat), formatCoord(pickup.Lng),
		formatCoord(drop.Lat), formatCoord(drop.Lng))
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
