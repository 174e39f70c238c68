package handler

import (
	"math"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Geethapranay1/coriding-matching-backend/internal/application"
	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/matching"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/response"
)

// MatchView is the response representation of a comparison, rounded to two decimals.
type MatchView struct {
	OverlapPercent        float64 `json:"overlap"`
	ExtraDistancePercent  float64 `json:"extra_distance"`
	Score                 float64 `json:"score"`
	Valid                 bool    `json:"valid"`
	ShapeDistance         float64 `json:"shape_distance"`
	ShapeSimilarity       float64 `json:"shape_similarity"`
	DirectionalSimilarity float64 `json:"directional_similarity"`
	DestinationMatch      bool    `json:"destination_match"`
	RouteType             string  `json:"route_type"`
}

// TripMatchView is a matched trip with its rounded comparison.
type TripMatchView struct {
	Trip  application.TripDTO `json:"trip"`
	Match MatchView           `json:"match"`
}

// TimeWindow is the departure range searched for candidates.
type TimeWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// MatchesResponse is the body of GET /api/v1/matches/:tripId.
type MatchesResponse struct {
	Trip    application.TripDTO `json:"trip"`
	Matches []TripMatchView     `json:"matches"`
	Window  TimeWindow          `json:"window"`
}

// MatchHandler handles HTTP requests for trip matching.
type MatchHandler struct {
	matches *application.MatchingService
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(matches *application.MatchingService) *MatchHandler {
	return &MatchHandler{matches: matches}
}

// RegisterRoutes registers all matching routes on the given router group.
func (h *MatchHandler) RegisterRoutes(r *gin.RouterGroup) {
	matches := r.Group("/api/v1/matches")
	{
		matches.POST("/compare", h.Compare)
		matches.DELETE("/cache", h.ClearCache)
		matches.DELETE("/cache/:tripId", h.ClearTripCache)
		matches.GET("/:tripId", h.FindMatches)
	}
}

// FindMatches handles GET /api/v1/matches/:tripId.
func (h *MatchHandler) FindMatches(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("tripId"))
	if err != nil {
		response.BadRequest(c, "invalid trip ID")
		return
	}

	found, err := h.matches.FindTripMatches(c.Request.Context(), tripID)
	if err != nil {
		response.Error(c, err)
		return
	}

	trip := found.Trip
	views := make([]TripMatchView, 0, len(found.Matches))
	for _, m := range found.Matches {
		views = append(views, TripMatchView{Trip: m.Trip, Match: toMatchView(m.Match)})
	}

	window := h.matches.DepartureWindow()
	response.Success(c, MatchesResponse{
		Trip:    trip,
		Matches: views,
		Window: TimeWindow{
			From: trip.DepartureTime.Add(-window),
			To:   trip.DepartureTime.Add(window),
		},
	})
}

// Compare handles POST /api/v1/matches/compare.
func (h *MatchHandler) Compare(c *gin.Context) {
	var req application.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.matches.CalculateMatch(req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toMatchView(*result))
}

// ClearCache handles DELETE /api/v1/matches/cache.
func (h *MatchHandler) ClearCache(c *gin.Context) {
	if err := h.matches.ClearCache(c.Request.Context(), nil); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"cleared": "all"})
}

// ClearTripCache handles DELETE /api/v1/matches/cache/:tripId.
func (h *MatchHandler) ClearTripCache(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("tripId"))
	if err != nil {
		response.BadRequest(c, "invalid trip ID")
		return
	}

	if err := h.matches.ClearCache(c.Request.Context(), &tripID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"cleared": tripID})
}

func toMatchView(r matching.MatchResult) MatchView {
	return MatchView{
		OverlapPercent:        round2(r.OverlapPercent),
		ExtraDistancePercent:  round2(r.ExtraDistancePercent),
		Score:                 round2(r.Score),
		Valid:                 r.Valid,
		ShapeDistance:         round2(r.ShapeDistance),
		ShapeSimilarity:       round2(r.ShapeSimilarity),
		DirectionalSimilarity: round2(r.DirectionalSimilarity),
		DestinationMatch:      r.DestinationMatch,
		RouteType:             r.RouteType.String(),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
