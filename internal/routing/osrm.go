package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/geo"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/domain"
)

type osrmResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Geometry string  `json:"geometry"`
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}

// OSRMClient calls the route service of an OSRM server.
type OSRMClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOSRMClient creates an OSRMClient for the server at baseURL.
func NewOSRMClient(baseURL string, timeout time.Duration, logger *zap.Logger) *OSRMClient {
	return &OSRMClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(zap.String("component", "osrm_client")),
	}
}

// Route requests the fastest driving route with full polyline geometry.
// Transport failures, non-2xx statuses and any code other than "Ok" are upstream route failures.
func (c *OSRMClient) Route(ctx context.Context, pickup, drop geo.Point) (*RouteData, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%s,%s;%s,%s?overview=full&geometries=polyline",
		c.baseURL,
		formatCoord(pickup.Lng), formatCoord(pickup.Lat),
		formatCoord(drop.Lng), formatCoord(drop.Lat),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewUpstreamRouteError("routing provider unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, domain.NewUpstreamRouteError("failed to read routing response", err)
	}

	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return nil, domain.NewUpstreamRouteError(fmt.Sprintf("routing provider returned status %d", resp.StatusCode), nil)
		}
		return nil, domain.NewUpstreamRouteError("failed to decode routing response", err)
	}

	if resp.StatusCode >= 400 || parsed.Code != "Ok" {
		msg := parsed.Message
		if msg == "" {
			msg = "unknown"
		}
		c.logger.Warn("route request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("code", parsed.Code),
			zap.String("message", msg),
		)
		return nil, domain.NewUpstreamRouteError(fmt.Sprintf("route failed: %s (%s)", msg, parsed.Code), nil)
	}
	if len(parsed.Routes) == 0 {
		return nil, domain.NewUpstreamRouteError("route failed: no routes returned", nil)
	}

	route := parsed.Routes[0]
	c.logger.Debug("route resolved",
		zap.Float64("distance", route.Distance),
		zap.Float64("duration", route.Duration),
		zap.Duration("latency", time.Since(start)),
	)

	return &RouteData{
		Geometry:        route.Geometry,
		DistanceMeters:  route.Distance,
		DurationSeconds: route.Duration,
	}, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
