package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/qos-dev/qosdash/internal/metrics"
	"github.com/qos-dev/qosdash/internal/upstream"
)

const (
	missingTokenMessage = "Authentication token is required"
	defaultTimeUnit     = "day"
)

// statsView is one forwarded statistics view.
type statsView struct {
	kind     string
	endpoint string
}

var (
	summaryView  = statsView{kind: "summary", endpoint: "/analytics/location-stats/summary"}
	districtView = statsView{kind: "district", endpoint: "/analytics/location-stats/district"}
	questView    = statsView{kind: "quest", endpoint: "/analytics/location-stats/quest"}
	timeView     = statsView{kind: "time", endpoint: "/analytics/location-stats/time"}
)

// @Summary Summary stats
// @Description Total visitors, visits, quests and districts
// @Tags stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/analytics/location-stats/summary [get]
func (s *Server) getSummaryStats(c *gin.Context) {
	s.forwardStats(c, summaryView, nil)
}

// @Summary District stats
// @Description Visits grouped by district
// @Tags stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/analytics/location-stats/district [get]
func (s *Server) getDistrictStats(c *gin.Context) {
	s.forwardStats(c, districtView, nil)
}

// @Summary Quest stats
// @Description Visits grouped by quest location
// @Tags stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/analytics/location-stats/quest [get]
func (s *Server) getQuestStats(c *gin.Context) {
	s.forwardStats(c, questView, nil)
}

// @Summary Time stats
// @Description Visits grouped by time bucket. The unit is passed through unchecked.
// @Tags stats
// @Produce json
// @Security BearerAuth
// @Param unit query string false "hour, day or week" default(day)
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/analytics/location-stats/time [get]
func (s *Server) getTimeStats(c *gin.Context) {
	unit := c.Query("unit")
	if unit == "" {
		unit = defaultTimeUnit
	}
	s.forwardStats(c, timeView, url.Values{"unit": {unit}})
}

// forwardStats gates on bearer presence, forwards to upstream and relays the
// body. Upstream failures of any kind collapse into one 500 per view; the
// details only go to the log.
func (s *Server) forwardStats(c *gin.Context, view statsView, query url.Values) {
	token, err := extractBearerToken(c.GetHeader("Authorization"))
	if err != nil {
		metrics.GatewayUnauthorized.WithLabelValues(view.kind).Inc()
		respondWithError(c, s.logger, http.StatusUnauthorized, err, missingTokenMessage)
		return
	}

	body, err := s.upstream.Fetch(c.Request.Context(), view.endpoint, query, token)
	if err != nil {
		event := s.logger.Error().
			Err(err).
			Str("request_id", c.GetString(requestIDKey)).
			Str("kind", view.kind)

		var failure *upstream.Failure
		if errors.As(err, &failure) && failure.Status != 0 {
			event = event.Int("upstream_status", failure.Status).Str("upstream_body", failure.Body)
		}
		event.Msg("Failed to fetch stats from upstream")

		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to fetch %s stats", view.kind)})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
