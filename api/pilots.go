package api

import (
	"errors"
	"net/http"

	"github.com/aerohive/missions/internal/domain"
	"github.com/aerohive/missions/internal/service/pilots"
	"github.com/gin-gonic/gin"
)

type PilotHandler struct {
	matcher pilots.MatchUseCase
}

func NewPilotHandler(matcher pilots.MatchUseCase) *PilotHandler {
	return &PilotHandler{matcher: matcher}
}

func (h *PilotHandler) Register(router *gin.RouterGroup) {
	router.POST("/search", h.search)
}

type searchRequest struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	RadiusKm float64 `json:"radius_km"`
	Category string  `json:"category"`
}

type pilotResult struct {
	ID              string   `json:"id"`
	FullName        string   `json:"full_name"`
	Rating          float64  `json:"rating"`
	HourlyRate      float64  `json:"hourly_rate"`
	Specializations []string `json:"specializations"`
	DistanceKm      float64  `json:"distance_km"`
}

func (h *PilotHandler) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	candidates, err := h.matcher.Search(c.Request.Context(), pilots.SearchInput{
		Lat:      req.Lat,
		Lng:      req.Lng,
		RadiusKm: req.RadiusKm,
		Category: req.Category,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	// No pilots in range is a normal answer; the client should retry with a
	// larger radius.
	results := make([]pilotResult, 0, len(candidates))
	for _, cand := range candidates {
		results = append(results, pilotResult{
			ID:              cand.ID,
			FullName:        cand.FullName,
			Rating:          cand.Rating,
			HourlyRate:      cand.HourlyRate,
			Specializations: cand.Specializations,
			DistanceKm:      cand.DistanceKm,
		})
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "results": results})
}
