package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aerohive/missions/internal/domain"
	"github.com/aerohive/missions/internal/service/booking"
	"github.com/aerohive/missions/internal/service/tracking"
	"github.com/gin-gonic/gin"
)

// JobHandler is the pilot-facing surface: claiming a job, the on-site OTP
// handshake, live position pings and the terminal transitions.
type JobHandler struct {
	lifecycle booking.LifecycleUseCase
	feed      tracking.FeedUseCase
}

func NewJobHandler(lifecycle booking.LifecycleUseCase, feed tracking.FeedUseCase) *JobHandler {
	return &JobHandler{lifecycle: lifecycle, feed: feed}
}

func (h *JobHandler) Register(router *gin.RouterGroup) {
	router.POST("/accept", h.accept)
	router.POST("/verify-otp", h.verifyOTP)
	router.GET("/details", h.details)
	router.POST("/location", h.location)
	router.POST("/complete", h.complete)
	router.POST("/cancel", h.cancel)
}

type acceptRequest struct {
	OrderRef string `json:"orderRef" binding:"required"`
	PilotID  string `json:"pilot_id" binding:"required"`
}

func (h *JobHandler) accept(c *gin.Context) {
	var req acceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderRef and pilot_id required"})
		return
	}

	b, err := h.lifecycle.Accept(c.Request.Context(), req.OrderRef, req.PilotID)
	if err != nil {
		var transition *domain.InvalidTransitionError
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		case errors.As(err, &transition):
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Job is already %s", transition.Current)})
		case errors.Is(err, domain.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": string(b.Status)})
}

type verifyOTPRequest struct {
	OrderRef string `json:"orderRef" binding:"required"`
	OTP      string `json:"otp" binding:"required"`
}

func (h *JobHandler) verifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderRef and otp required"})
		return
	}

	b, alreadyStarted, err := h.lifecycle.VerifyAndStart(c.Request.Context(), req.OrderRef, req.OTP)
	if err != nil {
		var transition *domain.InvalidTransitionError
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		case errors.Is(err, domain.ErrInvalidOTP):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid OTP. Please ask client to provide the correct code."})
		case errors.As(err, &transition):
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Cannot start mission. Current status: %s", transition.Current)})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		}
		return
	}

	resp := gin.H{"success": true, "status": string(b.Status)}
	if alreadyStarted {
		resp["message"] = "Mission already started"
	}
	c.JSON(http.StatusOK, resp)
}

func (h *JobHandler) details(c *gin.Context) {
	ref := c.Query("ref")
	if ref == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ref required"})
		return
	}

	snap, err := h.feed.GetSnapshot(c.Request.Context(), ref)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invalid Job ID"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	c.JSON(http.StatusOK, snap)
}

type locationRequest struct {
	OrderRef string  `json:"orderRef" binding:"required"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

func (h *JobHandler) location(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderRef, lat and lng required"})
		return
	}

	err := h.lifecycle.UpdatePilotLocation(c.Request.Context(), req.OrderRef, domain.Location{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		case errors.Is(err, domain.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update location"})
		}
		return
	}

	// A ping outside IN_PROGRESS is dropped, not rejected.
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type terminalRequest struct {
	OrderRef string `json:"orderRef" binding:"required"`
}

func (h *JobHandler) complete(c *gin.Context) {
	h.finish(c, h.lifecycle.Complete)
}

func (h *JobHandler) cancel(c *gin.Context) {
	h.finish(c, h.lifecycle.Cancel)
}

func (h *JobHandler) finish(c *gin.Context, transition func(context.Context, string) (*domain.Booking, error)) {
	var req terminalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderRef required"})
		return
	}

	b, err := transition(c.Request.Context(), req.OrderRef)
	if err != nil {
		var invalid *domain.InvalidTransitionError
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		case errors.As(err, &invalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Job is already %s", invalid.Current)})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": string(b.Status)})
}
