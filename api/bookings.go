package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/aerohive/missions/internal/domain"
	"github.com/aerohive/missions/internal/service/booking"
	"github.com/aerohive/missions/internal/service/limiter"
	"github.com/aerohive/missions/internal/service/tracking"
	"github.com/gin-gonic/gin"
)

// BookingHandler is the client-facing surface: creating a mission request,
// pre-flight quota checks and the tracking-token read.
type BookingHandler struct {
	lifecycle booking.LifecycleUseCase
	limits    limiter.LimitUseCase
	feed      tracking.FeedUseCase
}

func NewBookingHandler(lifecycle booking.LifecycleUseCase, limits limiter.LimitUseCase, feed tracking.FeedUseCase) *BookingHandler {
	return &BookingHandler{lifecycle: lifecycle, limits: limits, feed: feed}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/check-limit", h.checkLimit)
}

// RegisterTracking mounts the token-addressed read outside the /bookings group.
func (h *BookingHandler) RegisterTracking(router *gin.Engine) {
	router.GET("/track", h.track)
}

type createBookingRequest struct {
	ClientID      string  `json:"client_id" binding:"required"`
	ServiceType   string  `json:"service_type" binding:"required"`
	ScheduledAt   string  `json:"scheduled_at" binding:"required"`
	DurationHours float64 `json:"duration_hours"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
}

type createBookingResponse struct {
	BookingID     string `json:"booking_id"`
	Status        string `json:"status"`
	OTP           string `json:"otp"`
	TrackingToken string `json:"tracking_token"`
	ScheduledAt   string `json:"scheduled_at"`
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_at must be RFC3339"})
		return
	}

	// Pre-flight gate; the insert re-checks the quota transactionally. A failed
	// count fails open here, like check-limit.
	if allowed, err := h.limits.Allow(c.Request.Context(), req.ClientID); err != nil {
		log.Printf("WARNING: booking pre-flight check failed for client %s, failing open: %v", req.ClientID, err)
	} else if !allowed {
		c.JSON(http.StatusConflict, gin.H{"error": "Active booking limit reached. Complete or cancel an existing mission first."})
		return
	}

	b, err := h.lifecycle.Create(c.Request.Context(), booking.CreateMissionInput{
		ClientID:      req.ClientID,
		ServiceType:   req.ServiceType,
		ScheduledAt:   scheduledAt,
		DurationHours: req.DurationHours,
		Location:      domain.Location{Lat: req.Lat, Lng: req.Lng},
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrQuotaExceeded):
			c.JSON(http.StatusConflict, gin.H{"error": "Active booking limit reached. Complete or cancel an existing mission first."})
		case errors.Is(err, domain.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create booking"})
		}
		return
	}

	c.JSON(http.StatusCreated, createBookingResponse{
		BookingID:     b.Reference,
		Status:        string(b.Status),
		OTP:           b.OTPCode,
		TrackingToken: b.TrackingToken,
		ScheduledAt:   b.ScheduledAt.Format(time.RFC3339),
	})
}

// checkLimit never answers with an error status: when the store is down the
// response is a fail-open canBook=true so booking stays available.
func (h *BookingHandler) checkLimit(c *gin.Context) {
	clientID := c.Query("clientId")
	if clientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "clientId is required"})
		return
	}

	status, err := h.limits.Check(c.Request.Context(), clientID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"canBook": true, "currentCount": 0, "bookings": []any{}})
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *BookingHandler) track(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}

	snap, err := h.feed.GetSnapshotByToken(c.Request.Context(), token)
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
