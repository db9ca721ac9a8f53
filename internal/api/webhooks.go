package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// monitorEvent is the change notification posted by the scouting API.
type monitorEvent struct {
	ScoutID       string     `json:"scout_id" binding:"required"`
	URL           string     `json:"url"`
	ChangeType    string     `json:"change_type"`
	PreviousValue *string    `json:"previous_value"`
	CurrentValue  *string    `json:"current_value"`
	Timestamp     *time.Time `json:"timestamp"`
}

func (s *Server) monitorWebhook(c *gin.Context) {
	var event monitorEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		abortError(c, http.StatusBadRequest, "invalid payload")
		return
	}

	productID, accepted := s.svc.HandleMonitorEvent(event.ScoutID)
	switch {
	case productID == "":
		c.JSON(http.StatusOK, gin.H{
			"status": "ignored",
			"reason": "scout not associated with any tracked product",
		})
	case !accepted:
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "rejected",
			"product_id": productID,
			"reason":     "shutting down",
		})
	default:
		s.logger.Info().
			Str("scout_id", event.ScoutID).
			Str("product_id", productID).
			Str("change_type", event.ChangeType).
			Msg("monitor change received")
		c.JSON(http.StatusOK, gin.H{
			"status":      "accepted",
			"product_id":  productID,
			"change_type": event.ChangeType,
			"message":     "price scan triggered",
		})
	}
}

func (s *Server) testWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		abortError(c, http.StatusBadRequest, "unreadable body")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "received",
		"timestamp":   time.Now().UTC(),
		"body_length": len(body),
	})
}
