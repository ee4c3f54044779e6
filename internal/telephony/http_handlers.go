package telephony

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"voicegate/internal/calls"
)

const headerGatewayToken = "X-Gateway-Token"

// CallLauncher starts the AI conversation for an accepted call.
type CallLauncher interface {
	Launch(ev CallEvent) error
}

// InboundWebhookHandler serves the gateway's call-arrival webhook. The
// shared token is the only gate on this path; the endpoint must not be
// exposed beyond the gateway network.
type InboundWebhookHandler struct {
	Adapter     Adapter
	Launcher    CallLauncher
	SharedToken string
}

// unixSeconds decodes the gateway's epoch timestamp, sent as a JSON number
// or a numeric string.
type unixSeconds struct {
	time.Time
}

func (u *unixSeconds) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp must be unix seconds: %w", err)
	}
	u.Time = time.Unix(sec, 0).UTC()
	return nil
}

type inboundCallRequest struct {
	CallerNumber string      `json:"caller_number" binding:"required"`
	CalledNumber string      `json:"called_number" binding:"required"`
	CallID       string      `json:"call_id" binding:"required"`
	Timestamp    unixSeconds `json:"timestamp"`
	Answered     bool        `json:"answered"`
}

// HandleInboundCall validates, routes and (when accepted) launches the AI
// loop for one inbound call. Rejections answer 200 with status "error";
// the gateway only needs to know the platform will not pick up.
func (h InboundWebhookHandler) HandleInboundCall(c *gin.Context) {
	if h.SharedToken != "" {
		token := c.GetHeader(headerGatewayToken)
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.SharedToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid gateway token"})
			return
		}
	}

	var req inboundCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": "invalid payload"})
		return
	}

	ev := h.Adapter.OnInboundCall(c.Request.Context(), CallMetadata{
		CallerNumber:   req.CallerNumber,
		CalledNumber:   req.CalledNumber,
		ProviderCallID: req.CallID,
		Direction:      calls.DirectionInbound,
		OccurredAt:     req.Timestamp.UTC(),
		Answered:       req.Answered,
	})
	if ev.Type == EventFailed {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": ev.Detail})
		return
	}

	if err := h.Launcher.Launch(ev); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "not accepting calls"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"call_record_id": ev.CallRecordID,
		"tenant_id":      ev.TenantID,
		"message":        "call accepted",
	})
}
