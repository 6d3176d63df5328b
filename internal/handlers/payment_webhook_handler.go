package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/openwheels/rental-backend/internal/services"
	"github.com/openwheels/rental-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// PaymentWebhookHandler receives payment processor callbacks
type PaymentWebhookHandler struct {
	paymentService *services.PaymentService
	logger         *logrus.Logger
}

// NewPaymentWebhookHandler creates a new PaymentWebhookHandler
func NewPaymentWebhookHandler(paymentService *services.PaymentService, logger *logrus.Logger) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// HandleWebhook processes a processor delivery. A bad signature gets 400;
// everything else gets 200 so the processor stops retrying, even when the
// event was a duplicate or of an unrecognized type.
// @Router /payments/webhook [post]
func (h *PaymentWebhookHandler) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to read webhook body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	signature := c.GetHeader(services.SignatureHeader)

	if err := h.paymentService.HandleWebhook(body, signature); err != nil {
		if services.Code(err) == services.ErrBadSignature {
			h.logger.WithField("ip", utils.GetRealIP(c)).Warn("Webhook signature verification failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature", "code": "BAD_SIGNATURE"})
			return
		}

		// Persistence failures must surface as non-2xx so the processor
		// redelivers the event
		h.logger.WithError(err).Error("Failed to apply webhook event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event not applied"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// ListEvents returns recent webhook deliveries for the admin audit view
// @Router /admin/webhook-events [get]
func (h *PaymentWebhookHandler) ListEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	events, err := h.paymentService.RecentEvents(limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list webhook events")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}
