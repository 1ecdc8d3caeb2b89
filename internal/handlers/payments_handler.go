package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-bakery-orderflow/internal/validation"
)

// POST /payments/intents
func (a *api) createPaymentIntent(c *gin.Context) {
	var req validation.PaymentIntentRequest
	if err := validation.Bind(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}
	intent, err := a.cfg.Workflow.CreatePaymentIntent(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, intent)
}

// POST /payments/confirm
func (a *api) confirmPayment(c *gin.Context) {
	var req validation.ConfirmPaymentRequest
	if err := validation.Bind(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}
	res, err := a.cfg.Workflow.ConfirmPayment(c.Request.Context(), req.IntentID, req.OrderID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
