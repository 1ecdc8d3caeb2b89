package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-bakery-orderflow/internal/errorx"
	"github.com/imrishuroy/go-bakery-orderflow/internal/orders"
	"github.com/imrishuroy/go-bakery-orderflow/internal/reports"
	"github.com/imrishuroy/go-bakery-orderflow/internal/validation"
)

// POST /admin/login
func (a *api) login(c *gin.Context) {
	var req validation.LoginRequest
	if err := validation.Bind(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}
	token, exp, err := a.cfg.Auth.Login(req.Password)
	if err != nil {
		loggerFrom(c).Warn("admin login rejected", zap.String("ip", c.ClientIP()))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": exp.UTC()})
}

// GET /admin/orders?filter=all|real|test
func (a *api) adminListOrders(c *gin.Context) {
	list, ok := a.listFiltered(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

// GET /admin/reports/weekly?filter=all|real|test
func (a *api) adminWeeklyReport(c *gin.Context) {
	list, ok := a.listFiltered(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"weeks": reports.GroupByWeek(list)})
}

func (a *api) listFiltered(c *gin.Context) ([]orders.Order, bool) {
	filter, ok := orders.ParseFilter(c.Query("filter"))
	if !ok {
		writeError(c, errorx.Validation("filter", "must be one of: all real test"))
		return nil, false
	}
	list, err := a.cfg.Orders.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if list == nil {
		list = []orders.Order{}
	}
	return list, true
}

// PUT /admin/orders/:id/payment-status
// Unchecked override: any known status may be written, including backwards moves.
func (a *api) adminSetPaymentStatus(c *gin.Context) {
	var req validation.PaymentStatusRequest
	if err := validation.Bind(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}
	id := c.Param("id")
	if err := a.cfg.Orders.SetPaymentStatus(c.Request.Context(), id, req.Status); err != nil {
		writeError(c, err)
		return
	}
	loggerFrom(c).Info("payment status overridden", zap.String("order_id", id), zap.String("payment_status", req.Status))
	c.JSON(http.StatusOK, gin.H{"order_id": id, "payment_status": req.Status})
}

// PUT /admin/orders/:id/fulfillment
func (a *api) adminSetFulfillment(c *gin.Context) {
	var req validation.FulfillmentRequest
	if err := validation.Bind(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}
	status := orders.FulfillmentPending
	if *req.Fulfilled {
		status = orders.FulfillmentFulfilled
	}
	id := c.Param("id")
	if err := a.cfg.Orders.SetFulfillmentStatus(c.Request.Context(), id, status); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "fulfillment_status": status})
}
