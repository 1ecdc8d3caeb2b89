package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-bakery-orderflow/internal/catalog"
	"github.com/imrishuroy/go-bakery-orderflow/internal/orders"
	"github.com/imrishuroy/go-bakery-orderflow/internal/settings"
	"github.com/imrishuroy/go-bakery-orderflow/internal/validation"
)

// POST /orders
func (a *api) createOrder(c *gin.Context) {
	var req validation.CreateOrderRequest
	if err := validation.Bind(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}

	// optional; retries with the same key return the first order
	idempKey := c.GetHeader("Idempotency-Key")

	res, err := a.cfg.Workflow.CreateOrder(c.Request.Context(), req, idempKey)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/orders/%s", res.OrderID))
	if res.Replayed {
		c.JSON(http.StatusOK, gin.H{"order_id": res.OrderID})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order_id": res.OrderID})
}

// GET /orders/:id and GET /admin/orders/:id
func (a *api) getOrder(c *gin.Context) {
	order, err := a.cfg.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GET /products
func (a *api) listProducts(c *gin.Context) {
	testPricing, err := a.cfg.Settings.Bool(c.Request.Context(), settings.KeyTestPricing)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products":     catalog.Products(testPricing),
		"delivery_fee": orders.DeliveryFee,
		"test_pricing": testPricing,
	})
}
