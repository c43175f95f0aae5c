package handler

import (
	"net/http"

	"bakerycrm/internal/service"
	"bakerycrm/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orderService       service.OrderService
	associationService service.AssociationService
}

func NewOrderHandler(orderService service.OrderService, associationService service.AssociationService) *OrderHandler {
	return &OrderHandler{orderService: orderService, associationService: associationService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/api/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", h.ListOrders)
		orders.GET("/for-invoice", h.ListForInvoice)
		orders.GET("/:id", h.GetOrder)
		orders.PUT("/:id", h.UpdateOrder)
		orders.DELETE("/:id", h.DeleteOrder)
		orders.POST("/:id/associate-invoice/:invoiceId", h.AssociateInvoice)
		orders.POST("/:id/disassociate-invoice/:invoiceId", h.DisassociateInvoice)
	}
	router.GET("/api/orders-simple", h.ListSimple)
}

// CreateOrder places a new order in the remito column
// @Summary      Create order
// @Description  Customer and products may be sent as bare ids or as objects carrying an id
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateOrderRequest  true  "Create Order Payload"
// @Success      201      {object}  response.Response{data=model.Order}
// @Failure      400      {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// ListOrders returns orders, newest first
// @Summary      List orders
// @Tags         orders
// @Produce      json
// @Param        customerPhone  query     string  false  "Only orders of this customer"
// @Param        status         query     string  false  "pending, completed or cancelled"
// @Param        invoiceStatus  query     string  false  "Kanban column"
// @Success      200            {object}  response.Response{data=[]model.Order}
// @Failure      404            {object}  response.Response
// @Router       /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orderService.ListOrders(c.Request.Context(), service.OrderFilter{
		CustomerPhone: c.Query("customerPhone"),
		Status:        c.Query("status"),
		InvoiceStatus: c.Query("invoiceStatus"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, orders))
}

// ListForInvoice returns the orders that can still be billed
// @Summary      Orders available for invoicing
// @Tags         orders
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Order}
// @Router       /api/orders/for-invoice [get]
func (h *OrderHandler) ListForInvoice(c *gin.Context) {
	orders, err := h.orderService.ListForInvoice(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, orders))
}

// @Summary      Compact order list
// @Tags         orders
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.OrderSummary}
// @Router       /api/orders-simple [get]
func (h *OrderHandler) ListSimple(c *gin.Context) {
	orders, err := h.orderService.ListSimple(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, orders))
}

// @Summary      Get order
// @Tags         orders
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=model.Order}
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// UpdateOrder applies a partial update. invoiceStatus moves the order across the board.
// @Summary      Update order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Order ID"
// @Param        payload  body      service.UpdateOrderRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=model.Order}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/orders/{id} [put]
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.orderService.UpdateOrder(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// @Summary      Delete order
// @Tags         orders
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [delete]
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	if err := h.orderService.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Order deleted"}))
}

// AssociateInvoice links an invoice to an order of the same customer
// @Summary      Associate invoice
// @Tags         orders
// @Produce      json
// @Param        id         path      string  true  "Order ID"
// @Param        invoiceId  path      string  true  "Invoice ID"
// @Success      200        {object}  response.Response{data=service.AssociationResult}
// @Failure      400        {object}  response.Response
// @Failure      404        {object}  response.Response
// @Router       /api/orders/{id}/associate-invoice/{invoiceId} [post]
func (h *OrderHandler) AssociateInvoice(c *gin.Context) {
	result, err := h.associationService.Associate(c.Request.Context(), c.Param("id"), c.Param("invoiceId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// DisassociateInvoice removes the link between an order and an invoice
// @Summary      Disassociate invoice
// @Tags         orders
// @Produce      json
// @Param        id         path      string  true  "Order ID"
// @Param        invoiceId  path      string  true  "Invoice ID"
// @Success      200        {object}  response.Response{data=service.AssociationResult}
// @Failure      404        {object}  response.Response
// @Router       /api/orders/{id}/disassociate-invoice/{invoiceId} [post]
func (h *OrderHandler) DisassociateInvoice(c *gin.Context) {
	result, err := h.associationService.Disassociate(c.Request.Context(), c.Param("id"), c.Param("invoiceId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
