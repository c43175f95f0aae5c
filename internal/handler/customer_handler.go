package handler

import (
	"net/http"

	"bakerycrm/internal/service"
	"bakerycrm/pkg/response"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	customerService service.CustomerService
	orderService    service.OrderService
}

func NewCustomerHandler(customerService service.CustomerService, orderService service.OrderService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService, orderService: orderService}
}

func (h *CustomerHandler) RegisterRoutes(router *gin.RouterGroup) {
	customers := router.Group("/api/customers")
	{
		customers.POST("", h.CreateCustomer)
		customers.GET("", h.ListCustomers)
		customers.GET("/:key", h.GetCustomer)
		customers.PUT("/:key", h.UpdateCustomer)
		customers.GET("/:key/orders", h.ListCustomerOrders)
	}
}

// CreateCustomer registers a new customer
// @Summary      Create customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateCustomerRequest  true  "Customer"
// @Success      201      {object}  response.Response{data=model.Customer}
// @Failure      400      {object}  response.Response
// @Router       /api/customers [post]
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req service.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	customer, err := h.customerService.CreateCustomer(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, customer))
}

// ListCustomers returns every customer, optionally filtered
// @Summary      List customers
// @Tags         customers
// @Produce      json
// @Param        search  query     string  false  "Matches first name, last name or phone"
// @Success      200     {object}  response.Response{data=[]model.Customer}
// @Router       /api/customers [get]
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	customers, err := h.customerService.ListCustomers(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customers))
}

// GetCustomer looks a customer up by phone or id
// @Summary      Get customer
// @Tags         customers
// @Produce      json
// @Param        key  path      string  true  "Phone number or customer ID"
// @Success      200  {object}  response.Response{data=model.Customer}
// @Failure      404  {object}  response.Response
// @Router       /api/customers/{key} [get]
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customer, err := h.customerService.GetCustomer(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}

// UpdateCustomer applies a partial update; the phone number cannot change
// @Summary      Update customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        key      path      string                         true  "Phone number"
// @Param        payload  body      service.UpdateCustomerRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=model.Customer}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/customers/{key} [put]
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	var req service.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	customer, err := h.customerService.UpdateCustomer(c.Request.Context(), c.Param("key"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}

// ListCustomerOrders returns the order history of one customer
// @Summary      List customer orders
// @Tags         customers
// @Produce      json
// @Param        key  path      string  true  "Phone number or customer ID"
// @Success      200  {object}  response.Response{data=[]model.Order}
// @Failure      404  {object}  response.Response
// @Router       /api/customers/{key}/orders [get]
func (h *CustomerHandler) ListCustomerOrders(c *gin.Context) {
	orders, err := h.orderService.ListCustomerOrders(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, orders))
}
