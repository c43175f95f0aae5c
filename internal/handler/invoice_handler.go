package handler

import (
	"net/http"
	"strconv"

	"bakerycrm/internal/service"
	"bakerycrm/pkg/pagination"
	"bakerycrm/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices")
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("", h.ListInvoices)
		invoices.GET("/open-by-customer/:customerId", h.OpenByCustomer)
		invoices.GET("/:id", h.GetInvoice)
		invoices.PATCH("/:id/status", h.UpdateStatus)
		invoices.GET("/:id/qr", h.GetQRCode)
	}
}

// CreateInvoice numbers, authorizes and stores a new invoice
// @Summary      Create invoice
// @Description  Missing amounts are computed at 21% IVA. Listed orders are associated in the same step.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Invoice draft"
// @Success      201      {object}  response.Response{data=model.Invoice}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices returns invoices, optionally filtered and paginated
// @Summary      List invoices
// @Tags         invoices
// @Produce      json
// @Param        status      query     string  false  "pendiente, emitida, rechazada, anulada or pagada"
// @Param        customerId  query     string  false  "Customer ID"
// @Param        page        query     int     false  "Page number"
// @Param        limit       query     int     false  "Items per page; omit page and limit to get everything"
// @Success      200         {object}  response.Response{data=object}
// @Failure      400         {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	filter := service.InvoiceFilter{
		Status:     c.Query("status"),
		CustomerID: c.Query("customerId"),
	}
	params, paged := pagination.ParseOptional(c)
	if paged {
		filter.Page, filter.Limit = params.Page, params.Limit
	}

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page("invoices", invoices, total, filter.Page, filter.Limit)))
}

// OpenByCustomer returns the customer's invoices still pending
// @Summary      Open invoices of a customer
// @Tags         invoices
// @Produce      json
// @Param        customerId  path      string  true  "Customer ID"
// @Success      200         {object}  response.Response{data=[]model.Invoice}
// @Failure      404         {object}  response.Response
// @Router       /api/invoices/open-by-customer/{customerId} [get]
func (h *InvoiceHandler) OpenByCustomer(c *gin.Context) {
	invoices, err := h.invoiceService.OpenByCustomer(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoices))
}

// @Summary      Get invoice
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=model.Invoice}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// UpdateStatus overrides the status of an invoice
// @Summary      Change invoice status
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id       path      string                              true  "Invoice ID"
// @Param        payload  body      service.UpdateInvoiceStatusRequest  true  "New status"
// @Success      200      {object}  response.Response{data=model.Invoice}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/invoices/{id}/status [patch]
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	invoice, err := h.invoiceService.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// GetQRCode renders the AFIP verification QR of an invoice
// @Summary      Invoice fiscal QR
// @Tags         invoices
// @Produce      png
// @Param        id    path      string  true   "Invoice ID"
// @Param        size  query     int     false  "Image size in pixels (default 256)"
// @Success      200   {file}    binary
// @Failure      404   {object}  response.Response
// @Router       /api/invoices/{id}/qr [get]
func (h *InvoiceHandler) GetQRCode(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))
	if size > 1024 {
		size = 1024
	}

	png, err := h.invoiceService.QRCode(c.Request.Context(), c.Param("id"), size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
