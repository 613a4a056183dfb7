package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/service"
)

// CustomerHandler handles HTTP requests for customers.
type CustomerHandler struct {
	customerService *service.CustomerService
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(customerService *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

// RegisterRequest is the HTTP request body for customer registration.
type RegisterRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// CustomerResponse is the HTTP response for customer data.
type CustomerResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Register handles POST /v1/customers
func (h *CustomerHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	customer, err := h.customerService.Register(c.Request.Context(), req.Name, req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CustomerResponse{ID: customer.ID, Name: customer.Name, Phone: customer.Phone})
}

// GetCustomer handles GET /v1/customers/:id
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customer, err := h.customerService.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, CustomerResponse{ID: customer.ID, Name: customer.Name, Phone: customer.Phone})
}
