package api

import (
	"context"
	"errors"
	"fitlook/internal/entity"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func (h *HTTPHandler) ListCustomers(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	customers, err := h.repo.ListCustomers(ctx, user.ShopID())
	if err != nil {
		logrus.WithError(err).WithField("shop_id", user.ShopID()).Error("failed to list customers")
		InternalError(c, "failed to load customers")
		return
	}
	if customers == nil {
		customers = []entity.DbCustomer{}
	}
	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

func (h *HTTPHandler) GetCustomer(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	customer, err := h.repo.GetCustomer(ctx, user.ShopID(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		h.customerError(c, err, "failed to load customer")
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *HTTPHandler) CreateCustomer(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var req entity.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	name := trimmed(req.Name)
	if name == "" {
		MissingField(c, "name")
		return
	}

	customer := &entity.DbCustomer{
		ID:       entity.NewID(),
		UserID:   user.ShopID(),
		Name:     name,
		Phone:    trimmed(req.Phone),
		Notes:    trimmed(req.Notes),
		PhotoURL: trimmed(req.PhotoURL),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.CreateCustomer(ctx, customer); err != nil {
		logrus.WithError(err).WithField("shop_id", user.ShopID()).Error("failed to create customer")
		InternalError(c, "failed to create customer")
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *HTTPHandler) UpdateCustomer(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var req entity.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	updates := entity.CustomerUpdates{
		Phone:    trimmedPtr(req.Phone),
		Notes:    trimmedPtr(req.Notes),
		PhotoURL: trimmedPtr(req.PhotoURL),
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			MissingField(c, "name")
			return
		}
		updates.Name = &name
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	id := strings.TrimSpace(c.Param("id"))
	if err := h.repo.UpdateCustomer(ctx, user.ShopID(), id, updates); err != nil {
		h.customerError(c, err, "failed to update customer")
		return
	}
	customer, err := h.repo.GetCustomer(ctx, user.ShopID(), id)
	if err != nil {
		h.customerError(c, err, "failed to load customer")
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *HTTPHandler) DeleteCustomer(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.DeleteCustomer(ctx, user.ShopID(), strings.TrimSpace(c.Param("id"))); err != nil {
		h.customerError(c, err, "failed to delete customer")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) customerError(c *gin.Context, err error, message string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, ErrCodeCustomerNotFound, "customer not found")
		return
	}
	logrus.WithError(err).WithField("customer_id", c.Param("id")).Error(message)
	InternalError(c, message)
}
