package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tradingacademy/backend/internal/dto"
	"github.com/tradingacademy/backend/internal/middleware"
	"github.com/tradingacademy/backend/internal/services"
)

type SubscriptionHandler struct {
	subscriptions *services.SubscriptionService
}

func NewSubscriptionHandler(subscriptions *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

// Me returns the caller's live subscription.
func (h *SubscriptionHandler) Me(c *fiber.Ctx) error {
	customerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	sub, err := h.subscriptions.GetActiveForCustomer(customerID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewSubscriptionResponse(sub))
}

// Cancel terminates the caller's subscription.
func (h *SubscriptionHandler) Cancel(c *fiber.Ctx) error {
	customerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	subID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid subscription id",
		})
	}

	var req dto.CancelSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		req.Reason = ""
	}

	sub, err := h.subscriptions.Cancel(customerID, subID, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewSubscriptionResponse(sub))
}
