package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tradingacademy/backend/internal/dto"
	"github.com/tradingacademy/backend/internal/services"
)

// AdminHandler exposes operational endpoints: subscription status
// overrides and a manual billing run.
type AdminHandler struct {
	subscriptions *services.SubscriptionService
	recurring     *services.RecurringPaymentService
}

func NewAdminHandler(subscriptions *services.SubscriptionService, recurring *services.RecurringPaymentService) *AdminHandler {
	return &AdminHandler{subscriptions: subscriptions, recurring: recurring}
}

// UpdateSubscriptionStatus forces a subscription status transition.
func (h *AdminHandler) UpdateSubscriptionStatus(c *fiber.Ctx) error {
	subID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid subscription id",
		})
	}

	var req dto.UpdateSubscriptionStatusRequest
	if err := c.BodyParser(&req); err != nil || req.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "status is required",
		})
	}

	if err := h.subscriptions.UpdateStatus(subID, req.Status); err != nil {
		return respondError(c, err)
	}

	sub, err := h.subscriptions.Get(subID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewSubscriptionResponse(sub))
}

// RunBilling triggers a billing run outside the schedule.
func (h *AdminHandler) RunBilling(c *fiber.Ctx) error {
	processed, failed, err := h.recurring.ProcessDuePayments(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.BillingRunResponse{Processed: processed, Failed: failed})
}
