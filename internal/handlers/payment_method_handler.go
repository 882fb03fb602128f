package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tradingacademy/backend/internal/apperrors"
	"github.com/tradingacademy/backend/internal/dto"
	"github.com/tradingacademy/backend/internal/middleware"
	"github.com/tradingacademy/backend/internal/models"
	"github.com/tradingacademy/backend/internal/nicepay"
	"github.com/tradingacademy/backend/internal/services"
)

type PaymentMethodHandler struct {
	methods       *services.PaymentMethodService
	subscriptions *services.SubscriptionService
}

func NewPaymentMethodHandler(methods *services.PaymentMethodService, subscriptions *services.SubscriptionService) *PaymentMethodHandler {
	return &PaymentMethodHandler{methods: methods, subscriptions: subscriptions}
}

// InitBillingKey opens a registration attempt and returns the signed
// parameters for the gateway's card-entry window.
func (h *PaymentMethodHandler) InitBillingKey(c *fiber.Ctx) error {
	customerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	init, err := h.methods.InitBillingKeyRegistration(customerID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(init)
}

// CompleteBillingKey finishes the authenticated registration flow, then
// subscribes the customer to the active plan if they have none.
func (h *PaymentMethodHandler) CompleteBillingKey(c *fiber.Ctx) error {
	customerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req dto.BillingKeyCompleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	if req.OrderID == "" || req.TxTID == "" || req.AuthToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "order_id, tx_tid and auth_token are required",
		})
	}

	method, err := h.methods.CompleteBillingKeyRegistration(c.Context(), customerID, req.OrderID, req.TxTID, req.AuthToken)
	if err != nil {
		return respondError(c, err)
	}

	return h.respondWithSubscription(c, customerID, method)
}

// RegisterDirect runs the card-data registration flow, then subscribes
// the customer to the active plan if they have none.
func (h *PaymentMethodHandler) RegisterDirect(c *fiber.Ctx) error {
	customerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req dto.CardRegistrationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	if req.CardNo == "" || req.ExpYear == "" || req.ExpMonth == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "card_no, exp_year and exp_month are required",
		})
	}

	method, err := h.methods.RegisterDirect(c.Context(), customerID, nicepay.DirectRegistration{
		CardNo:   req.CardNo,
		ExpYear:  req.ExpYear,
		ExpMonth: req.ExpMonth,
		IDNo:     req.IDNo,
		CardPw:   req.CardPw,
	})
	if err != nil {
		return respondError(c, err)
	}

	return h.respondWithSubscription(c, customerID, method)
}

// respondWithSubscription auto-subscribes after a successful
// registration. The method is created either way; a failed first charge
// is reported alongside it, not as a request failure.
func (h *PaymentMethodHandler) respondWithSubscription(c *fiber.Ctx, customerID uuid.UUID, method *models.PaymentMethod) error {
	resp := fiber.Map{"payment_method": dto.NewPaymentMethodResponse(method)}

	if _, err := h.subscriptions.GetActiveForCustomer(customerID); err == nil {
		return c.Status(fiber.StatusCreated).JSON(resp)
	}

	sub, err := h.subscriptions.CreateWithFirstPayment(c.Context(), customerID, method.ID)
	if err != nil {
		if sub == nil {
			// No active plan or another customer race. The method stays.
			if apperrors.KindOf(err) == apperrors.KindNotFound {
				return c.Status(fiber.StatusCreated).JSON(resp)
			}
			return respondError(c, err)
		}
		slog.Warn("first charge failed after registration", "customer_id", customerID, "error", err)
		resp["subscription"] = dto.NewSubscriptionResponse(sub)
		resp["subscription_error"] = "first charge failed"
		return c.Status(fiber.StatusCreated).JSON(resp)
	}

	resp["subscription"] = dto.NewSubscriptionResponse(sub)
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// List returns the customer's registered methods.
func (h *PaymentMethodHandler) List(c *fiber.Ctx) error {
	customerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	methods, err := h.methods.List(customerID)
	if err != nil {
		return respondError(c, err)
	}

	out := make([]dto.PaymentMethodResponse, 0, len(methods))
	for i := range methods {
		out = append(out, dto.NewPaymentMethodResponse(&methods[i]))
	}
	return c.JSON(out)
}

// Get returns one of the customer's methods.
func (h *PaymentMethodHandler) Get(c *fiber.Ctx) error {
	customerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	methodID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid payment method id",
		})
	}

	method, err := h.methods.Get(customerID, methodID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewPaymentMethodResponse(method))
}

// Delete revokes a method's billing key and soft-deletes it.
func (h *PaymentMethodHandler) Delete(c *fiber.Ctx) error {
	customerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	methodID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid payment method id",
		})
	}

	if err := h.methods.Delete(c.Context(), customerID, methodID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Payment method deleted"})
}
