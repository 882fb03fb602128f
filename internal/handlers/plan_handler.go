package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tradingacademy/backend/internal/dto"
	"github.com/tradingacademy/backend/internal/services"
)

type PlanHandler struct {
	plans *services.PlanService
}

func NewPlanHandler(plans *services.PlanService) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// Active returns the plan new subscriptions are sold at.
func (h *PlanHandler) Active(c *fiber.Ctx) error {
	plan, err := h.plans.Active()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewPlanResponse(plan))
}

// Create activates a new plan, retiring the current one (admin).
func (h *PlanHandler) Create(c *fiber.Ctx) error {
	var req dto.CreatePlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	plan, err := h.plans.Create(req.Name, req.Price)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewPlanResponse(plan))
}

// List returns all plans including retired ones (admin).
func (h *PlanHandler) List(c *fiber.Ctx) error {
	plans, err := h.plans.List()
	if err != nil {
		return respondError(c, err)
	}

	out := make([]dto.PlanResponse, 0, len(plans))
	for i := range plans {
		out = append(out, dto.NewPlanResponse(&plans[i]))
	}
	return c.JSON(out)
}
