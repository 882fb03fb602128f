package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tradingacademy/backend/internal/apperrors"
	"github.com/tradingacademy/backend/internal/dto"
)

// respondError maps a service error onto the HTTP surface. Messages from
// the domain taxonomy pass through; anything else becomes a generic 500.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return c.Status(apperrors.HTTPStatus(err)).JSON(dto.ErrorResponse{
			Error:   true,
			Code:    appErr.Code,
			Message: appErr.Message,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Internal server error",
	})
}
