package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stablepay/stablepay/types"
)

// All responses share one envelope: {"success": true, "data": ...} or
// {"success": false, "error": {"code": ..., "message": ...}}.

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": data})
}

func fail(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   fiber.Map{"code": code, "message": message},
	})
}

// failErr maps a typed gateway error onto the envelope and an HTTP status.
func failErr(c *fiber.Ctx, err error) error {
	code := types.ErrorCode(err)
	if code == "" {
		return fail(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
	return fail(c, statusFor(code), code, err.Error())
}

func statusFor(code string) int {
	switch code {
	case types.ErrInvalidRequest, types.ErrUnsupportedNetwork, types.ErrUnsupportedToken:
		return fiber.StatusBadRequest
	case types.ErrPaymentNotFound, types.ErrTxNotFound:
		return fiber.StatusNotFound
	case types.ErrAlreadyProcessed:
		return fiber.StatusConflict
	case types.ErrInvalidTransaction, types.ErrTxReverted:
		return fiber.StatusUnprocessableEntity
	case types.ErrSignatureInvalid:
		return fiber.StatusUnauthorized
	case types.ErrChainError:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
