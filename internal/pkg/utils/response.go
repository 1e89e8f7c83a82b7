// Package utils holds the JSON envelope shared by every handler.
package utils

import (
	stderrors "errors"

	"github.com/ev-tile-publisher/internal/pkg/errors"
	"github.com/gofiber/fiber/v2"
)

// SuccessResponse wraps payloads as {"data": ..., "meta": ...}.
type SuccessResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// ErrorResponse wraps failures as {"error": {code, message, details}}.
type ErrorResponse struct {
	Error *errors.AppError `json:"error"`
}

type Meta struct {
	Total int `json:"total,omitempty"`
	Limit int `json:"limit,omitempty"`
}

func SendSuccess(c *fiber.Ctx, data interface{}, meta *Meta) error {
	return SendStatus(c, fiber.StatusOK, data, meta)
}

// SendCreated answers 201 with the envelope.
func SendCreated(c *fiber.Ctx, data interface{}) error {
	return SendStatus(c, fiber.StatusCreated, data, nil)
}

// SendAccepted answers 202 for work handed to a worker.
func SendAccepted(c *fiber.Ctx, data interface{}) error {
	return SendStatus(c, fiber.StatusAccepted, data, nil)
}

func SendStatus(c *fiber.Ctx, status int, data interface{}, meta *Meta) error {
	return c.Status(status).JSON(SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

// SendError renders AppErrors with their own status; anything else is a 500
// without internal detail.
func SendError(c *fiber.Ctx, err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return c.Status(appErr.StatusCode).JSON(ErrorResponse{
			Error: appErr,
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: errors.ErrInternalServer,
	})
}
