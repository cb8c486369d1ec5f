package response

import "github.com/gofiber/fiber/v2"

// Status values of the JSON envelope
const (
	StatusOK           = "ok"
	StatusSuccess      = "success"
	StatusError        = "error"
	StatusFileNotFound = "file_not_found"
	StatusDegraded     = "degraded"
)

type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func Error(c *fiber.Ctx, status int, message string, details interface{}) error {
	return c.Status(status).JSON(Envelope{
		Status:  StatusError,
		Message: message,
		Details: details,
	})
}

func ValidationError(c *fiber.Ctx, message string, details interface{}) error {
	return Error(c, fiber.StatusBadRequest, message, details)
}

func ServiceError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message, nil)
}

// FileNotFound reports a missing media file
func FileNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(Envelope{Status: StatusFileNotFound})
}

func Success(c *fiber.Ctx) error {
	return c.JSON(Envelope{Status: StatusSuccess})
}

func OK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(data)
}
