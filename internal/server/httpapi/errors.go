package httpapi

import (
	"errors"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
	"github.com/gofiber/fiber/v2"
)

var statusText = map[int]string{
	fiber.StatusBadRequest:          "Bad request",
	fiber.StatusUnauthorized:        "Unauthorized",
	fiber.StatusForbidden:           "Forbidden",
	fiber.StatusNotFound:            "Not found",
	fiber.StatusInternalServerError: "Internal server error",
}

// statusOf maps service errors onto HTTP status codes.
func statusOf(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrorAlreadyExists):
		return fiber.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrSessionRevoked):
		return fiber.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func messageOf(err error, status int) string {
	if msg := common.MessageOf(err); msg != "" {
		return msg
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	switch {
	case errors.Is(err, common.ErrTokenExpired):
		return "Token has expired"
	case errors.Is(err, common.ErrSessionRevoked):
		return "Token has been revoked"
	case errors.Is(err, common.ErrInvalidToken):
		return "Invalid token"
	}
	if text, ok := statusText[status]; ok {
		return text
	}
	return "Request failed"
}

// handleError writes err as {"msg": ...}. Internal errors are logged and
// never echoed to the caller.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error(c.UserContext(), "request failed", "path", c.Path(), "error", err)
		return c.Status(status).JSON(fiber.Map{"msg": statusText[fiber.StatusInternalServerError]})
	}
	return c.Status(status).JSON(fiber.Map{"msg": messageOf(err, status)})
}
