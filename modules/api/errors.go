package api

import (
	"errors"
	"log/slog"
	"strings"

	domain "github.com/Aftab-Fury/Task-Manager/domain/task"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const genericErrorMessage = "An unexpected error occurred."

// statusFor maps a task error code to its HTTP status.
func statusFor(code domain.Code) int {
	switch code {
	case domain.CodeValidation, domain.CodeInvalidPayload, domain.CodeMissingUserIDs,
		domain.CodeInvalidUserIDs, domain.CodeIllegalTransition:
		return fiber.StatusBadRequest
	case domain.CodeNotFound:
		return fiber.StatusNotFound
	case domain.CodeDenied:
		return fiber.StatusForbidden
	case domain.CodeUnauthenticated:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

func sendError(c *fiber.Ctx, status int, code, message string, details any) error {
	return c.Status(status).JSON(ErrorResponse{Error: ErrorBody{
		Message: message,
		Code:    code,
		Details: details,
	}})
}

// writeTaskError renders err in the error envelope. Unclassified errors are
// logged and reported as a generic server_error.
func writeTaskError(c *fiber.Ctx, logger *slog.Logger, err error) error {
	var e *domain.Error
	if !errors.As(err, &e) || e.Code == domain.CodeInternal {
		logger.Error("request failed", "path", c.Path(), "request_id", requestID(c), "error", err)
		return sendError(c, fiber.StatusInternalServerError, string(domain.CodeInternal), genericErrorMessage, nil)
	}
	return sendError(c, statusFor(e.Code), string(e.Code), e.Message, e.Details)
}

// writeAuthError maps identity failures, which cross the bus as plain
// messages, onto the envelope without exposing internals.
func writeAuthError(c *fiber.Ctx, logger *slog.Logger, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "invalid username or password"):
		return sendError(c, fiber.StatusUnauthorized, "invalid_credentials", "Invalid username or password", nil)
	case strings.Contains(msg, "user with this username already exists"):
		return sendError(c, fiber.StatusConflict, "conflict", "A user with that username already exists.", fieldDetail("username"))
	case strings.Contains(msg, "invalid email format"):
		return sendError(c, fiber.StatusBadRequest, string(domain.CodeValidation), "Invalid email format", fieldDetail("email"))
	case strings.Contains(msg, "username may contain only"):
		return sendError(c, fiber.StatusBadRequest, string(domain.CodeValidation),
			"Username may contain only letters, digits and @/./+/-/_ characters.", fieldDetail("username"))
	case strings.Contains(msg, "password must be at least"):
		return sendError(c, fiber.StatusBadRequest, string(domain.CodeValidation), "Password must be at least 8 characters", fieldDetail("password"))
	case strings.Contains(msg, "password must be at most"):
		return sendError(c, fiber.StatusBadRequest, string(domain.CodeValidation), "Password must be at most 72 characters", fieldDetail("password"))
	default:
		logger.Error("auth request failed", "path", c.Path(), "request_id", requestID(c), "error", err)
		return sendError(c, fiber.StatusInternalServerError, string(domain.CodeInternal), genericErrorMessage, nil)
	}
}

func fieldDetail(field string) domain.FieldDetail {
	return domain.FieldDetail{Field: field}
}

// errorHandler renders routing errors and recovered panics in the envelope.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
			code := "bad_request"
			switch fe.Code {
			case fiber.StatusNotFound:
				code = string(domain.CodeNotFound)
			case fiber.StatusMethodNotAllowed:
				code = "method_not_allowed"
			case fiber.StatusRequestEntityTooLarge:
				code = string(domain.CodeInvalidPayload)
			}
			return sendError(c, fe.Code, code, fe.Message, nil)
		}
		logger.Error("unhandled error", "path", c.Path(), "request_id", requestID(c), "error", err)
		return sendError(c, fiber.StatusInternalServerError, string(domain.CodeInternal), genericErrorMessage, nil)
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		return id
	}
	return ""
}
