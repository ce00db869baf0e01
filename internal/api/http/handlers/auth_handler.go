package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/api/dto"
	"github.com/spec-kit/case-service/internal/auth"
	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

// AuthHandler issues bearer tokens to API clients.
type AuthHandler struct {
	authenticator *auth.Authenticator
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authenticator *auth.Authenticator) *AuthHandler {
	return &AuthHandler{authenticator: authenticator}
}

// Token POST /auth/token.
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.ClientID) == "" || req.ClientKey == "" {
		return apperrors.NewValidationError("client_id and client_key required", nil)
	}
	issued, err := h.authenticator.Issue(req.ClientID, req.ClientKey)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issued})
}
