package handlers

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/api/dto"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/internal/workflow"
	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

// RulesHandler lists and toggles workflow rules.
type RulesHandler struct {
	// mu orders toggles with their snapshot saves so an older snapshot never lands last.
	mu     sync.Mutex
	engine *workflow.Engine
	store  repository.Store
	logger *zap.Logger
}

// NewRulesHandler constructs handler. Toggled rules are persisted to store when it is set.
func NewRulesHandler(engine *workflow.Engine, store repository.Store, logger *zap.Logger) *RulesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RulesHandler{engine: engine, store: store, logger: logger}
}

// ListRules GET /api/rules.
func (h *RulesHandler) ListRules(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.engine.Rules()})
}

// SetEnabled PUT /api/rules/:id/enabled.
func (h *RulesHandler) SetEnabled(c *fiber.Ctx) error {
	var req dto.SetRuleEnabledRequest
	if err := c.BodyParser(&req); err != nil || req.Enabled == nil {
		return apperrors.NewValidationError("enabled flag required", nil)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	rule, err := h.engine.SetEnabled(c.Params("id"), *req.Enabled)
	if err != nil {
		return err
	}
	if h.store != nil {
		if err := repository.SaveAll(c.UserContext(), h.store, repository.CollectionWorkflowRules, h.engine.Rules()); err != nil {
			return err
		}
	}
	h.logger.Info("workflow rule toggled", zap.String("rule_id", rule.ID), zap.Bool("enabled", rule.Enabled))
	return c.JSON(fiber.Map{"data": rule})
}
