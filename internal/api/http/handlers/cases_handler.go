package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/api/dto"
	"github.com/spec-kit/case-service/internal/auth"
	"github.com/spec-kit/case-service/internal/coordinator"
	"github.com/spec-kit/case-service/internal/domain"
	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

// CasesHandler exposes the case lifecycle.
type CasesHandler struct {
	coordinator *coordinator.Coordinator
}

// NewCasesHandler constructs handler.
func NewCasesHandler(co *coordinator.Coordinator) *CasesHandler {
	return &CasesHandler{coordinator: co}
}

// CreateCase POST /api/cases.
func (h *CasesHandler) CreateCase(c *fiber.Ctx) error {
	var req dto.CreateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	created, execs, err := h.coordinator.CreateCase(c.UserContext(), coordinator.CreateCaseInput{
		Type:        req.CaseType,
		Priority:    req.Priority,
		Title:       req.Title,
		Description: req.Description,
		Requester:   req.Requester,
		Property:    req.Property,
		AssignedTo:  req.AssignedTo,
		Actor:       auth.Actor(c),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": mutation(created, execs)})
}

// ListCases GET /api/cases.
func (h *CasesHandler) ListCases(c *fiber.Ctx) error {
	filter, err := parseCaseFilter(c)
	if err != nil {
		return err
	}
	cases, err := h.coordinator.ListCases(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.CaseSummary, 0, len(cases))
	for _, cs := range cases {
		items = append(items, dto.NewCaseSummary(cs))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetCase GET /api/cases/:id.
func (h *CasesHandler) GetCase(c *fiber.Ctx) error {
	cs, err := h.coordinator.GetCase(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": cs})
}

// AssignCase POST /api/cases/:id/assign.
func (h *CasesHandler) AssignCase(c *fiber.Ctx) error {
	var req dto.AssignCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, execs, err := h.coordinator.AssignCase(c.UserContext(), c.Params("id"), coordinator.AssignInput{
		Assignee:        req.Assignee,
		Actor:           auth.Actor(c),
		ExpectedVersion: req.Version,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": mutation(updated, execs)})
}

// ChangeStatus POST /api/cases/:id/status.
func (h *CasesHandler) ChangeStatus(c *fiber.Ctx) error {
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, execs, err := h.coordinator.ChangeStatus(c.UserContext(), c.Params("id"), coordinator.StatusInput{
		Status:          req.Status,
		Reason:          req.Reason,
		Actor:           auth.Actor(c),
		ExpectedVersion: req.Version,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": mutation(updated, execs)})
}

// RecordReply POST /api/cases/:id/replies.
func (h *CasesHandler) RecordReply(c *fiber.Ctx) error {
	var req dto.CustomerReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, execs, err := h.coordinator.RecordCustomerReply(c.UserContext(), c.Params("id"), coordinator.ReplyInput{
		Message:         req.Message,
		Actor:           req.Author,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": mutation(updated, execs)})
}

// ListExecutions GET /api/cases/:id/executions.
func (h *CasesHandler) ListExecutions(c *fiber.Ctx) error {
	execs, err := h.coordinator.ListExecutions(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": execs})
}

// Stats GET /api/stats/cases.
func (h *CasesHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.coordinator.CaseStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// CheckSLA POST /api/sla/check.
func (h *CasesHandler) CheckSLA(c *fiber.Ctx) error {
	res, err := h.coordinator.CheckSLA(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": res})
}

func mutation(c domain.Case, execs []domain.WorkflowExecution) dto.CaseMutationResponse {
	if execs == nil {
		execs = []domain.WorkflowExecution{}
	}
	return dto.CaseMutationResponse{Case: c, Executions: execs}
}

func parseCaseFilter(c *fiber.Ctx) (coordinator.CaseFilter, error) {
	filter := coordinator.CaseFilter{
		Status:     domain.CaseStatus(c.Query("status")),
		Priority:   domain.CasePriority(c.Query("priority")),
		Type:       c.Query("case_type"),
		AssignedTo: c.Query("assigned_to"),
		SLAStatus:  domain.SLAStatus(c.Query("sla_status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return filter, apperrors.NewValidationError("invalid status filter", map[string]any{"status": filter.Status})
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return filter, apperrors.NewValidationError("invalid priority filter", map[string]any{"priority": filter.Priority})
	}
	if raw := c.Query("escalated"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperrors.NewValidationError("escalated must be a boolean", nil)
		}
		filter.Escalated = &v
	}
	return filter, nil
}
