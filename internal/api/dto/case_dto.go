package dto

import (
	"github.com/spec-kit/case-service/internal/domain"
)

// CreateCaseRequest payload.
type CreateCaseRequest struct {
	CaseType    string              `json:"case_type"`
	Priority    domain.CasePriority `json:"priority"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Requester   string              `json:"requester"`
	Property    string              `json:"property"`
	AssignedTo  string              `json:"assigned_to"`
}

// AssignCaseRequest payload. Version, when set, must match the stored case.
type AssignCaseRequest struct {
	Assignee string `json:"assignee"`
	Version  int64  `json:"version"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status  domain.CaseStatus `json:"status"`
	Reason  string            `json:"reason"`
	Version int64             `json:"version"`
}

// CustomerReplyRequest payload.
type CustomerReplyRequest struct {
	Message string `json:"message"`
	Author  string `json:"author"`
	Version int64  `json:"version"`
}

// CaseMutationResponse returns the saved case and the rules that fired.
type CaseMutationResponse struct {
	Case       domain.Case                `json:"case"`
	Executions []domain.WorkflowExecution `json:"executions"`
}

// CaseSummary is the list view of a case.
type CaseSummary struct {
	ID         string              `json:"id"`
	Number     string              `json:"case_number"`
	CaseType   string              `json:"case_type"`
	Title      string              `json:"title"`
	Status     domain.CaseStatus   `json:"status"`
	Priority   domain.CasePriority `json:"priority"`
	AssignedTo *string             `json:"assigned_to"`
	SLAStatus  domain.SLAStatus    `json:"sla_status,omitempty"`
	Escalated  bool                `json:"escalated"`
	Version    int64               `json:"version"`
}

// NewCaseSummary builds the list view.
func NewCaseSummary(c domain.Case) CaseSummary {
	return CaseSummary{
		ID:         c.ID,
		Number:     c.Number,
		CaseType:   c.Type,
		Title:      c.Title,
		Status:     c.Status,
		Priority:   c.Priority,
		AssignedTo: c.AssignedTo,
		SLAStatus:  c.SLAStatus,
		Escalated:  c.Escalated,
		Version:    c.Version,
	}
}
