package workflow

import (
	"context"
	"errors"

	"github.com/spec-kit/case-service/internal/domain"
)

// RosterAssigner picks an agent from a roster by hashing the case id, so the same case
// always lands on the same agent while the roster is unchanged. Case types with their own
// roster use it; the rest fall back to the default roster.
type RosterAssigner struct {
	roster []string
	byType map[string][]string
}

// NewRosterAssigner creates the assigner.
func NewRosterAssigner(roster []string, byType map[string][]string) *RosterAssigner {
	return &RosterAssigner{roster: roster, byType: byType}
}

// Assign implements Assigner.
func (a *RosterAssigner) Assign(_ context.Context, c domain.Case) (string, error) {
	roster := a.byType[c.Type]
	if len(roster) == 0 {
		roster = a.roster
	}
	if len(roster) == 0 {
		return "", errors.New("assignment roster is empty")
	}
	return roster[selectIndex(c.ID, len(roster))], nil
}

func selectIndex(key string, length int) int {
	if length == 0 {
		return 0
	}
	sum := 0
	for _, ch := range key {
		sum += int(ch)
	}
	return sum % length
}
