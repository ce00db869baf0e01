package repository

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

// Collection names.
const (
	CollectionCases                 = "cases"
	CollectionSLAConfigurations     = "sla_configurations"
	CollectionWorkflowRules         = "workflow_rules"
	CollectionWorkflowExecutions    = "workflow_executions"
	CollectionNotificationTemplates = "notification_templates"
	CollectionNotifications         = "notifications"
)

// Store persists whole collections. Save replaces every record of the collection.
// Loading a collection that was never saved returns no records and no error.
type Store interface {
	Load(ctx context.Context, collection string) ([]json.RawMessage, error)
	Save(ctx context.Context, collection string, records []json.RawMessage) error
}

// LoadAll decodes every record of collection into T.
func LoadAll[T any](ctx context.Context, s Store, collection string) ([]T, error) {
	raw, err := s.Load(ctx, collection)
	if err != nil {
		return nil, apperrors.NewPersistenceError("load "+collection, err)
	}
	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, apperrors.NewPersistenceError("load "+collection, fmt.Errorf("record %d: %w", i, err))
		}
		out = append(out, v)
	}
	return out, nil
}

// SaveAll encodes records and replaces collection with them.
func SaveAll[T any](ctx context.Context, s Store, collection string, records []T) error {
	raw := make([]json.RawMessage, 0, len(records))
	for i := range records {
		b, err := json.Marshal(records[i])
		if err != nil {
			return apperrors.NewPersistenceError("save "+collection, fmt.Errorf("record %d: %w", i, err))
		}
		raw = append(raw, b)
	}
	if err := s.Save(ctx, collection, raw); err != nil {
		return apperrors.NewPersistenceError("save "+collection, err)
	}
	return nil
}

// Seed saves defaults into collection when it holds no records yet, and returns what the
// collection holds afterwards.
func Seed[T any](ctx context.Context, s Store, collection string, defaults []T) ([]T, error) {
	existing, err := LoadAll[T](ctx, s, collection)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}
	if err := SaveAll(ctx, s, collection, defaults); err != nil {
		return nil, err
	}
	return defaults, nil
}

func encodeArray(records []json.RawMessage) ([]byte, error) {
	if records == nil {
		records = []json.RawMessage{}
	}
	return json.MarshalIndent(records, "", "  ")
}

func decodeArray(data []byte) ([]json.RawMessage, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}
