package sla

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/case-service/internal/domain"
)

type configFile struct {
	Configurations []domain.SLAConfiguration `json:"sla_configurations" yaml:"sla_configurations"`
}

// LoadConfigurationsFile reads an SLA table from a .json, .yaml or .yml file holding an
// object with a non-empty "sla_configurations" list.
func LoadConfigurationsFile(path string) ([]domain.SLAConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sla configurations %s: %w", path, err)
	}

	var f configFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("unsupported sla configuration format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse sla configurations %s: %w", path, err)
	}
	if len(f.Configurations) == 0 {
		return nil, fmt.Errorf("sla configurations %s: file holds no entries", path)
	}
	if err := Validate(f.Configurations); err != nil {
		return nil, fmt.Errorf("sla configurations %s: %w", path, err)
	}
	return f.Configurations, nil
}

// Validate rejects entries the engine cannot compute deadlines from.
func Validate(configs []domain.SLAConfiguration) error {
	seen := make(map[configKey]struct{}, len(configs))
	for i, cfg := range configs {
		switch {
		case strings.TrimSpace(cfg.CaseType) == "":
			return fmt.Errorf("entry %d: case_type required", i)
		case !cfg.Priority.Valid():
			return fmt.Errorf("entry %d: invalid priority %q", i, cfg.Priority)
		case cfg.ResponseTimeHours <= 0 || cfg.ResolutionTimeHours <= 0:
			return fmt.Errorf("entry %d: response and resolution hours must be positive", i)
		case cfg.EscalationTimeHours != nil && *cfg.EscalationTimeHours <= 0:
			return fmt.Errorf("entry %d: escalation hours must be positive", i)
		}
		key := configKey{cfg.CaseType, cfg.Priority}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("entry %d: duplicate %s/%s", i, cfg.CaseType, cfg.Priority)
		}
		seen[key] = struct{}{}
	}
	return nil
}
