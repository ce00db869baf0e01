package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/case-service/internal/domain"
)

type ruleFile struct {
	Rules []domain.WorkflowRule `json:"rules" yaml:"rules"`
}

// LoadRulesFile reads rules from a .json, .yaml or .yml file. The file holds either a
// list of rules or an object with a "rules" list.
func LoadRulesFile(path string) ([]domain.WorkflowRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	rules, err := ParseRules(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes rules in the format named by ext.
func ParseRules(data []byte, ext string) ([]domain.WorkflowRule, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}

	switch strings.ToLower(ext) {
	case ".json":
		if strings.HasPrefix(trimmed, "[") {
			var rules []domain.WorkflowRule
			if err := json.Unmarshal(data, &rules); err != nil {
				return nil, err
			}
			return rules, nil
		}
		var f ruleFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f.Rules, nil
	case ".yaml", ".yml":
		if strings.HasPrefix(trimmed, "-") {
			var rules []domain.WorkflowRule
			if err := yaml.Unmarshal(data, &rules); err != nil {
				return nil, err
			}
			return rules, nil
		}
		var f ruleFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f.Rules, nil
	}
	return nil, fmt.Errorf("unsupported rules format %q", ext)
}

// ReloadFunc is called with the rules after a successful reload.
type ReloadFunc func(rules []domain.WorkflowRule)

// WatchRules reloads path into engine whenever the file is written or replaced, until ctx
// is done. A file that fails to parse or compile leaves the current rules in place.
func WatchRules(ctx context.Context, path string, engine *Engine, onReload ReloadFunc, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	// Watch the directory: editors and atomic writers replace the file by rename.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	go func() {
		defer watcher.Close()
		target := filepath.Clean(path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				logger.Debug("rules file changed", zap.String("op", event.Op.String()), zap.String("file", event.Name))
				reloadRules(path, engine, onReload, logger)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("rules watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

func reloadRules(path string, engine *Engine, onReload ReloadFunc, logger *zap.Logger) {
	rules, err := LoadRulesFile(path)
	if err != nil {
		logger.Error("reload rules", zap.String("path", path), zap.Error(err))
		return
	}
	if err := engine.ReplaceRules(rules); err != nil {
		logger.Error("reload rules", zap.String("path", path), zap.Error(err))
		return
	}
	if onReload != nil {
		onReload(rules)
	}
}
